package customers

import "time"

// Customer is a buyer invoices can be issued to.
type Customer struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Phone      *string    `json:"phone,omitempty"`
	Email      *string    `json:"email,omitempty"`
	Address    *string    `json:"address,omitempty"`
	IsActive   bool       `json:"is_active"`
	BusinessID *string    `json:"business_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}
