package suppliers

import "time"

// Supplier represents a vendor products are purchased from.
type Supplier struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	ContactPerson *string    `json:"contact_person"`
	Phone         *string    `json:"phone"`
	Email         *string    `json:"email"`
	Address       *string    `json:"address"`
	IsActive      bool       `json:"is_active"`
	BusinessID    *string    `json:"business_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

type CreateSupplierRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	ContactPerson *string `json:"contact_person" validate:"omitempty,max=200"`
	Phone         *string `json:"phone" validate:"omitempty,max=40"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Address       *string `json:"address"`
	IsActive      *bool   `json:"is_active"`
}

type UpdateSupplierRequest struct {
	Name          *string `json:"name" validate:"omitempty,max=200"`
	ContactPerson *string `json:"contact_person" validate:"omitempty,max=200"`
	Phone         *string `json:"phone" validate:"omitempty,max=40"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Address       *string `json:"address"`
	IsActive      *bool   `json:"is_active"`
}

func (r *CreateSupplierRequest) normalize() {
	r.ContactPerson = trim(r.ContactPerson)
	r.Phone = trim(r.Phone)
	r.Email = trim(r.Email)
	r.Address = trim(r.Address)
}

func (r *UpdateSupplierRequest) normalize() {
	r.ContactPerson = trim(r.ContactPerson)
	r.Phone = trim(r.Phone)
	r.Email = trim(r.Email)
	r.Address = trim(r.Address)
}
