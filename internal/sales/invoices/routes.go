package invoices

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices", h.List)
	r.Post("/invoices", h.Create)
	r.Get("/invoices/{id}", h.Show)
	r.Post("/invoices/{id}/payments", h.AddPayment)
	r.Post("/invoices/{id}/void", h.Void)
}
