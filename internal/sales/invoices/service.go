package invoices

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/inventory"
	mdshared "github.com/ledgerly/ledgerly/internal/masterdata/shared"
	"github.com/ledgerly/ledgerly/internal/sales/shared"
	internalShared "github.com/ledgerly/ledgerly/internal/shared"
)

// LedgerPort posts stock movements inside an invoice transaction.
type LedgerPort interface {
	ApplyTx(ctx context.Context, tx inventory.TxRepository, input inventory.MovementInput) (inventory.Movement, error)
	LockProducts(ctx context.Context, productIDs []string) (func(), error)
	Committed(ctx context.Context, movements []inventory.Movement)
}

type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service issues, settles and voids invoices. Every stock effect goes through the ledger
// in the same transaction as the invoice rows.
type Service struct {
	repo   Repository
	ledger LedgerPort
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, ledger LedgerPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, ledger: ledger, audit: audit, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the invoice with its items and payments.
func (s *Service) Get(ctx context.Context, id string) (Invoice, error) {
	return s.repo.Get(ctx, strings.TrimSpace(id))
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	return s.repo.List(ctx, filter)
}

// Create stores the invoice and posts one movement per item: sales remove stock,
// purchases add it.
func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error) {
	req.Number = strings.TrimSpace(req.Number)
	req.Kind = Kind(strings.ToLower(strings.TrimSpace(string(req.Kind))))
	req.CustomerID = mdshared.BlankToNil(req.CustomerID)
	req.SupplierID = mdshared.BlankToNil(req.SupplierID)
	if err := mdshared.Validate(req); err != nil {
		return Invoice{}, err
	}
	if req.Kind == KindSale && req.SupplierID != nil {
		return Invoice{}, internalShared.FieldError("supplier_id", "is not allowed on a sale")
	}
	if req.Kind == KindPurchase && req.CustomerID != nil {
		return Invoice{}, internalShared.FieldError("customer_id", "is not allowed on a purchase")
	}

	productIDs := make([]string, 0, len(req.Items))
	seen := make(map[string]bool, len(req.Items))
	for i := range req.Items {
		req.Items[i].ProductID = strings.TrimSpace(req.Items[i].ProductID)
		if id := req.Items[i].ProductID; !seen[id] {
			seen[id] = true
			productIDs = append(productIDs, id)
		}
	}

	unlock, err := s.ledger.LockProducts(ctx, productIDs)
	if err != nil {
		return Invoice{}, err
	}
	defer unlock()

	identity := internalShared.IdentityFromContext(ctx)
	var created Invoice
	var movements []inventory.Movement
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		movements = movements[:0]
		now := s.now()
		inv := Invoice{
			ID:         uuid.NewString(),
			Number:     req.Number,
			Kind:       req.Kind,
			CustomerID: req.CustomerID,
			SupplierID: req.SupplierID,
			Discount:   req.Discount,
			Note:       strings.TrimSpace(req.Note),
			IssuedAt:   now,
			CreatedBy:  optional(identity.UserID),
			BusinessID: optional(identity.BusinessID),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if party := partyID(inv); party != nil {
			if err := tx.CheckParty(ctx, inv.Kind, *party); err != nil {
				return err
			}
		}
		catalogue, err := tx.LoadProducts(ctx, productIDs)
		if err != nil {
			return err
		}

		lines := make([]shared.Line, 0, len(req.Items))
		for i, r := range req.Items {
			p := catalogue[r.ProductID]
			price := p.Price
			if inv.Kind == KindPurchase {
				price = p.CostPrice
			}
			if r.UnitPrice != nil {
				price = *r.UnitPrice
			}
			rate := p.TaxRate
			if r.TaxRate != nil {
				rate = *r.TaxRate
			}
			inv.Items = append(inv.Items, Item{
				ID:          uuid.NewString(),
				InvoiceID:   inv.ID,
				ProductID:   p.ID,
				LineNo:      i + 1,
				SKU:         p.SKU,
				ProductName: p.Name,
				Quantity:    r.Quantity,
				UnitPrice:   price,
				TaxRate:     rate,
				LineTotal:   shared.CalculateLineTotal(r.Quantity, price),
			})
			lines = append(lines, shared.Line{Quantity: r.Quantity, UnitPrice: price, TaxRate: rate})
		}
		totals := shared.CalculateTotals(lines, req.Discount)
		if totals.Total.IsNegative() {
			return internalShared.FieldError("discount", "exceeds the invoice total")
		}
		inv.Subtotal, inv.Tax, inv.Total = totals.Subtotal, totals.Tax, totals.Total

		paid := decimal.Zero
		for _, pr := range req.Payments {
			inv.Payments = append(inv.Payments, Payment{
				ID:        uuid.NewString(),
				InvoiceID: inv.ID,
				Amount:    pr.Amount,
				Method:    pr.Method,
				Reference: mdshared.BlankToNil(pr.Reference),
				PaidAt:    now,
			})
			paid = paid.Add(pr.Amount)
		}
		inv.AmountPaid = paid
		inv.Status = shared.PaymentStatus(inv.Total, paid)

		if err := tx.InsertInvoice(ctx, inv); err != nil {
			return err
		}
		for _, it := range inv.Items {
			if err := tx.InsertItem(ctx, it); err != nil {
				return err
			}
		}
		for _, p := range inv.Payments {
			if err := tx.InsertPayment(ctx, p); err != nil {
				return err
			}
		}
		for _, it := range inv.Items {
			m, err := s.ledger.ApplyTx(ctx, tx.Ledger(), postingFor(inv, it))
			if err != nil {
				return err
			}
			movements = append(movements, m)
		}
		created = inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	s.ledger.Committed(ctx, movements)
	s.record(ctx, "invoice.created", created.ID, map[string]any{"number": created.Number, "kind": string(created.Kind), "total": created.Total.String()})
	return created, nil
}

// AddPayment records a payment and recomputes the settlement status.
func (s *Service) AddPayment(ctx context.Context, id string, req PaymentRequest) (Invoice, error) {
	req.Reference = mdshared.BlankToNil(req.Reference)
	if err := mdshared.Validate(req); err != nil {
		return Invoice{}, err
	}
	var updated Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.LockInvoice(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status == StatusVoid {
			return internalShared.NewValidationError("invoice %s is void and cannot take payments", inv.Number)
		}
		now := s.now()
		p := Payment{ID: uuid.NewString(), InvoiceID: inv.ID, Amount: req.Amount, Method: req.Method, Reference: req.Reference, PaidAt: now}
		if err := tx.InsertPayment(ctx, p); err != nil {
			return err
		}
		inv.AmountPaid = inv.AmountPaid.Add(req.Amount)
		inv.Status = shared.PaymentStatus(inv.Total, inv.AmountPaid)
		inv.UpdatedAt = now
		inv.Payments = append(inv.Payments, p)
		if err := tx.UpdateSettlement(ctx, inv.ID, inv.AmountPaid, inv.Status, now); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	s.record(ctx, "invoice.payment_added", updated.ID, map[string]any{"amount": req.Amount.String(), "status": updated.Status})
	return updated, nil
}

// Void reverses an invoice's stock effects with compensating movements. Voiding a void
// invoice returns it unchanged.
func (s *Service) Void(ctx context.Context, id string, req VoidRequest) (Invoice, error) {
	if err := mdshared.Validate(req); err != nil {
		return Invoice{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if current.Status == StatusVoid {
		return current, nil
	}
	productIDs := make([]string, 0, len(current.Items))
	for _, it := range current.Items {
		productIDs = append(productIDs, it.ProductID)
	}
	unlock, err := s.ledger.LockProducts(ctx, productIDs)
	if err != nil {
		return Invoice{}, err
	}
	defer unlock()

	var voided Invoice
	var movements []inventory.Movement
	changed := false
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		movements = movements[:0]
		inv, err := tx.LockInvoice(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status == StatusVoid {
			voided, changed = inv, false
			return nil
		}
		now := s.now()
		note := inv.Note
		if n := strings.TrimSpace(req.Note); n != "" {
			note = n
		}
		for _, it := range inv.Items {
			m, err := s.ledger.ApplyTx(ctx, tx.Ledger(), reversalFor(inv, it))
			if err != nil {
				return err
			}
			movements = append(movements, m)
		}
		if err := tx.MarkVoid(ctx, inv.ID, note, now); err != nil {
			return err
		}
		inv.Status, inv.Note, inv.UpdatedAt = StatusVoid, note, now
		voided, changed = inv, true
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	if changed {
		s.ledger.Committed(ctx, movements)
		s.record(ctx, "invoice.voided", voided.ID, map[string]any{"number": voided.Number})
	}
	return voided, nil
}

func postingFor(inv Invoice, it Item) inventory.MovementInput {
	in := inventory.MovementInput{ProductID: it.ProductID, InvoiceID: &inv.ID, Note: "invoice " + inv.Number}
	if inv.Kind == KindPurchase {
		in.Kind, in.Quantity = inventory.KindPurchase, it.Quantity
	} else {
		in.Kind, in.Quantity = inventory.KindSale, -it.Quantity
	}
	return in
}

func reversalFor(inv Invoice, it Item) inventory.MovementInput {
	in := inventory.MovementInput{ProductID: it.ProductID, InvoiceID: &inv.ID, Note: "void invoice " + inv.Number}
	if inv.Kind == KindPurchase {
		in.Kind, in.Quantity = inventory.KindAdjustment, -it.Quantity
	} else {
		in.Kind, in.Quantity = inventory.KindReturn, it.Quantity
	}
	return in
}

func partyID(inv Invoice) *string {
	if inv.Kind == KindPurchase {
		return inv.SupplierID
	}
	return inv.CustomerID
}

func (s *Service) record(ctx context.Context, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(context.WithoutCancel(ctx), internalShared.AuditLog{Action: action, Entity: "invoice", EntityID: id, Meta: meta}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.String("invoice_id", id), slog.Any("error", err))
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
