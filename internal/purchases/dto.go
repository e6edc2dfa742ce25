package purchases

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anvayaclinic/clinicstock-backend/pkg/enums"
	"github.com/anvayaclinic/clinicstock-backend/pkg/pagination"
)

// PurchaseItemInput is one invoice line. TotalPrice defaults to
// quantity x unit price when omitted.
type PurchaseItemInput struct {
	MedicineName string          `json:"medicine_name" validate:"required"`
	BatchNumber  string          `json:"batch_number"`
	ExpiryDate   *time.Time      `json:"expiry_date"`
	Quantity     int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

// CreatePurchaseInput records a supplier invoice with its lines.
type CreatePurchaseInput struct {
	InvoiceNumber string              `json:"invoice_number" validate:"required"`
	SupplierName  string              `json:"supplier_name" validate:"required"`
	PurchaseDate  time.Time           `json:"purchase_date"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Notes         *string             `json:"notes"`
	Items         []PurchaseItemInput `json:"items" validate:"required,min=1,dive"`

	ActorUserID uuid.UUID `json:"-"`
	ActorName   string    `json:"-"`
}

// UpdatePaymentStatusInput flips an invoice between pending and paid.
type UpdatePaymentStatusInput struct {
	PaymentStatus enums.PaymentStatus `json:"payment_status" validate:"required"`
}

// CommitInput identifies who pushed the invoice into master inventory.
type CommitInput struct {
	ActorUserID uuid.UUID `json:"-"`
	ActorName   string    `json:"-"`
}

// CommittedItem reports the outcome of one invoice line during commit.
type CommittedItem struct {
	MedicineName string `json:"medicine_name"`
	Quantity     int    `json:"quantity"`
	NewQuantity  int    `json:"new_quantity"`
	Created      bool   `json:"created"`
}

// CommitResult summarizes a commit-to-inventory run.
type CommitResult struct {
	PurchaseID uuid.UUID       `json:"purchase_id"`
	Items      []CommittedItem `json:"items"`
}

// ListParams carries cursor pagination plus invoice/supplier search.
type ListParams struct {
	pagination.Params
	Search string
}

// PurchaseRecordedEvent is the outbox payload for a newly recorded invoice.
type PurchaseRecordedEvent struct {
	PurchaseID    uuid.UUID       `json:"purchase_id"`
	InvoiceNumber string          `json:"invoice_number"`
	SupplierName  string          `json:"supplier_name"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ItemCount     int             `json:"item_count"`
}

// PurchaseCommittedEvent is the outbox payload for a commit-to-inventory run.
type PurchaseCommittedEvent struct {
	PurchaseID    uuid.UUID       `json:"purchase_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Items         []CommittedItem `json:"items"`
}
