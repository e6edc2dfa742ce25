package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/anvayaclinic/clinicstock-backend/pkg/enums"
	"github.com/anvayaclinic/clinicstock-backend/pkg/pagination"
)

// MedicineInput carries the writable fields of an inventory row.
// MinStockLevel only applies to the pharmacy table.
type MedicineInput struct {
	MedicineName        string                 `json:"medicine_name" validate:"required"`
	Quantity            int                    `json:"quantity" validate:"gte=0"`
	Unit                string                 `json:"unit"`
	Category            enums.MedicineCategory `json:"category"`
	Location            *string                `json:"location"`
	StockBookPageNumber *string                `json:"stock_book_page_number"`
	MinStockLevel       *int                   `json:"min_stock_level" validate:"omitempty,gte=0"`
}

// MedicineUpdateInput carries partial updates. Nil fields are left untouched.
type MedicineUpdateInput struct {
	MedicineName        *string                 `json:"medicine_name" validate:"omitempty,min=1"`
	Quantity            *int                    `json:"quantity" validate:"omitempty,gte=0"`
	Unit                *string                 `json:"unit"`
	Category            *enums.MedicineCategory `json:"category"`
	Location            *string                 `json:"location"`
	StockBookPageNumber *string                 `json:"stock_book_page_number"`
	MinStockLevel       *int                    `json:"min_stock_level" validate:"omitempty,gte=0"`
}

// TransferInput describes a movement of stock from master to pharmacy.
// A supplied MinStockLevel is written to the pharmacy row whether the
// transfer creates or updates it; when omitted an existing row keeps its
// configured level.
type TransferInput struct {
	MedicineID    uuid.UUID `json:"medicine_id" validate:"required"`
	Quantity      int       `json:"quantity" validate:"required,gt=0"`
	MinStockLevel *int      `json:"min_stock_level" validate:"omitempty,gte=0"`
	Issuer        string    `json:"issuer" validate:"required"`
	Receiver      string    `json:"receiver" validate:"required"`
	TransferDate  time.Time `json:"transfer_date"`

	ActorUserID uuid.UUID `json:"-"`
	ActorName   string    `json:"-"`
}

// TransferResult reports both balances after a committed transfer.
type TransferResult struct {
	TransferID       uuid.UUID `json:"transfer_id"`
	MedicineName     string    `json:"medicine_name"`
	Quantity         int       `json:"quantity"`
	MasterQuantity   int       `json:"master_quantity"`
	PharmacyQuantity int       `json:"pharmacy_quantity"`
}

// TransferUpdateInput edits the audit metadata of a recorded transfer.
// Quantities are immutable once written.
type TransferUpdateInput struct {
	Issuer       *string    `json:"issuer" validate:"omitempty,min=1"`
	Receiver     *string    `json:"receiver" validate:"omitempty,min=1"`
	TransferDate *time.Time `json:"transfer_date"`
}

// TransferSummaryRow aggregates transferred quantities per medicine.
type TransferSummaryRow struct {
	MedicineName  string `json:"medicine_name" gorm:"column:medicine_name"`
	TransferCount int    `json:"transfer_count" gorm:"column:transfer_count"`
	TotalQuantity int    `json:"total_quantity" gorm:"column:total_quantity"`
}

// BalanceUpsert is the shared add-or-create primitive for inventory rows.
// Delta is added to the existing balance; when no row matches the name a new
// one is created with Delta as its starting quantity. MirrorAttrs overwrites
// unit, category, location and stock book page on the update branch too, so a
// destination row tracks its source's classification. A non-nil MinStockLevel
// is written on both branches.
type BalanceUpsert struct {
	MedicineName        string
	Delta               int
	Unit                string
	Category            enums.MedicineCategory
	Location            *string
	StockBookPageNumber *string
	MinStockLevel       *int
	MirrorAttrs         bool
}

// ListParams carries cursor pagination plus the optional name search.
type ListParams struct {
	pagination.Params
	Search string
}

// TransferListParams filters the transfer log.
type TransferListParams struct {
	pagination.Params
	MedicineName string
}

// TransferDataEvent is the outbox payload written for a committed transfer.
type TransferDataEvent struct {
	TransferID       uuid.UUID `json:"transfer_id"`
	MedicineName     string    `json:"medicine_name"`
	Quantity         int       `json:"quantity"`
	FromInventory    string    `json:"from_inventory"`
	ToInventory      string    `json:"to_inventory"`
	MasterQuantity   int       `json:"master_quantity"`
	PharmacyQuantity int       `json:"pharmacy_quantity"`
}
