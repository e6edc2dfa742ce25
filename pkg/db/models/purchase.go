package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/anvayaclinic/clinicstock-backend/pkg/enums"
)

// Purchase is a supplier invoice. TransferredToInventory transitions
// false -> true exactly once and gates the commit-to-inventory operation.
type Purchase struct {
	ID                     uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceNumber          string              `gorm:"column:invoice_number;not null;index:ix_purchases_invoice_number"`
	SupplierName           string              `gorm:"column:supplier_name;not null"`
	PurchaseDate           time.Time           `gorm:"column:purchase_date;not null"`
	TotalAmount            decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaymentStatus          enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaidAmount             decimal.Decimal     `gorm:"column:paid_amount;type:numeric(12,2);not null;default:0"`
	Notes                  *string             `gorm:"column:notes"`
	TransferredToInventory bool                `gorm:"column:transferred_to_inventory;not null;default:false"`
	Items                  []PurchaseItem      `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE"`
	CreatedAt              time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName maps the model onto the purchases table.
func (Purchase) TableName() string {
	return "purchases"
}

// BeforeCreate assigns an id when the caller did not provide one.
func (p *Purchase) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PurchaseItem is a single invoice line, owned by exactly one Purchase.
type PurchaseItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseID   uuid.UUID       `gorm:"column:purchase_id;type:uuid;not null;index:ix_purchase_items_purchase_id"`
	MedicineName string          `gorm:"column:medicine_name;not null"`
	BatchNumber  string          `gorm:"column:batch_number;not null;default:''"`
	ExpiryDate   *time.Time      `gorm:"column:expiry_date"`
	Quantity     int             `gorm:"column:quantity;not null"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice   decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName maps the model onto the purchase_items table.
func (PurchaseItem) TableName() string {
	return "purchase_items"
}

// BeforeCreate assigns an id when the caller did not provide one.
func (i *PurchaseItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
