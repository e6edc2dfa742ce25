package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transfer is the append-only audit record of a quantity movement between
// inventories. Rows reference medicines by name only; renaming a medicine
// orphans its history.
type Transfer struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	MedicineName  string    `gorm:"column:medicine_name;not null;index:ix_transfers_medicine_name"`
	Quantity      int       `gorm:"column:quantity;not null"`
	FromInventory string    `gorm:"column:from_inventory;not null"`
	ToInventory   string    `gorm:"column:to_inventory;not null"`
	Issuer        string    `gorm:"column:issuer;not null"`
	Receiver      string    `gorm:"column:receiver;not null"`
	TransferDate  time.Time `gorm:"column:transfer_date;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName maps the model onto the transfers table.
func (Transfer) TableName() string {
	return "transfers"
}

// BeforeCreate assigns an id when the caller did not provide one.
func (t *Transfer) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
