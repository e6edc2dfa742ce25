package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anvayaclinic/clinicstock-backend/pkg/enums"
)

// MasterMedicine is a stock line in the central inventory medicines are
// purchased into and transferred out of. medicine_name is the natural key
// used for upsert matching (exact, case-sensitive).
type MasterMedicine struct {
	ID                  uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	MedicineName        string                 `gorm:"column:medicine_name;not null;uniqueIndex:ux_master_inventory_medicine_name"`
	Quantity            int                    `gorm:"column:quantity;not null;default:0"`
	Unit                string                 `gorm:"column:unit;not null;default:''"`
	Category            enums.MedicineCategory `gorm:"column:category;type:text;not null;default:'TDSR'"`
	Location            *string                `gorm:"column:location"`
	StockBookPageNumber *string                `gorm:"column:stock_book_page_number"`
	CreatedAt           time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName maps the model onto the master_inventory table.
func (MasterMedicine) TableName() string {
	return "master_inventory"
}

// BeforeCreate assigns an id when the caller did not provide one.
func (m *MasterMedicine) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
