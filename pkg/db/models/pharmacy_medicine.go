package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anvayaclinic/clinicstock-backend/pkg/enums"
)

// PharmacyMedicine is a stock line at the dispensing point. Rows are created
// by transfers out of master inventory (or direct entry) and carry their own
// reorder threshold on top of the classification fields mirrored from master.
type PharmacyMedicine struct {
	ID                  uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	MedicineName        string                 `gorm:"column:medicine_name;not null;uniqueIndex:ux_pharmacy_inventory_medicine_name"`
	Quantity            int                    `gorm:"column:quantity;not null;default:0"`
	Unit                string                 `gorm:"column:unit;not null;default:''"`
	Category            enums.MedicineCategory `gorm:"column:category;type:text;not null;default:'TDSR'"`
	Location            *string                `gorm:"column:location"`
	StockBookPageNumber *string                `gorm:"column:stock_book_page_number"`
	MinStockLevel       int                    `gorm:"column:min_stock_level;not null;default:0"`
	CreatedAt           time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName maps the model onto the pharmacy_inventory table.
func (PharmacyMedicine) TableName() string {
	return "pharmacy_inventory"
}

// BeforeCreate assigns an id when the caller did not provide one.
func (m *PharmacyMedicine) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
