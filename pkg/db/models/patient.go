package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Patient is a registered clinic patient identified by OP number.
type Patient struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OPNumber  string    `gorm:"column:op_number;not null;uniqueIndex:ux_patients_op_number"`
	FullName  string    `gorm:"column:full_name;not null"`
	Age       int       `gorm:"column:age;not null"`
	Gender    string    `gorm:"column:gender;not null"`
	Phone     *string   `gorm:"column:phone"`
	Address   *string   `gorm:"column:address"`
	Visits    []Visit   `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName maps the model onto the patients table.
func (Patient) TableName() string {
	return "patients"
}

// BeforeCreate assigns an id when the caller did not provide one.
func (p *Patient) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Visit is one consultation entry in a patient's history.
type Visit struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PatientID    uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index:ix_visits_patient_id"`
	VisitDate    time.Time `gorm:"column:visit_date;not null"`
	Complaints   *string   `gorm:"column:complaints"`
	Diagnosis    *string   `gorm:"column:diagnosis"`
	Prescription *string   `gorm:"column:prescription"`
	Notes        *string   `gorm:"column:notes"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName maps the model onto the visits table.
func (Visit) TableName() string {
	return "visits"
}

// BeforeCreate assigns an id when the caller did not provide one.
func (v *Visit) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
