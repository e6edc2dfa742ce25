package patients

import (
	"time"

	"github.com/anvayaclinic/clinicstock-backend/pkg/pagination"
)

// RegisterPatientInput creates a patient record keyed by OP number.
type RegisterPatientInput struct {
	OPNumber string  `json:"op_number" validate:"required"`
	FullName string  `json:"full_name" validate:"required"`
	Age      int     `json:"age" validate:"gte=0"`
	Gender   string  `json:"gender" validate:"required"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

// UpdatePatientInput carries partial updates. Nil fields are left untouched.
// OP numbers are immutable once assigned.
type UpdatePatientInput struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1"`
	Age      *int    `json:"age" validate:"omitempty,gte=0"`
	Gender   *string `json:"gender" validate:"omitempty,min=1"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

// CreateVisitInput appends a consultation to a patient's history.
type CreateVisitInput struct {
	VisitDate    time.Time `json:"visit_date"`
	Complaints   *string   `json:"complaints"`
	Diagnosis    *string   `json:"diagnosis"`
	Prescription *string   `json:"prescription"`
	Notes        *string   `json:"notes"`
}

// ListParams carries cursor pagination plus a name/OP number search.
type ListParams struct {
	pagination.Params
	Search string
}
