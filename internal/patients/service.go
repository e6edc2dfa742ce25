package patients

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/anvayaclinic/clinicstock-backend/pkg/db"
	"github.com/anvayaclinic/clinicstock-backend/pkg/db/models"
	"github.com/anvayaclinic/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/anvayaclinic/clinicstock-backend/pkg/errors"
	"github.com/anvayaclinic/clinicstock-backend/pkg/logger"
	"github.com/anvayaclinic/clinicstock-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes patient registration and visit history.
type Service interface {
	Register(ctx context.Context, input RegisterPatientInput) (*models.Patient, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Patient, error)
	List(ctx context.Context, params ListParams) ([]models.Patient, error)
	Update(ctx context.Context, id uuid.UUID, input UpdatePatientInput) (*models.Patient, error)
	Delete(ctx context.Context, id uuid.UUID) error

	CreateVisit(ctx context.Context, patientID uuid.UUID, input CreateVisitInput) (*models.Visit, error)
	ListVisits(ctx context.Context, patientID uuid.UUID) ([]models.Visit, error)
	DeleteVisit(ctx context.Context, patientID, visitID uuid.UUID) error
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outboxEmitter
	logg   *logger.Logger
}

// NewService wires the patient service.
func NewService(repo *Repository, tx txRunner, ob outboxEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "patient repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{repo: repo, tx: tx, outbox: ob, logg: logg}, nil
}

// Register creates the patient. OP numbers are unique across the clinic.
func (s *service) Register(ctx context.Context, input RegisterPatientInput) (*models.Patient, error) {
	if input.OPNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "op number is required")
	}
	if input.FullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}
	if input.Age < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "age must not be negative")
	}
	if input.Gender == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gender is required")
	}

	row := &models.Patient{
		OPNumber: input.OPNumber,
		FullName: input.FullName,
		Age:      input.Age,
		Gender:   input.Gender,
		Phone:    input.Phone,
		Address:  input.Address,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, row); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_patients_op_number") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "op number already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register patient")
		}
		if s.outbox == nil {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPatientRegistered,
			AggregateType: enums.AggregatePatient,
			AggregateID:   row.ID,
			Data: map[string]any{
				"patient_id": row.ID,
				"op_number":  row.OPNumber,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	row, err := s.repo.GetWithVisits(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "patient not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load patient")
	}
	return row, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Patient, error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		if pe := pkgerrors.As(err); pe != nil {
			return nil, pe
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list patients")
	}
	return rows, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdatePatientInput) (*models.Patient, error) {
	if input.Age != nil && *input.Age < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "age must not be negative")
	}

	row, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "patient not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load patient")
	}

	if input.FullName != nil {
		row.FullName = *input.FullName
	}
	if input.Age != nil {
		row.Age = *input.Age
	}
	if input.Gender != nil {
		row.Gender = *input.Gender
	}
	if input.Phone != nil {
		row.Phone = input.Phone
	}
	if input.Address != nil {
		row.Address = input.Address
	}

	if err := s.repo.Update(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update patient")
	}
	return row, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete patient")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "patient not found")
	}
	return nil
}

// CreateVisit appends a consultation. The patient must exist.
func (s *service) CreateVisit(ctx context.Context, patientID uuid.UUID, input CreateVisitInput) (*models.Visit, error) {
	if _, err := s.repo.Get(ctx, patientID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "patient not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load patient")
	}

	visitDate := input.VisitDate
	if visitDate.IsZero() {
		visitDate = time.Now()
	}

	row := &models.Visit{
		PatientID:    patientID,
		VisitDate:    visitDate,
		Complaints:   input.Complaints,
		Diagnosis:    input.Diagnosis,
		Prescription: input.Prescription,
		Notes:        input.Notes,
	}
	if err := s.repo.CreateVisit(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record visit")
	}
	return row, nil
}

func (s *service) ListVisits(ctx context.Context, patientID uuid.UUID) ([]models.Visit, error) {
	if _, err := s.repo.Get(ctx, patientID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "patient not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load patient")
	}
	rows, err := s.repo.ListVisits(ctx, patientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list visits")
	}
	return rows, nil
}

func (s *service) DeleteVisit(ctx context.Context, patientID, visitID uuid.UUID) error {
	affected, err := s.repo.DeleteVisit(ctx, patientID, visitID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete visit")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "visit not found")
	}
	return nil
}
