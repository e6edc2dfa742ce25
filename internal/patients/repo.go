package patients

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anvayaclinic/clinicstock-backend/pkg/db/models"
	pkgerrors "github.com/anvayaclinic/clinicstock-backend/pkg/errors"
	"github.com/anvayaclinic/clinicstock-backend/pkg/pagination"
)

// Repository manages persistence for patients and their visit history.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, row *models.Patient) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	var row models.Patient
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// GetWithVisits loads the patient and their visits, newest first.
func (r *Repository) GetWithVisits(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	var row models.Patient
	if err := r.db.WithContext(ctx).
		Preload("Visits", func(q *gorm.DB) *gorm.DB {
			return q.Order("visit_date DESC").Order("created_at DESC")
		}).
		First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Patient, error) {
	var rows []models.Patient
	q := r.db.WithContext(ctx).Model(&models.Patient{})
	if s := strings.TrimSpace(params.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(full_name) LIKE ? OR LOWER(op_number) LIKE ?", like, like)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		q = q.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	if err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) Update(ctx context.Context, row *models.Patient) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Select("Visits").Delete(&models.Patient{ID: id})
	return res.RowsAffected, res.Error
}

func (r *Repository) CreateVisit(ctx context.Context, row *models.Visit) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) ListVisits(ctx context.Context, patientID uuid.UUID) ([]models.Visit, error) {
	var rows []models.Visit
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("visit_date DESC").
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) DeleteVisit(ctx context.Context, patientID, visitID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND patient_id = ?", visitID, patientID).
		Delete(&models.Visit{})
	return res.RowsAffected, res.Error
}
