package purchases

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/anvayaclinic/clinicstock-backend/pkg/db/models"
	"github.com/anvayaclinic/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/anvayaclinic/clinicstock-backend/pkg/errors"
	"github.com/anvayaclinic/clinicstock-backend/pkg/pagination"
)

// Repository manages persistence for purchases and their line items.
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

// Create persists the purchase together with its items.
func (r *Repository) Create(ctx context.Context, row *models.Purchase) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// GetWithItems loads a purchase and its line items.
func (r *Repository) GetWithItems(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var row models.Purchase
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Purchase, error) {
	var rows []models.Purchase
	q := r.db.WithContext(ctx).Model(&models.Purchase{}).Preload("Items")
	if s := strings.TrimSpace(params.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(invoice_number) LIKE ? OR LOWER(supplier_name) LIKE ?", like, like)
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

// UpdatePayment sets the payment status and paid amount together.
func (r *Repository) UpdatePayment(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, paidAmount decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"payment_status": status,
			"paid_amount":    paidAmount,
		})
	return res.RowsAffected, res.Error
}

// MarkTransferred flips transferred_to_inventory exactly once. Zero affected
// rows means the flag was already set (or the purchase is gone), which is how
// concurrent commits lose the race.
func (r *Repository) MarkTransferred(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ? AND NOT transferred_to_inventory", id).
		Update("transferred_to_inventory", true)
	return res.RowsAffected, res.Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Select("Items").Delete(&models.Purchase{ID: id})
	return res.RowsAffected, res.Error
}
