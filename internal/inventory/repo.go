package inventory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anvayaclinic/clinicstock-backend/pkg/db/models"
	"github.com/anvayaclinic/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/anvayaclinic/clinicstock-backend/pkg/errors"
	"github.com/anvayaclinic/clinicstock-backend/pkg/pagination"
)

// Repository wires together persistence for both inventory tables and the
// transfer log.
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

// --- master inventory ---

func (r *Repository) CreateMaster(ctx context.Context, row *models.MasterMedicine) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) GetMaster(ctx context.Context, id uuid.UUID) (*models.MasterMedicine, error) {
	var row models.MasterMedicine
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindMasterByName matches medicine_name exactly, case sensitive.
func (r *Repository) FindMasterByName(ctx context.Context, name string) (*models.MasterMedicine, error) {
	var row models.MasterMedicine
	if err := r.db.WithContext(ctx).First(&row, "medicine_name = ?", name).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) ListMaster(ctx context.Context, params ListParams) ([]models.MasterMedicine, error) {
	var rows []models.MasterMedicine
	q := r.db.WithContext(ctx).Model(&models.MasterMedicine{})
	q = applySearch(q, params.Search)
	q, err := applyCursor(q, params.Params)
	if err != nil {
		return nil, err
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) UpdateMaster(ctx context.Context, row *models.MasterMedicine) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *Repository) DeleteMaster(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.MasterMedicine{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

// DebitMaster subtracts quantity only when enough stock remains. The returned
// row count is zero when the balance would go negative, which callers treat
// as a concurrent-modification conflict.
func (r *Repository) DebitMaster(ctx context.Context, id uuid.UUID, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.MasterMedicine{}).
		Where("id = ? AND quantity >= ?", id, quantity).
		Update("quantity", gorm.Expr("quantity - ?", quantity))
	return res.RowsAffected, res.Error
}

// UpsertMasterBalance adds the delta to the named master row, creating it when
// absent. Returns the resulting row and whether it was created.
func (r *Repository) UpsertMasterBalance(ctx context.Context, input BalanceUpsert) (*models.MasterMedicine, bool, error) {
	existing, err := r.FindMasterByName(ctx, input.MedicineName)
	if err == nil {
		res := r.db.WithContext(ctx).
			Model(&models.MasterMedicine{}).
			Where("id = ?", existing.ID).
			Updates(balanceUpdates(input))
		if res.Error != nil {
			return nil, false, res.Error
		}
		row, err := r.GetMaster(ctx, existing.ID)
		return row, false, err
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}

	row := &models.MasterMedicine{
		MedicineName:        input.MedicineName,
		Quantity:            input.Delta,
		Unit:                input.Unit,
		Category:            categoryOrDefault(input.Category),
		Location:            input.Location,
		StockBookPageNumber: input.StockBookPageNumber,
	}
	if err := r.CreateMaster(ctx, row); err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// --- pharmacy inventory ---

func (r *Repository) CreatePharmacy(ctx context.Context, row *models.PharmacyMedicine) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) GetPharmacy(ctx context.Context, id uuid.UUID) (*models.PharmacyMedicine, error) {
	var row models.PharmacyMedicine
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindPharmacyByName matches medicine_name exactly, case sensitive.
func (r *Repository) FindPharmacyByName(ctx context.Context, name string) (*models.PharmacyMedicine, error) {
	var row models.PharmacyMedicine
	if err := r.db.WithContext(ctx).First(&row, "medicine_name = ?", name).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) ListPharmacy(ctx context.Context, params ListParams) ([]models.PharmacyMedicine, error) {
	var rows []models.PharmacyMedicine
	q := r.db.WithContext(ctx).Model(&models.PharmacyMedicine{})
	q = applySearch(q, params.Search)
	q, err := applyCursor(q, params.Params)
	if err != nil {
		return nil, err
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListLowStockPharmacy returns pharmacy rows at or below their reorder level.
// Rows with no configured level are excluded.
func (r *Repository) ListLowStockPharmacy(ctx context.Context, params ListParams) ([]models.PharmacyMedicine, error) {
	var rows []models.PharmacyMedicine
	q := r.db.WithContext(ctx).
		Model(&models.PharmacyMedicine{}).
		Where("min_stock_level > 0 AND quantity <= min_stock_level")
	q = applySearch(q, params.Search)
	q, err := applyCursor(q, params.Params)
	if err != nil {
		return nil, err
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) UpdatePharmacy(ctx context.Context, row *models.PharmacyMedicine) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *Repository) DeletePharmacy(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.PharmacyMedicine{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

// UpsertPharmacyBalance adds the delta to the named pharmacy row, creating it
// when absent. A supplied MinStockLevel overwrites the existing row's level;
// when omitted the row keeps its configured one.
func (r *Repository) UpsertPharmacyBalance(ctx context.Context, input BalanceUpsert) (*models.PharmacyMedicine, bool, error) {
	existing, err := r.FindPharmacyByName(ctx, input.MedicineName)
	if err == nil {
		updates := balanceUpdates(input)
		if input.MinStockLevel != nil {
			updates["min_stock_level"] = *input.MinStockLevel
		}
		res := r.db.WithContext(ctx).
			Model(&models.PharmacyMedicine{}).
			Where("id = ?", existing.ID).
			Updates(updates)
		if res.Error != nil {
			return nil, false, res.Error
		}
		row, err := r.GetPharmacy(ctx, existing.ID)
		return row, false, err
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}

	row := &models.PharmacyMedicine{
		MedicineName:        input.MedicineName,
		Quantity:            input.Delta,
		Unit:                input.Unit,
		Category:            categoryOrDefault(input.Category),
		Location:            input.Location,
		StockBookPageNumber: input.StockBookPageNumber,
	}
	if input.MinStockLevel != nil {
		row.MinStockLevel = *input.MinStockLevel
	}
	if err := r.CreatePharmacy(ctx, row); err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// --- transfers ---

func (r *Repository) CreateTransfer(ctx context.Context, row *models.Transfer) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) GetTransfer(ctx context.Context, id uuid.UUID) (*models.Transfer, error) {
	var row models.Transfer
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) ListTransfers(ctx context.Context, params TransferListParams) ([]models.Transfer, error) {
	var rows []models.Transfer
	q := r.db.WithContext(ctx).Model(&models.Transfer{})
	if name := strings.TrimSpace(params.MedicineName); name != "" {
		q = q.Where("medicine_name = ?", name)
	}
	q, err := applyCursor(q, params.Params)
	if err != nil {
		return nil, err
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) UpdateTransfer(ctx context.Context, row *models.Transfer) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *Repository) DeleteTransfer(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Transfer{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

// SummarizeTransfers aggregates the log per medicine.
func (r *Repository) SummarizeTransfers(ctx context.Context) ([]TransferSummaryRow, error) {
	var rows []TransferSummaryRow
	err := r.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Select("medicine_name, COUNT(*) AS transfer_count, SUM(quantity) AS total_quantity").
		Group("medicine_name").
		Order("medicine_name ASC").
		Find(&rows).Error
	return rows, err
}

// --- helpers ---

func balanceUpdates(input BalanceUpsert) map[string]any {
	updates := map[string]any{
		"quantity": gorm.Expr("quantity + ?", input.Delta),
	}
	if input.MirrorAttrs {
		updates["unit"] = input.Unit
		updates["category"] = categoryOrDefault(input.Category)
		updates["location"] = input.Location
		updates["stock_book_page_number"] = input.StockBookPageNumber
	}
	return updates
}

func categoryOrDefault(category enums.MedicineCategory) enums.MedicineCategory {
	if category == "" {
		return enums.CategoryTDSR
	}
	return category
}

func applySearch(q *gorm.DB, search string) *gorm.DB {
	s := strings.TrimSpace(search)
	if s == "" {
		return q
	}
	return q.Where("LOWER(medicine_name) LIKE ?", "%"+strings.ToLower(s)+"%")
}

func applyCursor(q *gorm.DB, params pagination.Params) (*gorm.DB, error) {
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
	return q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)), nil
}
