package inventory

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
	"github.com/anvayaclinic/clinicstock-backend/pkg/metrics"
	"github.com/anvayaclinic/clinicstock-backend/pkg/outbox"
)

const (
	opTransfer = "transfer"
	opUpsert   = "balance_upsert"
)

// txRunner abstracts the database handle so services stay testable.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// outboxEmitter is satisfied by *outbox.Service.
type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the stock ledger operations.
type Service interface {
	TransferToPharmacy(ctx context.Context, input TransferInput) (*TransferResult, error)
	UpsertQuantity(ctx context.Context, table enums.InventoryTable, input BalanceUpsert) (int, error)

	CreateMedicine(ctx context.Context, table enums.InventoryTable, input MedicineInput) (any, error)
	GetMedicine(ctx context.Context, table enums.InventoryTable, id uuid.UUID) (any, error)
	ListMedicines(ctx context.Context, table enums.InventoryTable, params ListParams) (any, error)
	UpdateMedicine(ctx context.Context, table enums.InventoryTable, id uuid.UUID, input MedicineUpdateInput) (any, error)
	DeleteMedicine(ctx context.Context, table enums.InventoryTable, id uuid.UUID) error
	ListLowStock(ctx context.Context, params ListParams) ([]models.PharmacyMedicine, error)

	GetTransfer(ctx context.Context, id uuid.UUID) (*models.Transfer, error)
	ListTransfers(ctx context.Context, params TransferListParams) ([]models.Transfer, error)
	UpdateTransfer(ctx context.Context, id uuid.UUID, input TransferUpdateInput) (*models.Transfer, error)
	DeleteTransfer(ctx context.Context, id uuid.UUID) error
	TransferSummary(ctx context.Context) ([]TransferSummaryRow, error)
}

type service struct {
	repo    *Repository
	tx      txRunner
	outbox  outboxEmitter
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
}

// NewService wires the inventory service with its collaborators. Metrics and
// outbox may be nil in tests.
func NewService(repo *Repository, tx txRunner, ob outboxEmitter, m *metrics.LedgerMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{repo: repo, tx: tx, outbox: ob, metrics: m, logg: logg}, nil
}

// TransferToPharmacy moves stock from master to pharmacy atomically: the
// conditional debit, the pharmacy credit and the audit row commit or roll
// back together.
func (s *service) TransferToPharmacy(ctx context.Context, input TransferInput) (*TransferResult, error) {
	started := time.Now()
	result, err := s.transferToPharmacy(ctx, input)
	s.metrics.ObserveDuration(opTransfer, time.Since(started))
	if err != nil {
		s.metrics.IncFailure(opTransfer)
		return nil, err
	}
	s.metrics.IncSuccess(opTransfer)
	s.metrics.AddUnitsMoved(opTransfer, result.Quantity)
	return result, nil
}

func (s *service) transferToPharmacy(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if input.MedicineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medicine id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer quantity must be positive")
	}
	if input.MinStockLevel != nil && *input.MinStockLevel < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min stock level must not be negative")
	}
	if input.Issuer == "" || input.Receiver == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "issuer and receiver are required")
	}
	if input.TransferDate.IsZero() {
		input.TransferDate = time.Now()
	}

	if s.logg != nil {
		ctx = s.logg.WithOperation(ctx, opTransfer)
	}

	var result TransferResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		master, err := repo.GetMaster(ctx, input.MedicineID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found in master inventory")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load master medicine")
		}
		if master.Quantity < input.Quantity {
			return pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock in master inventory").
				WithDetails(map[string]any{
					"medicine_name": master.MedicineName,
					"available":     master.Quantity,
					"requested":     input.Quantity,
				})
		}

		affected, err := repo.DebitMaster(ctx, master.ID, input.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit master inventory")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "master stock changed concurrently, retry the transfer")
		}

		pharmacy, _, err := repo.UpsertPharmacyBalance(ctx, BalanceUpsert{
			MedicineName:        master.MedicineName,
			Delta:               input.Quantity,
			Unit:                master.Unit,
			Category:            master.Category,
			Location:            master.Location,
			StockBookPageNumber: master.StockBookPageNumber,
			MinStockLevel:       input.MinStockLevel,
			MirrorAttrs:         true,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit pharmacy inventory")
		}

		transfer := &models.Transfer{
			MedicineName:  master.MedicineName,
			Quantity:      input.Quantity,
			FromInventory: enums.InventoryMaster.String(),
			ToInventory:   enums.InventoryPharmacy.String(),
			Issuer:        input.Issuer,
			Receiver:      input.Receiver,
			TransferDate:  input.TransferDate,
		}
		if err := repo.CreateTransfer(ctx, transfer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transfer")
		}

		result = TransferResult{
			TransferID:       transfer.ID,
			MedicineName:     master.MedicineName,
			Quantity:         input.Quantity,
			MasterQuantity:   master.Quantity - input.Quantity,
			PharmacyQuantity: pharmacy.Quantity,
		}

		if s.outbox == nil {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMedicineTransferred,
			AggregateType: enums.AggregateTransfer,
			AggregateID:   transfer.ID,
			Actor:         transferActor(input),
			Data: TransferDataEvent{
				TransferID:       transfer.ID,
				MedicineName:     master.MedicineName,
				Quantity:         input.Quantity,
				FromInventory:    transfer.FromInventory,
				ToInventory:      transfer.ToInventory,
				MasterQuantity:   result.MasterQuantity,
				PharmacyQuantity: result.PharmacyQuantity,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithMedicine(ctx, result.MedicineName), "transfer committed")
	}
	return &result, nil
}

func transferActor(input TransferInput) *outbox.ActorRef {
	if input.ActorUserID == uuid.Nil && input.ActorName == "" {
		return nil
	}
	return &outbox.ActorRef{UserID: input.ActorUserID, Name: input.ActorName}
}

// UpsertQuantity applies a balance delta to the named medicine in the chosen
// table, creating the row when missing. Returns the resulting quantity.
func (s *service) UpsertQuantity(ctx context.Context, table enums.InventoryTable, input BalanceUpsert) (int, error) {
	if input.MedicineName == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "medicine name is required")
	}
	if input.Delta == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity delta must be non-zero")
	}
	if !table.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "unknown inventory table")
	}

	started := time.Now()
	var quantity int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		switch table {
		case enums.InventoryMaster:
			row, _, err := repo.UpsertMasterBalance(ctx, input)
			if err != nil {
				return wrapUpsertErr(err, "upsert master balance")
			}
			if row.Quantity < 0 {
				return pkgerrors.New(pkgerrors.CodeConflict, "balance would go negative")
			}
			quantity = row.Quantity
		default:
			row, _, err := repo.UpsertPharmacyBalance(ctx, input)
			if err != nil {
				return wrapUpsertErr(err, "upsert pharmacy balance")
			}
			if row.Quantity < 0 {
				return pkgerrors.New(pkgerrors.CodeConflict, "balance would go negative")
			}
			quantity = row.Quantity
		}
		return nil
	})
	s.metrics.ObserveDuration(opUpsert, time.Since(started))
	if err != nil {
		s.metrics.IncFailure(opUpsert)
		return 0, err
	}
	s.metrics.IncSuccess(opUpsert)
	return quantity, nil
}

// --- medicine CRUD ---

func (s *service) CreateMedicine(ctx context.Context, table enums.InventoryTable, input MedicineInput) (any, error) {
	if !table.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown inventory table")
	}
	if input.MedicineName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medicine name is required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if input.Category != "" && !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown medicine category")
	}

	switch table {
	case enums.InventoryMaster:
		row := &models.MasterMedicine{
			MedicineName:        input.MedicineName,
			Quantity:            input.Quantity,
			Unit:                input.Unit,
			Category:            categoryOrDefault(input.Category),
			Location:            input.Location,
			StockBookPageNumber: input.StockBookPageNumber,
		}
		if err := s.repo.CreateMaster(ctx, row); err != nil {
			return nil, wrapCreateMedicineErr(err)
		}
		return row, nil
	default:
		row := &models.PharmacyMedicine{
			MedicineName:        input.MedicineName,
			Quantity:            input.Quantity,
			Unit:                input.Unit,
			Category:            categoryOrDefault(input.Category),
			Location:            input.Location,
			StockBookPageNumber: input.StockBookPageNumber,
		}
		if input.MinStockLevel != nil {
			row.MinStockLevel = *input.MinStockLevel
		}
		if err := s.repo.CreatePharmacy(ctx, row); err != nil {
			return nil, wrapCreateMedicineErr(err)
		}
		return row, nil
	}
}

func (s *service) GetMedicine(ctx context.Context, table enums.InventoryTable, id uuid.UUID) (any, error) {
	if !table.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown inventory table")
	}
	switch table {
	case enums.InventoryMaster:
		row, err := s.repo.GetMaster(ctx, id)
		return anyOrNotFound(row, err)
	default:
		row, err := s.repo.GetPharmacy(ctx, id)
		return anyOrNotFound(row, err)
	}
}

func (s *service) ListMedicines(ctx context.Context, table enums.InventoryTable, params ListParams) (any, error) {
	if !table.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown inventory table")
	}
	switch table {
	case enums.InventoryMaster:
		rows, err := s.repo.ListMaster(ctx, params)
		if err != nil {
			return nil, wrapListErr(err)
		}
		return rows, nil
	default:
		rows, err := s.repo.ListPharmacy(ctx, params)
		if err != nil {
			return nil, wrapListErr(err)
		}
		return rows, nil
	}
}

func (s *service) UpdateMedicine(ctx context.Context, table enums.InventoryTable, id uuid.UUID, input MedicineUpdateInput) (any, error) {
	if !table.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown inventory table")
	}
	if input.Quantity != nil && *input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if input.Category != nil && !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown medicine category")
	}

	switch table {
	case enums.InventoryMaster:
		row, err := s.repo.GetMaster(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
		}
		applyMasterUpdate(row, input)
		if err := s.repo.UpdateMaster(ctx, row); err != nil {
			return nil, wrapCreateMedicineErr(err)
		}
		return row, nil
	default:
		row, err := s.repo.GetPharmacy(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
		}
		applyPharmacyUpdate(row, input)
		if err := s.repo.UpdatePharmacy(ctx, row); err != nil {
			return nil, wrapCreateMedicineErr(err)
		}
		return row, nil
	}
}

func (s *service) DeleteMedicine(ctx context.Context, table enums.InventoryTable, id uuid.UUID) error {
	if !table.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown inventory table")
	}
	var (
		affected int64
		err      error
	)
	switch table {
	case enums.InventoryMaster:
		affected, err = s.repo.DeleteMaster(ctx, id)
	default:
		affected, err = s.repo.DeletePharmacy(ctx, id)
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete medicine")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
	}
	return nil
}

func (s *service) ListLowStock(ctx context.Context, params ListParams) ([]models.PharmacyMedicine, error) {
	rows, err := s.repo.ListLowStockPharmacy(ctx, params)
	if err != nil {
		return nil, wrapListErr(err)
	}
	return rows, nil
}

// --- transfer log ---

func (s *service) GetTransfer(ctx context.Context, id uuid.UUID) (*models.Transfer, error) {
	row, err := s.repo.GetTransfer(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transfer")
	}
	return row, nil
}

func (s *service) ListTransfers(ctx context.Context, params TransferListParams) ([]models.Transfer, error) {
	rows, err := s.repo.ListTransfers(ctx, params)
	if err != nil {
		return nil, wrapListErr(err)
	}
	return rows, nil
}

// UpdateTransfer edits audit metadata only. Quantities stay immutable so the
// log keeps matching the balances it produced.
func (s *service) UpdateTransfer(ctx context.Context, id uuid.UUID, input TransferUpdateInput) (*models.Transfer, error) {
	row, err := s.GetTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Issuer != nil {
		row.Issuer = *input.Issuer
	}
	if input.Receiver != nil {
		row.Receiver = *input.Receiver
	}
	if input.TransferDate != nil {
		row.TransferDate = *input.TransferDate
	}
	if err := s.repo.UpdateTransfer(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update transfer")
	}
	return row, nil
}

// DeleteTransfer removes the audit row without reversing stock.
func (s *service) DeleteTransfer(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.DeleteTransfer(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete transfer")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
	}
	return nil
}

func (s *service) TransferSummary(ctx context.Context) ([]TransferSummaryRow, error) {
	rows, err := s.repo.SummarizeTransfers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize transfers")
	}
	return rows, nil
}

// --- helpers ---

func applyMasterUpdate(row *models.MasterMedicine, input MedicineUpdateInput) {
	if input.MedicineName != nil {
		row.MedicineName = *input.MedicineName
	}
	if input.Quantity != nil {
		row.Quantity = *input.Quantity
	}
	if input.Unit != nil {
		row.Unit = *input.Unit
	}
	if input.Category != nil {
		row.Category = *input.Category
	}
	if input.Location != nil {
		row.Location = input.Location
	}
	if input.StockBookPageNumber != nil {
		row.StockBookPageNumber = input.StockBookPageNumber
	}
}

func applyPharmacyUpdate(row *models.PharmacyMedicine, input MedicineUpdateInput) {
	if input.MedicineName != nil {
		row.MedicineName = *input.MedicineName
	}
	if input.Quantity != nil {
		row.Quantity = *input.Quantity
	}
	if input.Unit != nil {
		row.Unit = *input.Unit
	}
	if input.Category != nil {
		row.Category = *input.Category
	}
	if input.Location != nil {
		row.Location = input.Location
	}
	if input.StockBookPageNumber != nil {
		row.StockBookPageNumber = input.StockBookPageNumber
	}
	if input.MinStockLevel != nil {
		row.MinStockLevel = *input.MinStockLevel
	}
}

func anyOrNotFound[T any](row *T, err error) (any, error) {
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
	}
	return row, nil
}

// wrapUpsertErr keeps the error taxonomy consistent when the database check
// constraint fires before the in-transaction negative-balance read does.
func wrapUpsertErr(err error, msg string) error {
	if dbpkg.IsCheckViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "balance would go negative")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func wrapCreateMedicineErr(err error) error {
	if dbpkg.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "medicine name already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write medicine")
}

func wrapListErr(err error) error {
	if pe := pkgerrors.As(err); pe != nil {
		return pe
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
}
