package purchases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/anvayaclinic/clinicstock-backend/internal/inventory"
	"github.com/anvayaclinic/clinicstock-backend/pkg/db/models"
	"github.com/anvayaclinic/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/anvayaclinic/clinicstock-backend/pkg/errors"
	"github.com/anvayaclinic/clinicstock-backend/pkg/logger"
	"github.com/anvayaclinic/clinicstock-backend/pkg/metrics"
	"github.com/anvayaclinic/clinicstock-backend/pkg/outbox"
)

const opCommit = "purchase_commit"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the purchase ledger operations.
type Service interface {
	Create(ctx context.Context, input CreatePurchaseInput) (*models.Purchase, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	List(ctx context.Context, params ListParams) ([]models.Purchase, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, input UpdatePaymentStatusInput) (*models.Purchase, error)
	CommitToInventory(ctx context.Context, id uuid.UUID, input CommitInput) (*CommitResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo      *Repository
	inventory *inventory.Repository
	tx        txRunner
	outbox    outboxEmitter
	metrics   *metrics.LedgerMetrics
	logg      *logger.Logger
}

// NewService wires the purchase service. The inventory repository is shared so
// commits reuse the same balance-upsert primitive transfers do.
func NewService(repo *Repository, inv *inventory.Repository, tx txRunner, ob outboxEmitter, m *metrics.LedgerMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "purchase repository required")
	}
	if inv == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{repo: repo, inventory: inv, tx: tx, outbox: ob, metrics: m, logg: logg}, nil
}

// Create records the invoice and its lines. The purchase does not touch
// inventory until it is committed.
func (s *service) Create(ctx context.Context, input CreatePurchaseInput) (*models.Purchase, error) {
	if input.InvoiceNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice number is required")
	}
	if input.SupplierName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier name is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if input.PurchaseDate.IsZero() {
		input.PurchaseDate = time.Now()
	}
	status := input.PaymentStatus
	if status == "" {
		status = enums.PaymentStatusPending
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status")
	}

	items := make([]models.PurchaseItem, 0, len(input.Items))
	itemsTotal := decimal.Zero
	for i, item := range input.Items {
		if item.MedicineName == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item medicine name is required").
				WithDetails(map[string]any{"index": i})
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive").
				WithDetails(map[string]any{"index": i, "medicine_name": item.MedicineName})
		}
		if item.UnitPrice.IsNegative() || item.TotalPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item prices must not be negative").
				WithDetails(map[string]any{"index": i, "medicine_name": item.MedicineName})
		}
		total := item.TotalPrice
		if total.IsZero() {
			total = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		}
		itemsTotal = itemsTotal.Add(total)
		items = append(items, models.PurchaseItem{
			MedicineName: item.MedicineName,
			BatchNumber:  item.BatchNumber,
			ExpiryDate:   item.ExpiryDate,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			TotalPrice:   total,
		})
	}

	totalAmount := input.TotalAmount
	if totalAmount.IsZero() {
		totalAmount = itemsTotal
	}
	if totalAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total amount must not be negative")
	}

	paidAmount := decimal.Zero
	if status == enums.PaymentStatusPaid {
		paidAmount = totalAmount
	}

	row := &models.Purchase{
		InvoiceNumber: input.InvoiceNumber,
		SupplierName:  input.SupplierName,
		PurchaseDate:  input.PurchaseDate,
		TotalAmount:   totalAmount,
		PaymentStatus: status,
		PaidAmount:    paidAmount,
		Notes:         input.Notes,
		Items:         items,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record purchase")
		}
		if s.outbox == nil {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseRecorded,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   row.ID,
			Actor:         actorRef(input.ActorUserID, input.ActorName),
			Data: PurchaseRecordedEvent{
				PurchaseID:    row.ID,
				InvoiceNumber: row.InvoiceNumber,
				SupplierName:  row.SupplierName,
				TotalAmount:   row.TotalAmount,
				ItemCount:     len(row.Items),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	row, err := s.repo.GetWithItems(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
	}
	return row, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Purchase, error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		if pe := pkgerrors.As(err); pe != nil {
			return nil, pe
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}
	return rows, nil
}

// UpdatePaymentStatus flips the invoice between pending and paid. Marking
// paid settles the full amount; reverting to pending clears it.
func (s *service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, input UpdatePaymentStatusInput) (*models.Purchase, error) {
	if !input.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status")
	}

	row, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	paidAmount := decimal.Zero
	if input.PaymentStatus == enums.PaymentStatusPaid {
		paidAmount = row.TotalAmount
	}
	affected, err := s.repo.UpdatePayment(ctx, id, input.PaymentStatus, paidAmount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
	}

	row.PaymentStatus = input.PaymentStatus
	row.PaidAmount = paidAmount
	return row, nil
}

// CommitToInventory pushes every invoice line into master inventory exactly
// once. The one-shot flag is flipped with a conditional update before any
// balance moves, so a concurrent commit of the same purchase observes zero
// affected rows and stops.
func (s *service) CommitToInventory(ctx context.Context, id uuid.UUID, input CommitInput) (*CommitResult, error) {
	started := time.Now()
	result, err := s.commitToInventory(ctx, id, input)
	s.metrics.ObserveDuration(opCommit, time.Since(started))
	if err != nil {
		s.metrics.IncFailure(opCommit)
		return nil, err
	}
	s.metrics.IncSuccess(opCommit)
	for _, item := range result.Items {
		s.metrics.AddUnitsMoved(opCommit, item.Quantity)
	}
	return result, nil
}

func (s *service) commitToInventory(ctx context.Context, id uuid.UUID, input CommitInput) (*CommitResult, error) {
	if s.logg != nil {
		ctx = s.logg.WithOperation(ctx, opCommit)
	}

	var result CommitResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		invRepo := s.inventory.WithTx(tx)

		purchase, err := repo.GetWithItems(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
		}
		if purchase.TransferredToInventory {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase already transferred to inventory")
		}
		if purchase.PaymentStatus != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase is not paid")
		}
		if len(purchase.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase has no items to commit")
		}

		affected, err := repo.MarkTransferred(ctx, purchase.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark purchase transferred")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase already transferred to inventory")
		}

		committed := make([]CommittedItem, 0, len(purchase.Items))
		invoiceRef := purchase.InvoiceNumber
		for _, item := range purchase.Items {
			row, created, err := invRepo.UpsertMasterBalance(ctx, inventory.BalanceUpsert{
				MedicineName:        item.MedicineName,
				Delta:               item.Quantity,
				Category:            enums.CategoryTDSR,
				StockBookPageNumber: &invoiceRef,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit master inventory")
			}
			committed = append(committed, CommittedItem{
				MedicineName: item.MedicineName,
				Quantity:     item.Quantity,
				NewQuantity:  row.Quantity,
				Created:      created,
			})
		}

		result = CommitResult{PurchaseID: purchase.ID, Items: committed}

		if s.outbox == nil {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseCommitted,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   purchase.ID,
			Actor:         actorRef(input.ActorUserID, input.ActorName),
			Data: PurchaseCommittedEvent{
				PurchaseID:    purchase.ID,
				InvoiceNumber: purchase.InvoiceNumber,
				Items:         committed,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(ctx, "purchase committed to inventory")
	}
	return &result, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete purchase")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
	}
	return nil
}

func actorRef(userID uuid.UUID, name string) *outbox.ActorRef {
	if userID == uuid.Nil && name == "" {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Name: name}
}
