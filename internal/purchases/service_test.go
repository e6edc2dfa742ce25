package purchases

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/anvayaclinic/clinicstock-backend/internal/inventory"
	"github.com/anvayaclinic/clinicstock-backend/pkg/config"
	"github.com/anvayaclinic/clinicstock-backend/pkg/db"
	"github.com/anvayaclinic/clinicstock-backend/pkg/db/models"
	"github.com/anvayaclinic/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/anvayaclinic/clinicstock-backend/pkg/errors"
	"github.com/anvayaclinic/clinicstock-backend/pkg/outbox"
)

func openPurchaseClient(t *testing.T) *db.Client {
	t.Helper()

	cfg := config.DBConfig{
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		Driver: "sqlite",
	}
	client, err := db.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.DB().AutoMigrate(
		&models.Purchase{},
		&models.PurchaseItem{},
		&models.MasterMedicine{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}

func newPurchaseService(t *testing.T, client *db.Client) Service {
	t.Helper()

	svc, err := NewService(
		NewRepository(client.DB()),
		inventory.NewRepository(client.DB()),
		client,
		outbox.NewService(outbox.NewRepository(client.DB()), nil),
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func price(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func paidPurchaseInput(invoice string) CreatePurchaseInput {
	return CreatePurchaseInput{
		InvoiceNumber: invoice,
		SupplierName:  "MedSupply Co",
		PurchaseDate:  time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		PaymentStatus: enums.PaymentStatusPaid,
		Items: []PurchaseItemInput{
			{MedicineName: "Paracetamol", BatchNumber: "B100", Quantity: 50, UnitPrice: price("1.20")},
			{MedicineName: "Ibuprofen", BatchNumber: "B200", Quantity: 30, UnitPrice: price("2.50")},
		},
	}
}

func TestCreateComputesTotals(t *testing.T) {
	client := openPurchaseClient(t)
	svc := newPurchaseService(t, client)

	row, err := svc.Create(context.Background(), paidPurchaseInput("INV-001"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// 50 x 1.20 + 30 x 2.50 = 135.00
	if !row.TotalAmount.Equal(price("135")) {
		t.Fatalf("total amount = %s, want 135", row.TotalAmount)
	}
	if !row.PaidAmount.Equal(row.TotalAmount) {
		t.Fatalf("paid purchase must settle full amount, got %s", row.PaidAmount)
	}
	if len(row.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(row.Items))
	}
	if !row.Items[0].TotalPrice.Equal(price("60")) {
		t.Fatalf("item total = %s, want 60", row.Items[0].TotalPrice)
	}
	if row.TransferredToInventory {
		t.Fatal("new purchase must not be marked transferred")
	}

	var eventCount int64
	if err := client.DB().Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPurchaseRecorded).
		Count(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected 1 recorded event, got %d", eventCount)
	}
}

func TestCreateValidation(t *testing.T) {
	client := openPurchaseClient(t)
	svc := newPurchaseService(t, client)

	tests := []struct {
		name   string
		mutate func(*CreatePurchaseInput)
	}{
		{"missing invoice", func(in *CreatePurchaseInput) { in.InvoiceNumber = "" }},
		{"missing supplier", func(in *CreatePurchaseInput) { in.SupplierName = "" }},
		{"no items", func(in *CreatePurchaseInput) { in.Items = nil }},
		{"zero quantity", func(in *CreatePurchaseInput) { in.Items[0].Quantity = 0 }},
		{"negative price", func(in *CreatePurchaseInput) { in.Items[0].UnitPrice = price("-1") }},
		{"bad status", func(in *CreatePurchaseInput) { in.PaymentStatus = enums.PaymentStatus("settled") }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := paidPurchaseInput("INV-BAD")
			tc.mutate(&input)
			_, err := svc.Create(context.Background(), input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUpdatePaymentStatusSettlesAndResets(t *testing.T) {
	client := openPurchaseClient(t)
	svc := newPurchaseService(t, client)

	input := paidPurchaseInput("INV-002")
	input.PaymentStatus = enums.PaymentStatusPending
	row, err := svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !row.PaidAmount.IsZero() {
		t.Fatalf("pending purchase should owe everything, paid=%s", row.PaidAmount)
	}

	updated, err := svc.UpdatePaymentStatus(context.Background(), row.ID, UpdatePaymentStatusInput{
		PaymentStatus: enums.PaymentStatusPaid,
	})
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if !updated.PaidAmount.Equal(updated.TotalAmount) {
		t.Fatalf("paid amount = %s, want %s", updated.PaidAmount, updated.TotalAmount)
	}

	reverted, err := svc.UpdatePaymentStatus(context.Background(), row.ID, UpdatePaymentStatusInput{
		PaymentStatus: enums.PaymentStatusPending,
	})
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if !reverted.PaidAmount.IsZero() {
		t.Fatalf("reverting to pending must clear paid amount, got %s", reverted.PaidAmount)
	}

	if _, err := svc.UpdatePaymentStatus(context.Background(), uuid.New(), UpdatePaymentStatusInput{
		PaymentStatus: enums.PaymentStatusPaid,
	}); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCommitToInventoryUpserts(t *testing.T) {
	client := openPurchaseClient(t)
	svc := newPurchaseService(t, client)

	// Paracetamol already exists in master; Ibuprofen does not.
	existing := &models.MasterMedicine{MedicineName: "Paracetamol", Quantity: 10, Unit: "tablets"}
	if err := client.DB().Create(existing).Error; err != nil {
		t.Fatalf("seed master: %v", err)
	}

	row, err := svc.Create(context.Background(), paidPurchaseInput("INV-003"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := svc.CommitToInventory(context.Background(), row.ID, CommitInput{ActorName: "Store Keeper"})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 committed items, got %d", len(result.Items))
	}

	byName := map[string]CommittedItem{}
	for _, item := range result.Items {
		byName[item.MedicineName] = item
	}
	if got := byName["Paracetamol"]; got.Created || got.NewQuantity != 60 {
		t.Fatalf("existing row should be topped up to 60: %+v", got)
	}
	if got := byName["Ibuprofen"]; !got.Created || got.NewQuantity != 30 {
		t.Fatalf("missing row should be created with 30: %+v", got)
	}

	var createdRow models.MasterMedicine
	if err := client.DB().First(&createdRow, "medicine_name = ?", "Ibuprofen").Error; err != nil {
		t.Fatalf("load created row: %v", err)
	}
	if createdRow.Category != enums.CategoryTDSR {
		t.Fatalf("purchase-created rows default to TDSR, got %s", createdRow.Category)
	}
	if createdRow.StockBookPageNumber == nil || *createdRow.StockBookPageNumber != "INV-003" {
		t.Fatal("stock book page must reference the invoice number")
	}

	// The pre-existing row keeps its own page reference.
	var existingRow models.MasterMedicine
	if err := client.DB().First(&existingRow, "medicine_name = ?", "Paracetamol").Error; err != nil {
		t.Fatalf("load existing row: %v", err)
	}
	if existingRow.StockBookPageNumber != nil {
		t.Fatal("top-up must not overwrite existing row attributes")
	}

	var eventCount int64
	if err := client.DB().Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPurchaseCommitted).
		Count(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected 1 committed event, got %d", eventCount)
	}
}

func TestCommitToInventoryIsOneShot(t *testing.T) {
	client := openPurchaseClient(t)
	svc := newPurchaseService(t, client)

	row, err := svc.Create(context.Background(), paidPurchaseInput("INV-004"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CommitToInventory(context.Background(), row.ID, CommitInput{}); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	_, err = svc.CommitToInventory(context.Background(), row.ID, CommitInput{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on second commit, got %v", err)
	}

	var master models.MasterMedicine
	if err := client.DB().First(&master, "medicine_name = ?", "Paracetamol").Error; err != nil {
		t.Fatalf("load master: %v", err)
	}
	if master.Quantity != 50 {
		t.Fatalf("double commit must not double stock, got %d", master.Quantity)
	}
}

func TestCommitConflictsWhenFlagFlipsMidFlight(t *testing.T) {
	client := openPurchaseClient(t)
	svc := newPurchaseService(t, client)

	row, err := svc.Create(context.Background(), paidPurchaseInput("INV-010"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Flip the one-shot flag right before the guarded update runs, after the
	// service's pre-check has already seen it unset. The conditional update
	// then matches no rows.
	fired := false
	err = client.DB().Callback().Update().Before("gorm:update").
		Register("flip_flag_once", func(tx *gorm.DB) {
			if fired {
				return
			}
			fired = true
			tx.Session(&gorm.Session{NewDB: true}).
				Exec("UPDATE purchases SET transferred_to_inventory = ? WHERE id = ?", true, row.ID)
		})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	_, err = svc.CommitToInventory(context.Background(), row.ID, CommitInput{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if !fired {
		t.Fatal("flip hook never ran")
	}

	var masterRows int64
	if err := client.DB().Model(&models.MasterMedicine{}).Count(&masterRows).Error; err != nil {
		t.Fatalf("count master rows: %v", err)
	}
	if masterRows != 0 {
		t.Fatalf("conflicting commit must not touch inventory, got %d rows", masterRows)
	}

	var reloaded models.Purchase
	if err := client.DB().First(&reloaded, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("reload purchase: %v", err)
	}
	if reloaded.TransferredToInventory {
		t.Fatal("rollback must revert the flag flip")
	}
}

func TestCommitToInventoryRequiresPayment(t *testing.T) {
	client := openPurchaseClient(t)
	svc := newPurchaseService(t, client)

	input := paidPurchaseInput("INV-005")
	input.PaymentStatus = enums.PaymentStatusPending
	row, err := svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.CommitToInventory(context.Background(), row.ID, CommitInput{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for unpaid purchase, got %v", err)
	}

	var masterCount int64
	if err := client.DB().Model(&models.MasterMedicine{}).Count(&masterCount).Error; err != nil {
		t.Fatalf("count master: %v", err)
	}
	if masterCount != 0 {
		t.Fatal("unpaid purchase must not touch inventory")
	}

	var reloaded models.Purchase
	if err := client.DB().First(&reloaded, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("reload purchase: %v", err)
	}
	if reloaded.TransferredToInventory {
		t.Fatal("rejected commit must not flip the one-shot flag")
	}
}

func TestCommitToInventoryUnknownPurchase(t *testing.T) {
	client := openPurchaseClient(t)
	svc := newPurchaseService(t, client)

	_, err := svc.CommitToInventory(context.Background(), uuid.New(), CommitInput{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeletePurchaseRemovesItems(t *testing.T) {
	client := openPurchaseClient(t)
	svc := newPurchaseService(t, client)

	row, err := svc.Create(context.Background(), paidPurchaseInput("INV-006"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(context.Background(), row.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var itemCount int64
	if err := client.DB().Model(&models.PurchaseItem{}).Count(&itemCount).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if itemCount != 0 {
		t.Fatalf("expected items to be removed with their purchase, got %d", itemCount)
	}

	if err := svc.Delete(context.Background(), row.ID); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestListPurchasesSearch(t *testing.T) {
	client := openPurchaseClient(t)
	svc := newPurchaseService(t, client)

	for _, invoice := range []string{"INV-100", "INV-101", "OTHER-1"} {
		if _, err := svc.Create(context.Background(), paidPurchaseInput(invoice)); err != nil {
			t.Fatalf("create %s: %v", invoice, err)
		}
	}

	rows, err := svc.List(context.Background(), ListParams{Search: "inv-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(rows))
	}

	all, err := svc.List(context.Background(), ListParams{Search: "medsupply"})
	if err != nil {
		t.Fatalf("list by supplier: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected supplier search to match all, got %d", len(all))
	}
}
