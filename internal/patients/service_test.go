package patients

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/anvayaclinic/clinicstock-backend/pkg/config"
	"github.com/anvayaclinic/clinicstock-backend/pkg/db"
	"github.com/anvayaclinic/clinicstock-backend/pkg/db/models"
	"github.com/anvayaclinic/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/anvayaclinic/clinicstock-backend/pkg/errors"
	"github.com/anvayaclinic/clinicstock-backend/pkg/outbox"
)

func openPatientClient(t *testing.T) *db.Client {
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
		&models.Patient{},
		&models.Visit{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}

func newPatientService(t *testing.T, client *db.Client) Service {
	t.Helper()

	svc, err := NewService(
		NewRepository(client.DB()),
		client,
		outbox.NewService(outbox.NewRepository(client.DB()), nil),
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func registerInput(op string) RegisterPatientInput {
	phone := "9876543210"
	return RegisterPatientInput{
		OPNumber: op,
		FullName: "Asha Nair",
		Age:      42,
		Gender:   "female",
		Phone:    &phone,
	}
}

func TestRegisterPatient(t *testing.T) {
	client := openPatientClient(t)
	svc := newPatientService(t, client)

	row, err := svc.Register(context.Background(), registerInput("OP-1001"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if row.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}

	var eventCount int64
	if err := client.DB().Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPatientRegistered).
		Count(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected 1 registered event, got %d", eventCount)
	}
}

func TestRegisterPatientDuplicateOPNumber(t *testing.T) {
	client := openPatientClient(t)
	svc := newPatientService(t, client)

	if _, err := svc.Register(context.Background(), registerInput("OP-1002")); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(context.Background(), registerInput("OP-1002"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for duplicate op number, got %v", err)
	}

	var count int64
	if err := client.DB().Model(&models.Patient{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("duplicate register must not create rows, got %d", count)
	}
}

func TestRegisterPatientValidation(t *testing.T) {
	client := openPatientClient(t)
	svc := newPatientService(t, client)

	tests := []struct {
		name   string
		mutate func(*RegisterPatientInput)
	}{
		{"missing op number", func(in *RegisterPatientInput) { in.OPNumber = "" }},
		{"missing name", func(in *RegisterPatientInput) { in.FullName = "" }},
		{"negative age", func(in *RegisterPatientInput) { in.Age = -1 }},
		{"missing gender", func(in *RegisterPatientInput) { in.Gender = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := registerInput("OP-BAD")
			tc.mutate(&input)
			_, err := svc.Register(context.Background(), input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUpdatePatientKeepsOPNumber(t *testing.T) {
	client := openPatientClient(t)
	svc := newPatientService(t, client)

	row, err := svc.Register(context.Background(), registerInput("OP-1003"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	newName := "Asha N. Menon"
	newAge := 43
	updated, err := svc.Update(context.Background(), row.ID, UpdatePatientInput{
		FullName: &newName,
		Age:      &newAge,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FullName != newName || updated.Age != 43 {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.OPNumber != "OP-1003" {
		t.Fatalf("op number must not change, got %s", updated.OPNumber)
	}
}

func TestVisitLifecycle(t *testing.T) {
	client := openPatientClient(t)
	svc := newPatientService(t, client)

	patient, err := svc.Register(context.Background(), registerInput("OP-1004"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	complaints := "fever, headache"
	older := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)

	first, err := svc.CreateVisit(context.Background(), patient.ID, CreateVisitInput{
		VisitDate:  older,
		Complaints: &complaints,
	})
	if err != nil {
		t.Fatalf("create visit: %v", err)
	}
	if _, err := svc.CreateVisit(context.Background(), patient.ID, CreateVisitInput{
		VisitDate: newer,
	}); err != nil {
		t.Fatalf("create second visit: %v", err)
	}

	visits, err := svc.ListVisits(context.Background(), patient.ID)
	if err != nil {
		t.Fatalf("list visits: %v", err)
	}
	if len(visits) != 2 {
		t.Fatalf("expected 2 visits, got %d", len(visits))
	}
	if !visits[0].VisitDate.Equal(newer) {
		t.Fatalf("visits must come newest first, got %v", visits[0].VisitDate)
	}

	loaded, err := svc.Get(context.Background(), patient.ID)
	if err != nil {
		t.Fatalf("get with visits: %v", err)
	}
	if len(loaded.Visits) != 2 {
		t.Fatalf("expected visits preloaded, got %d", len(loaded.Visits))
	}

	if err := svc.DeleteVisit(context.Background(), patient.ID, first.ID); err != nil {
		t.Fatalf("delete visit: %v", err)
	}
	if err := svc.DeleteVisit(context.Background(), patient.ID, first.ID); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on double delete, got %v", err)
	}

	// Visit lookups are scoped to their patient.
	other, err := svc.Register(context.Background(), registerInput("OP-1005"))
	if err != nil {
		t.Fatalf("register other: %v", err)
	}
	remaining, err := svc.ListVisits(context.Background(), patient.ID)
	if err != nil {
		t.Fatalf("list remaining: %v", err)
	}
	if err := svc.DeleteVisit(context.Background(), other.ID, remaining[0].ID); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected scoped delete to miss, got %v", err)
	}
}

func TestCreateVisitUnknownPatient(t *testing.T) {
	client := openPatientClient(t)
	svc := newPatientService(t, client)

	_, err := svc.CreateVisit(context.Background(), uuid.New(), CreateVisitInput{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeletePatientRemovesVisits(t *testing.T) {
	client := openPatientClient(t)
	svc := newPatientService(t, client)

	patient, err := svc.Register(context.Background(), registerInput("OP-1006"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.CreateVisit(context.Background(), patient.ID, CreateVisitInput{}); err != nil {
		t.Fatalf("create visit: %v", err)
	}

	if err := svc.Delete(context.Background(), patient.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var visitCount int64
	if err := client.DB().Model(&models.Visit{}).Count(&visitCount).Error; err != nil {
		t.Fatalf("count visits: %v", err)
	}
	if visitCount != 0 {
		t.Fatalf("expected visits removed with patient, got %d", visitCount)
	}
}

func TestListPatientsSearch(t *testing.T) {
	client := openPatientClient(t)
	svc := newPatientService(t, client)

	inputs := []RegisterPatientInput{
		{OPNumber: "OP-2001", FullName: "Asha Nair", Age: 42, Gender: "female"},
		{OPNumber: "OP-2002", FullName: "Ashok Kumar", Age: 55, Gender: "male"},
		{OPNumber: "XP-3001", FullName: "Meera Pillai", Age: 30, Gender: "female"},
	}
	for _, in := range inputs {
		if _, err := svc.Register(context.Background(), in); err != nil {
			t.Fatalf("register %s: %v", in.OPNumber, err)
		}
	}

	byName, err := svc.List(context.Background(), ListParams{Search: "ash"})
	if err != nil {
		t.Fatalf("list by name: %v", err)
	}
	if len(byName) != 2 {
		t.Fatalf("expected 2 name matches, got %d", len(byName))
	}

	byOP, err := svc.List(context.Background(), ListParams{Search: "xp-3"})
	if err != nil {
		t.Fatalf("list by op: %v", err)
	}
	if len(byOP) != 1 || byOP[0].FullName != "Meera Pillai" {
		t.Fatalf("unexpected op match: %+v", byOP)
	}
}
