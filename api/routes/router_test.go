package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/anvayaclinic/clinicstock-backend/internal/inventory"
	"github.com/anvayaclinic/clinicstock-backend/internal/patients"
	"github.com/anvayaclinic/clinicstock-backend/internal/purchases"
	pkgauth "github.com/anvayaclinic/clinicstock-backend/pkg/auth"
	"github.com/anvayaclinic/clinicstock-backend/pkg/config"
	"github.com/anvayaclinic/clinicstock-backend/pkg/db"
	"github.com/anvayaclinic/clinicstock-backend/pkg/db/models"
	"github.com/anvayaclinic/clinicstock-backend/pkg/outbox"
	"github.com/anvayaclinic/clinicstock-backend/pkg/redis"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "router-test-secret",
		Issuer:            "clinicstock-test",
		ExpirationMinutes: 15,
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	client, err := db.New(context.Background(), config.DBConfig{
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		Driver: "sqlite",
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.DB().AutoMigrate(
		&models.MasterMedicine{},
		&models.PharmacyMedicine{},
		&models.Transfer{},
		&models.Purchase{},
		&models.PurchaseItem{},
		&models.Patient{},
		&models.Visit{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ob := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	invRepo := inventory.NewRepository(client.DB())

	inventoryService, err := inventory.NewService(invRepo, client, ob, nil, nil)
	if err != nil {
		t.Fatalf("inventory service: %v", err)
	}
	purchaseService, err := purchases.NewService(purchases.NewRepository(client.DB()), invRepo, client, ob, nil, nil)
	if err != nil {
		t.Fatalf("purchase service: %v", err)
	}
	patientService, err := patients.NewService(patients.NewRepository(client.DB()), client, ob, nil)
	if err != nil {
		t.Fatalf("patient service: %v", err)
	}

	cfg := &config.Config{JWT: testJWTConfig()}
	cfg.App.Env = "test"

	return NewRouter(cfg, nil, client, &redis.Client{}, inventoryService, purchaseService, patientService, nil)
}

func bearerToken(t *testing.T) string {
	t.Helper()

	token, err := pkgauth.MintAccessToken(testJWTConfig(), time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Name:   "Dr. Rao",
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if rec.Header().Get("X-ClinicStock-Env") != "test" {
		t.Fatalf("expected env header")
	}
}

func TestAPIRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	paths := []string{
		"/api/v1/inventory/master",
		"/api/v1/purchases",
		"/api/v1/patients",
	}
	for _, path := range paths {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, rec.Code)
		}
	}
}

func TestInventoryCreateAndListRoundTrip(t *testing.T) {
	router := newTestRouter(t)
	token := bearerToken(t)

	body := `{"medicine_name":"Paracetamol 500mg","quantity":100,"unit":"tablets"}`
	create := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/master", strings.NewReader(body))
	create.Header.Set("Authorization", token)
	create.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, create)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201 got %d: %s", rec.Code, rec.Body.String())
	}

	list := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/master?search=para", nil)
	list.Header.Set("Authorization", token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, list)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data struct {
			Items []models.MasterMedicine `json:"items"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(envelope.Data.Items) != 1 || envelope.Data.Items[0].MedicineName != "Paracetamol 500mg" {
		t.Fatalf("unexpected list payload: %+v", envelope.Data.Items)
	}
}

func TestInventoryRejectsUnknownTable(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/warehouse", nil)
	req.Header.Set("Authorization", bearerToken(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestTransferRouteIsNotShadowedByTableParam(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/transfers/summary", nil)
	req.Header.Set("Authorization", bearerToken(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
}
