package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/anvayaclinic/clinicstock-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func TestRouteTTLSelection(t *testing.T) {
	commitPath := fmt.Sprintf("/api/v1/purchases/%s/commit", uuid.New())
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"transfer", http.MethodPost, "/api/v1/inventory/transfers", defaultIdempotencyTTL, true},
		{"purchase", http.MethodPost, "/api/v1/purchases", defaultIdempotencyTTL, true},
		{"patient", http.MethodPost, "/api/v1/patients", defaultIdempotencyTTL, true},
		{"commit", http.MethodPost, commitPath, criticalIdempotencyTTL, true},
		{"list is not idempotent-guarded", http.MethodGet, "/api/v1/purchases", 0, false},
		{"payment status", http.MethodPatch, fmt.Sprintf("/api/v1/purchases/%s/payment-status", uuid.New()), 0, false},
		{"nested path is not a commit", http.MethodPost, "/api/v1/purchases/a/b/commit", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", strings.NewReader(`{"foo":"bar"}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/transfers", strings.NewReader(`{"foo":"bar"}`))
	req.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected first response 202 got %d", resp.Code)
	}

	replay := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/transfers", strings.NewReader(`{"foo":"bar"}`))
	replay.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, replay)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected replay status 202 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Fatalf("expected replayed body, got %q", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler must only run once, ran %d times", calls)
	}
}

func TestIdempotencyMiddlewareRejectsDifferentBody(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", strings.NewReader(`{"invoice_number":"INV-1"}`))
	first.Header.Set("Idempotency-Key", "dup")
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", strings.NewReader(`{"invoice_number":"INV-2"}`))
	second.Header.Set("Idempotency-Key", "dup")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, second)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected idempotency code, got %s", envelope.Error.Code)
	}
}

func TestIdempotencyMiddlewareSkipsUnmatchedRoutes(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	if calls != 1 {
		t.Fatalf("expected handler to run for unmatched route")
	}
	if len(store.data) != 0 {
		t.Fatalf("unmatched routes must not persist records")
	}
}

func TestIdempotencyEngagesInsideRouteGroup(t *testing.T) {
	store := newFakeStore()
	var createCalls, commitCalls int

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Idempotency(store, nil))
		r.Route("/purchases", func(r chi.Router) {
			r.Post("/", func(w http.ResponseWriter, _ *http.Request) {
				createCalls++
				w.WriteHeader(http.StatusCreated)
			})
			r.Post("/{purchaseId}/commit", func(w http.ResponseWriter, _ *http.Request) {
				commitCalls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"committed":true}`))
			})
		})
	})

	noKey := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", strings.NewReader(`{"invoice_number":"INV-1"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, noKey)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key, got %d", rec.Code)
	}
	if createCalls != 0 {
		t.Fatalf("handler must not run without idempotency key")
	}

	commitPath := fmt.Sprintf("/api/v1/purchases/%s/commit", uuid.New())
	commit := httptest.NewRequest(http.MethodPost, commitPath, strings.NewReader(`{}`))
	commit.Header.Set("Idempotency-Key", "commit-1")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, commit)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected commit to succeed, got %d", rec.Code)
	}
	if len(store.data) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(store.data))
	}

	replay := httptest.NewRequest(http.MethodPost, commitPath, strings.NewReader(`{}`))
	replay.Header.Set("Idempotency-Key", "commit-1")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, replay)
	if rec.Code != http.StatusOK || rec.Body.String() != `{"committed":true}` {
		t.Fatalf("expected replayed commit response, got %d %q", rec.Code, rec.Body.String())
	}
	if commitCalls != 1 {
		t.Fatalf("commit handler must only run once, ran %d times", commitCalls)
	}
}
