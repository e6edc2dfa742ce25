package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anvayaclinic/clinicstock-backend/api/controllers"
	"github.com/anvayaclinic/clinicstock-backend/api/middleware"
	"github.com/anvayaclinic/clinicstock-backend/internal/inventory"
	"github.com/anvayaclinic/clinicstock-backend/internal/patients"
	"github.com/anvayaclinic/clinicstock-backend/internal/purchases"
	"github.com/anvayaclinic/clinicstock-backend/pkg/config"
	"github.com/anvayaclinic/clinicstock-backend/pkg/db"
	"github.com/anvayaclinic/clinicstock-backend/pkg/logger"
	"github.com/anvayaclinic/clinicstock-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	inventoryService inventory.Service,
	purchaseService purchases.Service,
	patientService patients.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/inventory", func(r chi.Router) {
			// Static segments first so "transfers" and "low-stock" never
			// resolve as a {table} value.
			r.Get("/low-stock", controllers.InventoryLowStock(inventoryService, logg))

			r.Route("/transfers", func(r chi.Router) {
				r.Post("/", controllers.TransferCreate(inventoryService, logg))
				r.Get("/", controllers.TransferList(inventoryService, logg))
				r.Get("/summary", controllers.TransferSummary(inventoryService, logg))
				r.Get("/{transferId}", controllers.TransferGet(inventoryService, logg))
				r.Patch("/{transferId}", controllers.TransferUpdate(inventoryService, logg))
				r.Delete("/{transferId}", controllers.TransferDelete(inventoryService, logg))
			})

			r.Route("/{table}", func(r chi.Router) {
				r.Post("/", controllers.InventoryCreateMedicine(inventoryService, logg))
				r.Get("/", controllers.InventoryListMedicines(inventoryService, logg))
				r.Get("/{medicineId}", controllers.InventoryGetMedicine(inventoryService, logg))
				r.Patch("/{medicineId}", controllers.InventoryUpdateMedicine(inventoryService, logg))
				r.Delete("/{medicineId}", controllers.InventoryDeleteMedicine(inventoryService, logg))
			})
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Post("/", controllers.PurchaseCreate(purchaseService, logg))
			r.Get("/", controllers.PurchaseList(purchaseService, logg))
			r.Get("/{purchaseId}", controllers.PurchaseGet(purchaseService, logg))
			r.Patch("/{purchaseId}/payment-status", controllers.PurchaseUpdatePaymentStatus(purchaseService, logg))
			r.Post("/{purchaseId}/commit", controllers.PurchaseCommit(purchaseService, logg))
			r.Delete("/{purchaseId}", controllers.PurchaseDelete(purchaseService, logg))
		})

		r.Route("/patients", func(r chi.Router) {
			r.Post("/", controllers.PatientRegister(patientService, logg))
			r.Get("/", controllers.PatientList(patientService, logg))
			r.Get("/{patientId}", controllers.PatientGet(patientService, logg))
			r.Patch("/{patientId}", controllers.PatientUpdate(patientService, logg))
			r.Delete("/{patientId}", controllers.PatientDelete(patientService, logg))

			r.Route("/{patientId}/visits", func(r chi.Router) {
				r.Post("/", controllers.VisitCreate(patientService, logg))
				r.Get("/", controllers.VisitList(patientService, logg))
				r.Delete("/{visitId}", controllers.VisitDelete(patientService, logg))
			})
		})
	})

	return r
}
