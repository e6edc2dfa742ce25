package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/anvayaclinic/clinicstock-backend/api/responses"
	"github.com/anvayaclinic/clinicstock-backend/api/validators"
	"github.com/anvayaclinic/clinicstock-backend/internal/inventory"
	"github.com/anvayaclinic/clinicstock-backend/pkg/db/models"
	"github.com/anvayaclinic/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/anvayaclinic/clinicstock-backend/pkg/errors"
	"github.com/anvayaclinic/clinicstock-backend/pkg/logger"
	"github.com/anvayaclinic/clinicstock-backend/pkg/pagination"
	"github.com/anvayaclinic/clinicstock-backend/pkg/types"
)

func tableParam(r *http.Request) (enums.InventoryTable, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "table"))
	table, err := enums.ParseInventoryTable(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventory table").
			WithDetails(map[string]any{"table": raw})
	}
	return table, nil
}

// InventoryCreateMedicine adds a medicine row to the requested ledger.
func InventoryCreateMedicine(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table, err := tableParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventory.MedicineInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.CreateMedicine(r.Context(), table, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

func InventoryGetMedicine(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table, err := tableParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseIDParam(chi.URLParam(r, "medicineId"), "medicineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.GetMedicine(r.Context(), table, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

func InventoryListMedicines(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table, err := tableParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pageParams, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := inventory.ListParams{
			Params: pageParams,
			Search: strings.TrimSpace(r.URL.Query().Get("search")),
		}

		result, err := svc.ListMedicines(r.Context(), table, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var page types.Page
		switch rows := result.(type) {
		case []models.MasterMedicine:
			page = pageOf(rows, params.Limit, func(m models.MasterMedicine) pagination.Cursor {
				return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
			})
		case []models.PharmacyMedicine:
			page = pageOf(rows, params.Limit, func(m models.PharmacyMedicine) pagination.Cursor {
				return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
			})
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "unexpected list result"))
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func InventoryUpdateMedicine(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table, err := tableParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseIDParam(chi.URLParam(r, "medicineId"), "medicineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventory.MedicineUpdateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.UpdateMedicine(r.Context(), table, id, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

func InventoryDeleteMedicine(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table, err := tableParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseIDParam(chi.URLParam(r, "medicineId"), "medicineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteMedicine(r.Context(), table, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// InventoryLowStock lists pharmacy rows at or below their minimum stock level.
func InventoryLowStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pageParams, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := inventory.ListParams{
			Params: pageParams,
			Search: strings.TrimSpace(r.URL.Query().Get("search")),
		}

		rows, err := svc.ListLowStock(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pageOf(rows, params.Limit, func(m models.PharmacyMedicine) pagination.Cursor {
			return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
		}))
	}
}

// TransferCreate moves stock from the master ledger into the pharmacy.
func TransferCreate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventory.TransferInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.ActorUserID = act.UserID
		payload.ActorName = act.Name

		result, err := svc.TransferToPharmacy(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func TransferList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pageParams, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := inventory.TransferListParams{
			Params:       pageParams,
			MedicineName: strings.TrimSpace(r.URL.Query().Get("medicine_name")),
		}

		rows, err := svc.ListTransfers(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pageOf(rows, params.Limit, func(t models.Transfer) pagination.Cursor {
			return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
		}))
	}
}

func TransferSummary(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.TransferSummary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func TransferGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(chi.URLParam(r, "transferId"), "transferId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.GetTransfer(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

func TransferUpdate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(chi.URLParam(r, "transferId"), "transferId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventory.TransferUpdateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.UpdateTransfer(r.Context(), id, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

func TransferDelete(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(chi.URLParam(r, "transferId"), "transferId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteTransfer(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
