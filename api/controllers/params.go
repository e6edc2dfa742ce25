package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/anvayaclinic/clinicstock-backend/api/middleware"
	pkgerrors "github.com/anvayaclinic/clinicstock-backend/pkg/errors"
	"github.com/anvayaclinic/clinicstock-backend/pkg/pagination"
	"github.com/anvayaclinic/clinicstock-backend/pkg/types"
)

type actor struct {
	UserID uuid.UUID
	Name   string
}

func actorFromRequest(r *http.Request) (actor, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return actor{UserID: id, Name: middleware.UserNameFromContext(r.Context())}, nil
}

func parseIDParam(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").
			WithDetails(map[string]any{"field": field})
	}
	return id, nil
}

// pageOf trims a limit+1 row fetch down to the page size and encodes the
// cursor of the last visible row when more rows remain.
func pageOf[T any](rows []T, limit int, cursorOf func(T) pagination.Cursor) types.Page {
	normalized := pagination.NormalizeLimit(limit)
	page := types.Page{}
	if len(rows) > normalized {
		rows = rows[:normalized]
		encoded := pagination.EncodeCursor(cursorOf(rows[len(rows)-1]))
		page.NextCursor = &encoded
	}
	page.Items = rows
	return page
}
