package main

import (
	"net/http"
	"strconv"
	"time"

	"repute/internal/access"
)

type rolePayload struct {
	Account string `json:"account" validate:"required"`
	Role    string `json:"role" validate:"required,oneof=admin moderator distributor"`
}

func (app *application) grantRoleHandler(w http.ResponseWriter, r *http.Request) {
	var payload rolePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	role, err := access.ParseRole(payload.Role)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	_, err = app.chain.Execute(r.Context(), "access.grant", payload.Account, func(now time.Time) (any, error) {
		return map[string]string{"account": payload.Account, "role": payload.Role},
			app.access.Grant(payload.Account, role, app.config.auth.basic.user, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusCreated, map[string]string{"message": "role granted"})
}

func (app *application) revokeRoleHandler(w http.ResponseWriter, r *http.Request) {
	var payload rolePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	role, err := access.ParseRole(payload.Role)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	_, err = app.chain.Execute(r.Context(), "access.revoke", payload.Account, func(now time.Time) (any, error) {
		return map[string]string{"account": payload.Account, "role": payload.Role},
			app.access.Revoke(payload.Account, role)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "role revoked"})
}

func (app *application) getLedgerEventsHandler(w http.ResponseWriter, r *http.Request) {
	if app.journal == nil {
		app.jsonResponse(w, http.StatusOK, []any{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	events, err := app.journal.Events(r.Context(), limit, offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, events)
}
