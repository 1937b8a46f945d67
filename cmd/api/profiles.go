package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type createProfilePayload struct {
	Username  string `json:"username" validate:"required,min=3,max=20"`
	Bio       string `json:"bio" validate:"max=500"`
	AvatarRef string `json:"avatar_ref" validate:"max=200"`
}

func (app *application) createProfileHandler(w http.ResponseWriter, r *http.Request) {
	var payload createProfilePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "profile.create", account, func(now time.Time) (any, error) {
		return app.engines.profiles.Create(account, payload.Username, payload.Bio, payload.AvatarRef, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusCreated, result)
}

type changeUsernamePayload struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
}

func (app *application) changeUsernameHandler(w http.ResponseWriter, r *http.Request) {
	var payload changeUsernamePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "profile.change_username", account, func(now time.Time) (any, error) {
		return app.engines.profiles.ChangeUsername(account, payload.Username, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	if account == "" {
		app.badRequestResponse(w, r, errors.New("account is required"))
		return
	}

	result, err := app.chain.View(func(now time.Time) (any, error) {
		return app.engines.profiles.Get(account)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, result)
}
