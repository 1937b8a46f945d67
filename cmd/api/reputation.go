package main

import (
	"net/http"
	"time"

	"repute/internal/access"
	"repute/internal/reputation"

	"github.com/go-chi/chi/v5"
)

func (app *application) getReputationHandler(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	result, err := app.chain.View(func(now time.Time) (any, error) {
		return app.engines.reputation.Get(account, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) getVotingPowerHandler(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	result, err := app.chain.View(func(now time.Time) (any, error) {
		return map[string]int64{"voting_power": app.engines.reputation.VotingPower(account, now)}, nil
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

type endorsePayload struct {
	Account string `json:"account" validate:"required"`
}

func (app *application) endorseUserHandler(w http.ResponseWriter, r *http.Request) {
	var payload endorsePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "reputation.endorse", account, func(now time.Time) (any, error) {
		return app.engines.reputation.EndorseUser(account, payload.Account, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

type verifyUserPayload struct {
	Account string `json:"account" validate:"required"`
	Kind    string `json:"kind" validate:"required,oneof=identity business_owner expert community"`
}

// verifyUserHandler is admin-only.
func (app *application) verifyUserHandler(w http.ResponseWriter, r *http.Request) {
	var payload verifyUserPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "reputation.verify", account, func(now time.Time) (any, error) {
		if err := app.access.Require(account, access.RoleAdmin); err != nil {
			return nil, err
		}
		return app.engines.reputation.VerifyUser(payload.Account, reputation.VerificationKind(payload.Kind), now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

type penalizePayload struct {
	Account  string `json:"account" validate:"required"`
	Amount   int64  `json:"amount" validate:"required,min=1"`
	Duration string `json:"duration" validate:"required"`
	Reason   string `json:"reason" validate:"required,max=500"`
}

// penalizeUserHandler is moderator-only.
func (app *application) penalizeUserHandler(w http.ResponseWriter, r *http.Request) {
	var payload penalizePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	duration, err := time.ParseDuration(payload.Duration)
	if err != nil || duration <= 0 {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "reputation.penalize", account, func(now time.Time) (any, error) {
		if err := app.access.Require(account, access.RoleModerator); err != nil {
			return nil, err
		}
		return app.engines.reputation.PenalizeUser(payload.Account, payload.Amount, duration, payload.Reason, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

type votingAccuracyPayload struct {
	Voter   string `json:"voter" validate:"required"`
	Aligned *bool  `json:"aligned" validate:"required"`
}

// votingAccuracyHandler feeds consensus alignment back into voting power.
// Distributor-only: it is called by the off-core consensus job.
func (app *application) votingAccuracyHandler(w http.ResponseWriter, r *http.Request) {
	var payload votingAccuracyPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "reputation.voting_accuracy", account, func(now time.Time) (any, error) {
		if err := app.access.Require(account, access.RoleDistributor); err != nil {
			return nil, err
		}
		return app.engines.reputation.RecordVotingAccuracy(payload.Voter, *payload.Aligned, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}
