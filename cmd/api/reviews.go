package main

import (
	"net/http"
	"time"

	"repute/internal/access"

	"github.com/go-chi/chi/v5"
)

type createReviewPayload struct {
	Rating    int      `json:"rating" validate:"required,min=1,max=5"`
	Comment   string   `json:"comment" validate:"required,max=1000"`
	Tags      []string `json:"tags" validate:"max=5,dive,min=1,max=30"`
	ImageRefs []string `json:"image_refs" validate:"max=5"`
}

func (app *application) createReviewHandler(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")

	var payload createReviewPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "registry.add_review", account, func(now time.Time) (any, error) {
		return app.engines.registry.AddReview(businessID, account, payload.Rating, payload.Comment, payload.Tags, payload.ImageRefs, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusCreated, result)
}

type updateReviewPayload struct {
	Rating  int      `json:"rating" validate:"required,min=1,max=5"`
	Comment string   `json:"comment" validate:"required,max=1000"`
	Tags    []string `json:"tags" validate:"max=5,dive,min=1,max=30"`
}

func (app *application) updateReviewHandler(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")

	var payload updateReviewPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "registry.update_review", account, func(now time.Time) (any, error) {
		return app.engines.registry.UpdateReview(businessID, account, payload.Rating, payload.Comment, payload.Tags, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, result)
}

type voteReviewPayload struct {
	Upvote *bool `json:"upvote" validate:"required"`
}

func (app *application) voteReviewHandler(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	reviewer := chi.URLParam(r, "reviewer")

	var payload voteReviewPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "registry.vote_review", account, func(now time.Time) (any, error) {
		return app.engines.registry.VoteReview(businessID, reviewer, account, *payload.Upvote, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, result)
}

type ownerResponsePayload struct {
	Text string `json:"text" validate:"required,max=1000"`
}

func (app *application) ownerResponseHandler(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	reviewer := chi.URLParam(r, "reviewer")

	var payload ownerResponsePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "registry.owner_response", account, func(now time.Time) (any, error) {
		return app.engines.registry.AddOwnerResponse(businessID, reviewer, account, payload.Text, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, result)
}

// flagReviewHandler is moderator-only.
func (app *application) flagReviewHandler(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	reviewer := chi.URLParam(r, "reviewer")
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "registry.flag_review", account, func(now time.Time) (any, error) {
		if err := app.access.Require(account, access.RoleModerator); err != nil {
			return nil, err
		}
		return app.engines.registry.FlagReview(businessID, reviewer, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, result)
}

// archiveReviewHandler is admin-only.
func (app *application) archiveReviewHandler(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	reviewer := chi.URLParam(r, "reviewer")
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "registry.archive_review", account, func(now time.Time) (any, error) {
		if err := app.access.Require(account, access.RoleAdmin); err != nil {
			return nil, err
		}
		return app.engines.registry.ArchiveReview(businessID, reviewer, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, result)
}
