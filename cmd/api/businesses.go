package main

import (
	"errors"
	"net/http"
	"time"

	"repute/internal/access"

	"github.com/go-chi/chi/v5"
)

type registerBusinessPayload struct {
	Name        string `json:"name" validate:"required,max=120"`
	Category    string `json:"category" validate:"required,max=60"`
	Location    string `json:"location" validate:"max=200"`
	Description string `json:"description" validate:"max=1000"`
}

func (app *application) registerBusinessHandler(w http.ResponseWriter, r *http.Request) {
	var payload registerBusinessPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "registry.register_business", account, func(now time.Time) (any, error) {
		return app.engines.registry.RegisterBusiness(account, payload.Name, payload.Category, payload.Location, payload.Description, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusCreated, result)
}

func (app *application) listBusinessesHandler(w http.ResponseWriter, r *http.Request) {
	result, err := app.chain.View(func(now time.Time) (any, error) {
		return app.engines.registry.BusinessIDs(), nil
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) getBusinessHandler(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")

	result, err := app.chain.View(func(now time.Time) (any, error) {
		return app.engines.registry.GetBusiness(businessID)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) getBusinessRatingHandler(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")

	result, err := app.chain.View(func(now time.Time) (any, error) {
		average, err := app.engines.registry.AverageRating(businessID)
		if err != nil {
			return nil, err
		}
		// Fixed-point with two implied decimals: 450 means 4.50 stars.
		return map[string]int64{"average_rating": average}, nil
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

// verifyBusinessHandler is admin-only.
func (app *application) verifyBusinessHandler(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "registry.verify_business", account, func(now time.Time) (any, error) {
		if err := app.access.Require(account, access.RoleAdmin); err != nil {
			return nil, err
		}
		return app.engines.registry.VerifyBusiness(businessID)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) getBusinessReviewsHandler(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	includeArchived := r.URL.Query().Get("include_archived") == "true"

	result, err := app.chain.View(func(now time.Time) (any, error) {
		reviews, err := app.engines.registry.Reviews(businessID, includeArchived)
		if err != nil {
			return nil, err
		}
		average, err := app.engines.registry.AverageRating(businessID)
		if err != nil {
			return nil, err
		}

		// Attach reviewer display names where a profile exists.
		usernames := make(map[string]string, len(reviews))
		for _, review := range reviews {
			if p, err := app.engines.profiles.Get(review.Reviewer); err == nil {
				usernames[review.Reviewer] = p.Username
			}
		}
		return map[string]any{
			"reviews":        reviews,
			"usernames":      usernames,
			"total_reviews":  len(reviews),
			"average_rating": average,
		}, nil
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) banUserHandler(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "account")
	if target == "" {
		app.badRequestResponse(w, r, errors.New("account is required"))
		return
	}
	account := getAccountFromContext(r)

	_, err := app.chain.Execute(r.Context(), "registry.ban_user", account, func(now time.Time) (any, error) {
		if err := app.access.Require(account, access.RoleModerator); err != nil {
			return nil, err
		}
		return map[string]string{"banned": target}, app.engines.registry.BanUser(target)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "account banned"})
}

func (app *application) unbanUserHandler(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "account")
	account := getAccountFromContext(r)

	_, err := app.chain.Execute(r.Context(), "registry.unban_user", account, func(now time.Time) (any, error) {
		if err := app.access.Require(account, access.RoleModerator); err != nil {
			return nil, err
		}
		return map[string]string{"unbanned": target}, app.engines.registry.UnbanUser(target)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "account unbanned"})
}
