package main

import (
	"net/http"
	"strconv"
	"time"

	"repute/internal/access"
	"repute/internal/gamify"

	"github.com/go-chi/chi/v5"
)

func (app *application) getStatsHandler(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	result, err := app.chain.View(func(now time.Time) (any, error) {
		return app.engines.gamify.Stats(account)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) listBadgesHandler(w http.ResponseWriter, r *http.Request) {
	result, err := app.chain.View(func(now time.Time) (any, error) {
		return app.engines.gamify.Badges(), nil
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) getEarnedBadgesHandler(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	result, err := app.chain.View(func(now time.Time) (any, error) {
		return app.engines.gamify.EarnedBadges(account), nil
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) getLeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	board, err := gamify.ParseBoard(chi.URLParam(r, "board"))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	result, viewErr := app.chain.View(func(now time.Time) (any, error) {
		return app.engines.gamify.Leaderboard(board, limit), nil
	})
	if viewErr != nil {
		app.internalServerError(w, r, viewErr)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) dailyCheckInHandler(w http.ResponseWriter, r *http.Request) {
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "gamify.daily_checkin", account, func(now time.Time) (any, error) {
		return app.engines.gamify.DailyCheckIn(account, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

type addBadgePayload struct {
	ID          string `json:"id" validate:"required,max=40"`
	Name        string `json:"name" validate:"required,max=60"`
	Description string `json:"description" validate:"max=200"`
	MinPoints   int64  `json:"min_points" validate:"min=0"`
	MinReviews  int    `json:"min_reviews" validate:"min=0"`
	MinStreak   int    `json:"min_streak" validate:"min=0"`
}

// addBadgeHandler is admin-only.
func (app *application) addBadgeHandler(w http.ResponseWriter, r *http.Request) {
	var payload addBadgePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "gamify.add_badge", account, func(now time.Time) (any, error) {
		if err := app.access.Require(account, access.RoleAdmin); err != nil {
			return nil, err
		}
		return app.engines.gamify.AddBadge(gamify.Badge{
			ID:          payload.ID,
			Name:        payload.Name,
			Description: payload.Description,
			MinPoints:   payload.MinPoints,
			MinReviews:  payload.MinReviews,
			MinStreak:   payload.MinStreak,
		})
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusCreated, result)
}

type startSeasonPayload struct {
	Duration     string `json:"duration" validate:"required"`
	TotalRewards int64  `json:"total_rewards" validate:"required,min=1"`
}

// startSeasonHandler is admin-only.
func (app *application) startSeasonHandler(w http.ResponseWriter, r *http.Request) {
	var payload startSeasonPayload
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

	result, err := app.chain.Execute(r.Context(), "gamify.start_season", account, func(now time.Time) (any, error) {
		if err := app.access.Require(account, access.RoleAdmin); err != nil {
			return nil, err
		}
		return app.engines.gamify.StartSeason(duration, payload.TotalRewards, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusCreated, result)
}

// endSeasonHandler is admin-only.
func (app *application) endSeasonHandler(w http.ResponseWriter, r *http.Request) {
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "gamify.end_season", account, func(now time.Time) (any, error) {
		if err := app.access.Require(account, access.RoleAdmin); err != nil {
			return nil, err
		}
		return app.engines.gamify.EndSeason(now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) getCurrentSeasonHandler(w http.ResponseWriter, r *http.Request) {
	result, err := app.chain.View(func(now time.Time) (any, error) {
		return app.engines.gamify.CurrentSeason()
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}
