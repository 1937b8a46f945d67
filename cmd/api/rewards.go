package main

import (
	"net/http"
	"strconv"
	"time"

	"repute/internal/access"

	"github.com/go-chi/chi/v5"
)

func (app *application) getBalanceHandler(w http.ResponseWriter, r *http.Request) {
	account := getAccountFromContext(r)

	result, err := app.chain.View(func(now time.Time) (any, error) {
		return map[string]uint64{
			"balance":   app.engines.rewards.BalanceOf(account),
			"claimable": app.engines.rewards.ClaimableOf(account),
		}, nil
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) claimRewardsHandler(w http.ResponseWriter, r *http.Request) {
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "rewards.claim", account, func(now time.Time) (any, error) {
		return app.engines.rewards.Claim(account, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]any{
		"claim":   result,
		"receipt": app.receipts.Generate(account),
	})
}

type transferPayload struct {
	To     string `json:"to" validate:"required"`
	Amount uint64 `json:"amount" validate:"required,min=1"`
}

func (app *application) transferHandler(w http.ResponseWriter, r *http.Request) {
	var payload transferPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	_, err := app.chain.Execute(r.Context(), "rewards.transfer", account, func(now time.Time) (any, error) {
		return map[string]any{"to": payload.To, "amount": payload.Amount},
			app.engines.rewards.Transfer(account, payload.To, payload.Amount)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "transfer complete"})
}

type stakePayload struct {
	Amount       uint64 `json:"amount" validate:"required,min=1"`
	LockDuration string `json:"lock_duration" validate:"required"`
}

func (app *application) stakeHandler(w http.ResponseWriter, r *http.Request) {
	var payload stakePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	lock, err := time.ParseDuration(payload.LockDuration)
	if err != nil || lock <= 0 {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "rewards.stake", account, func(now time.Time) (any, error) {
		return app.engines.rewards.Stake(account, payload.Amount, lock, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusCreated, result)
}

func (app *application) unstakeHandler(w http.ResponseWriter, r *http.Request) {
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "rewards.unstake", account, func(now time.Time) (any, error) {
		return app.engines.rewards.Unstake(account, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) getStakeHandler(w http.ResponseWriter, r *http.Request) {
	account := getAccountFromContext(r)

	result, err := app.chain.View(func(now time.Time) (any, error) {
		return app.engines.rewards.StakeOf(account)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) getPoolsHandler(w http.ResponseWriter, r *http.Request) {
	result, err := app.chain.View(func(now time.Time) (any, error) {
		community, staking := app.engines.rewards.Pools()
		return map[string]any{"community": community, "staking": staking}, nil
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) getSupplyHandler(w http.ResponseWriter, r *http.Request) {
	result, err := app.chain.View(func(now time.Time) (any, error) {
		return app.engines.rewards.Supply(), nil
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) getVestingHandler(w http.ResponseWriter, r *http.Request) {
	account := getAccountFromContext(r)

	result, err := app.chain.View(func(now time.Time) (any, error) {
		return app.engines.rewards.VestingOf(account), nil
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

type createVestingPayload struct {
	Beneficiary string `json:"beneficiary" validate:"required"`
	Total       uint64 `json:"total" validate:"required,min=1"`
	Cliff       string `json:"cliff" validate:"required"`
	Duration    string `json:"duration" validate:"required"`
	Revocable   bool   `json:"revocable"`
}

// createVestingHandler is admin-only, used for initial allocations.
func (app *application) createVestingHandler(w http.ResponseWriter, r *http.Request) {
	var payload createVestingPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	cliff, err := time.ParseDuration(payload.Cliff)
	if err != nil || cliff < 0 {
		app.badRequestResponse(w, r, err)
		return
	}
	duration, err := time.ParseDuration(payload.Duration)
	if err != nil || duration <= 0 {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "rewards.create_vesting", account, func(now time.Time) (any, error) {
		if err := app.access.Require(account, access.RoleAdmin); err != nil {
			return nil, err
		}
		return app.engines.rewards.CreateVestingSchedule(payload.Beneficiary, payload.Total, now, cliff, duration, payload.Revocable)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusCreated, result)
}

func (app *application) releaseVestingHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "rewards.release_vesting", account, func(now time.Time) (any, error) {
		return app.engines.rewards.ReleaseVesting(account, index, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

// revokeVestingHandler is admin-only.
func (app *application) revokeVestingHandler(w http.ResponseWriter, r *http.Request) {
	beneficiary := chi.URLParam(r, "account")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	account := getAccountFromContext(r)

	result, err := app.chain.Execute(r.Context(), "rewards.revoke_vesting", account, func(now time.Time) (any, error) {
		if err := app.access.Require(account, access.RoleAdmin); err != nil {
			return nil, err
		}
		return app.engines.rewards.RevokeVesting(beneficiary, index, now)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

// blacklistHandler is moderator-only.
func (app *application) blacklistHandler(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "account")
	account := getAccountFromContext(r)

	_, err := app.chain.Execute(r.Context(), "rewards.blacklist", account, func(now time.Time) (any, error) {
		if err := app.access.Require(account, access.RoleModerator); err != nil {
			return nil, err
		}
		return map[string]string{"blacklisted": target}, app.engines.rewards.Blacklist(target)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "account blacklisted"})
}

func (app *application) unblacklistHandler(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "account")
	account := getAccountFromContext(r)

	_, err := app.chain.Execute(r.Context(), "rewards.unblacklist", account, func(now time.Time) (any, error) {
		if err := app.access.Require(account, access.RoleModerator); err != nil {
			return nil, err
		}
		return map[string]string{"unblacklisted": target}, app.engines.rewards.Unblacklist(target)
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "account removed from blacklist"})
}
