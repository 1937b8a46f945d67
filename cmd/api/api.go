package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repute/internal/access"
	"repute/internal/auth"
	"repute/internal/journal"
	"repute/internal/ledger"
	"repute/internal/ratelimiter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type application struct {
	config        config
	chain         *ledger.Chain
	engines       engines
	access        *access.Control
	journal       *journal.Store
	logger        *zap.SugaredLogger
	authenticator auth.Authenticator
	ratelimiter   ratelimiter.Limiter
	receipts      *receiptGenerator
}

type config struct {
	addr        string
	env         string
	frontendURL string
	db          dbConfig
	auth        authConfig
	ratelimiter ratelimiter.Config
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}

type tokenConfig struct {
	secret          string
	refreshSecret   string
	accessTokenExp  time.Duration
	refreshTokenExp time.Duration
	iss             string
}

type basicConfig struct {
	user     string
	passHash string
}

type dbConfig struct {
	addr         string
	maxOpenConns int
	maxIdleTime  string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	//Set a timeout value on the request context (ctx), that will signal through ctx.Done() that the request has timed out
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)

		r.Route("/authentication", func(r chi.Router) {
			r.With(app.BasicAuthMiddleware()).Post("/token", app.createTokenHandler)
			r.Post("/refresh", app.refreshTokenHandler)
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/{account}", app.getProfileHandler)
			r.Group(func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware, app.RateLimiterMiddleware)
				r.Post("/", app.createProfileHandler)
				r.Patch("/username", app.changeUsernameHandler)
			})
		})

		r.Route("/businesses", func(r chi.Router) {
			r.Get("/", app.listBusinessesHandler)
			r.Get("/{businessID}", app.getBusinessHandler)
			r.Get("/{businessID}/rating", app.getBusinessRatingHandler)
			r.Get("/{businessID}/reviews", app.getBusinessReviewsHandler)

			r.Group(func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware, app.RateLimiterMiddleware)
				r.Post("/", app.registerBusinessHandler)
				r.Post("/{businessID}/verify", app.verifyBusinessHandler)
				r.Post("/{businessID}/reviews", app.createReviewHandler)
				r.Patch("/{businessID}/reviews", app.updateReviewHandler)
				r.Post("/{businessID}/reviews/{reviewer}/vote", app.voteReviewHandler)
				r.Post("/{businessID}/reviews/{reviewer}/response", app.ownerResponseHandler)
				r.Post("/{businessID}/reviews/{reviewer}/flag", app.flagReviewHandler)
				r.Post("/{businessID}/reviews/{reviewer}/archive", app.archiveReviewHandler)
			})
		})

		r.Route("/moderation", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Post("/bans/{account}", app.banUserHandler)
			r.Delete("/bans/{account}", app.unbanUserHandler)
		})

		r.Route("/reputation", func(r chi.Router) {
			r.Get("/{account}", app.getReputationHandler)
			r.Get("/{account}/voting-power", app.getVotingPowerHandler)
			r.Group(func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware, app.RateLimiterMiddleware)
				r.Post("/endorse", app.endorseUserHandler)
				r.Post("/verify", app.verifyUserHandler)
				r.Post("/penalize", app.penalizeUserHandler)
				r.Post("/accuracy", app.votingAccuracyHandler)
			})
		})

		r.Route("/gamification", func(r chi.Router) {
			r.Get("/stats/{account}", app.getStatsHandler)
			r.Get("/badges", app.listBadgesHandler)
			r.Get("/badges/{account}", app.getEarnedBadgesHandler)
			r.Get("/leaderboard/{board}", app.getLeaderboardHandler)
			r.Get("/seasons/current", app.getCurrentSeasonHandler)
			r.Group(func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware, app.RateLimiterMiddleware)
				r.Post("/checkin", app.dailyCheckInHandler)
				r.Post("/badges", app.addBadgeHandler)
				r.Post("/seasons", app.startSeasonHandler)
				r.Post("/seasons/end", app.endSeasonHandler)
			})
		})

		r.Route("/rewards", func(r chi.Router) {
			r.Get("/pools", app.getPoolsHandler)
			r.Get("/supply", app.getSupplyHandler)
			r.Group(func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware, app.RateLimiterMiddleware)
				r.Get("/balance", app.getBalanceHandler)
				r.Post("/claim", app.claimRewardsHandler)
				r.Post("/transfer", app.transferHandler)
				r.Get("/stake", app.getStakeHandler)
				r.Post("/stake", app.stakeHandler)
				r.Post("/unstake", app.unstakeHandler)
				r.Get("/vesting", app.getVestingHandler)
				r.Post("/vesting", app.createVestingHandler)
				r.Post("/vesting/{index}/release", app.releaseVestingHandler)
				r.Post("/vesting/{account}/{index}/revoke", app.revokeVestingHandler)
				r.Post("/blacklist/{account}", app.blacklistHandler)
				r.Delete("/blacklist/{account}", app.unblacklistHandler)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(app.BasicAuthMiddleware())
			r.Post("/roles", app.grantRoleHandler)
			r.Delete("/roles", app.revokeRoleHandler)
			r.Get("/ledger/events", app.getLedgerEventsHandler)
		})
	})
	return r
}

func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"status": "ok",
		"env":    app.config.env,
		"seq":    app.chain.Seq(),
	}
	if err := app.jsonResponse(w, http.StatusOK, data); err != nil {
		app.internalServerError(w, r, err)
	}
}

// snapshotters lists every component whose state is persisted across
// restarts, keyed by the journal's component name.
func (app *application) snapshotters() map[string]interface {
	Snapshot() ([]byte, error)
	Restore([]byte) error
} {
	return map[string]interface {
		Snapshot() ([]byte, error)
		Restore([]byte) error
	}{
		"access":     app.access,
		"profile":    app.engines.profiles,
		"registry":   app.engines.registry,
		"reputation": app.engines.reputation,
		"gamify":     app.engines.gamify,
		"rewards":    app.engines.rewards,
	}
}

func (app *application) saveSnapshots(ctx context.Context) {
	if app.journal == nil {
		return
	}
	seq := app.chain.Seq()
	for name, component := range app.snapshotters() {
		state, err := component.Snapshot()
		if err != nil {
			app.logger.Errorw("snapshot failed", "component", name, "error", err)
			continue
		}
		if err := app.journal.SaveSnapshot(ctx, name, seq, state); err != nil {
			app.logger.Errorw("snapshot save failed", "component", name, "error", err)
		}
	}
}

func (app *application) loadSnapshots(ctx context.Context) error {
	if app.journal == nil {
		return nil
	}
	var maxSeq uint64
	for name, component := range app.snapshotters() {
		seq, state, err := app.journal.LoadSnapshot(ctx, name)
		if errors.Is(err, ledger.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := component.Restore(state); err != nil {
			return err
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	app.chain.SetSeq(maxSeq)
	return nil
}

func (app *application) run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())
		app.saveSnapshots(ctx)

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr)
	return nil
}
