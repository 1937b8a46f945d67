package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"repute/internal/access"
	"repute/internal/auth"
	"repute/internal/db"
	"repute/internal/gamify"
	"repute/internal/journal"
	"repute/internal/ledger"
	"repute/internal/profile"
	"repute/internal/ratelimiter"
	"repute/internal/registry"
	"repute/internal/reputation"
	"repute/internal/rewards"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	defaultRequests := 200
	defaultEnabled := false

	requestsPerTimeFrame := defaultRequests
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsedVal, err := strconv.Atoi(val); err == nil {
			requestsPerTimeFrame = parsedVal
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", defaultRequests)
		}
	}

	enabled := defaultEnabled
	if val, exists := os.LookupEnv("RATE_LIMITER_ENABLED"); exists {
		if parsedVal, err := strconv.ParseBool(val); err == nil {
			enabled = parsedVal
		} else {
			fmt.Println("Invalid RATE_LIMITER_ENABLED, defaulting to", defaultEnabled)
		}
	}

	return ratelimiter.Config{
		RequestsPerTimeFrame: requestsPerTimeFrame,
		TimeFrame:            5 * time.Second,
		Enabled:              enabled,
	}
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
	level := zapcore.InfoLevel
	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)

	logger := zap.New(core)
	return logger.Sugar(), nil
}

var version = "0.9.0"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Fatalf("Error loading .env file: %v", err)
	}

	maxOpenConnsStr := os.Getenv("DB_MAX_OPEN_CONNS")
	maxOpenConns, err := strconv.Atoi(maxOpenConnsStr)
	if err != nil {
		log.Fatalf("Invalid value for DB_MAX_OPEN_CONNS: %v", err)
	}

	cfg := config{
		addr:        os.Getenv("ADDR"),
		env:         os.Getenv("ENV"),
		frontendURL: os.Getenv("FRONTEND_URL"),
		db: dbConfig{
			addr:         os.Getenv("DB_ADDR"),
			maxOpenConns: maxOpenConns,
			maxIdleTime:  os.Getenv("DB_MAX_IDLE_TIME"),
		},
		auth: authConfig{
			basic: basicConfig{
				user:     os.Getenv("BASIC_AUTH_USER"),
				passHash: os.Getenv("BASIC_AUTH_PASS_HASH"),
			},
			token: tokenConfig{
				secret:          os.Getenv("AUTH_TOKEN_SECRET"),
				refreshSecret:   os.Getenv("AUTH_REFRESH_SECRET"),
				accessTokenExp:  time.Hour * 24 * 3,
				refreshTokenExp: time.Hour * 24 * 9,
				iss:             "repute",
			},
		},
		ratelimiter: LoadRateLimiterConfig(),
	}

	logger, err := NewLogger()
	if err != nil {
		log.Fatalf("Could not initialize logger: %v", err)
	}
	defer logger.Sync()

	pool, err := db.New(cfg.db.addr, int32(cfg.db.maxOpenConns), cfg.db.maxIdleTime)
	if err != nil {
		logger.Fatalw("database connection failed", "error", err)
	}
	defer pool.Close()
	logger.Infow("database connection pool established")

	journalStore := journal.NewStore(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := journalStore.EnsureSchema(ctx); err != nil {
		logger.Fatalw("journal schema setup failed", "error", err)
	}

	chain := ledger.NewChain(journalStore, logger)

	// Engines, wired bottom-up: rewards has no dependencies, gamification
	// notifies rewards, the review registry notifies gamification,
	// reputation and the profile counters.
	rewardLedger := rewards.NewLedger(time.Now())
	gamifyEngine := gamify.NewEngine(rewardLedger, logger)
	reputationEngine := reputation.NewEngine()
	profileRegistry := profile.NewRegistry()
	reviewRegistry := registry.New(
		pointsAwarder{engine: gamifyEngine},
		reputationSink{engine: reputationEngine},
		profileRegistry,
		logger,
	)

	app := &application{
		config: cfg,
		chain:  chain,
		engines: engines{
			profiles:   profileRegistry,
			registry:   reviewRegistry,
			reputation: reputationEngine,
			gamify:     gamifyEngine,
			rewards:    rewardLedger,
		},
		access:  access.NewControl(),
		journal: journalStore,
		logger:  logger,
		authenticator: auth.NewJWTAuthenticator(
			cfg.auth.token.secret,
			cfg.auth.token.refreshSecret,
			"repute",
			cfg.auth.token.iss,
			cfg.auth.token.accessTokenExp,
			cfg.auth.token.refreshTokenExp,
		),
		ratelimiter: ratelimiter.NewFixedWindowLimiter(
			cfg.ratelimiter.RequestsPerTimeFrame,
			cfg.ratelimiter.TimeFrame,
		),
		receipts: newReceiptGenerator(os.Getenv("RECEIPT_SECRET")),
	}

	if err := app.loadSnapshots(ctx); err != nil {
		logger.Fatalw("snapshot restore failed", "error", err)
	}
	logger.Infow("ledger state restored", "seq", chain.Seq(), "version", version)

	if adminAccount := os.Getenv("ADMIN_ACCOUNT"); adminAccount != "" {
		if err := app.access.Grant(adminAccount, access.RoleAdmin, "bootstrap", time.Now()); err != nil {
			logger.Fatalw("admin bootstrap failed", "error", err)
		}
	}

	mux := app.mount()
	logger.Fatal(app.run(mux))
}
