package router

import (
	"context"
	"net/http"
	"time"

	"library-backend/internal/application/eligibility"
	loansvc "library-backend/internal/application/loans"
	"library-backend/internal/application/returns"
	"library-backend/internal/application/signals"
	"library-backend/internal/application/stock"
	"library-backend/internal/config"
	"library-backend/internal/domain"
	"library-backend/internal/infrastructure/database"
	healthhandler "library-backend/internal/interfaces/handlers/health"
	loanhandler "library-backend/internal/interfaces/handlers/loans"
	"library-backend/internal/middleware"
	"library-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const flushLimit = 500

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp connects redis and postgres and builds the Fiber app.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	sessionHandler, rdb, err := middleware.Session(middleware.SessionConfig{
		Secret:   cfg.SessionSecret,
		RedisURL: cfg.RedisURL,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	}

	return newApp(cfg, db, rdb, sessionHandler), db, rdb, nil
}

// loanStack is the loan core wired against one database.
type loanStack struct {
	service   *loansvc.Service
	processor *returns.Processor
	outbox    *signals.Outbox
}

func newLoanStack(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *loanStack {
	ledger := &stock.Ledger{DB: db}
	checker := &eligibility.Checker{
		Directory: &eligibility.GormDirectory{DB: db},
		Policy: eligibility.Policy{
			MaxActiveLoans: cfg.Loans.MaxActiveLoans,
			ByPersonType: map[string]int{
				domain.PersonStudent: cfg.Loans.MaxActiveLoansStudent,
				domain.PersonTeacher: cfg.Loans.MaxActiveLoansTeacher,
			},
		},
	}
	svc := &loansvc.Service{
		DB:          db,
		Ledger:      ledger,
		Eligibility: checker,
		Policy: loansvc.Policy{
			LoanPeriodDays: cfg.Loans.PeriodDays,
			MaxQuantity:    cfg.Loans.MaxQuantity,
			Location:       cfg.Location,
		},
	}

	emitters := signals.Fanout{&signals.CatalogCallback{Catalog: ledger}}
	if rdb != nil {
		emitters = append(signals.Fanout{&signals.RedisStream{Rdb: rdb, Stream: cfg.SignalStream}}, emitters...)
	}
	outbox := &signals.Outbox{DB: db, Emitter: emitters}

	return &loanStack{
		service: svc,
		processor: &returns.Processor{
			DB:          db,
			Loans:       svc,
			Stock:       ledger,
			Outbox:      outbox,
			MaxAttempts: cfg.Loans.ReturnMaxAttempts,
			BaseDelay:   cfg.Loans.ReturnRetryBaseDelay,
		},
		outbox: outbox,
	}
}

func newApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client, session fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(session)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	if db == nil {
		return app
	}

	stack := newLoanStack(cfg, db, rdb)
	hh.DB = &gormDBPinger{db: db}
	hh.Loans = stack.service
	hh.Signals = stack.outbox

	// Signals left pending by a previous process.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if n, err := stack.outbox.Flush(ctx, flushLimit); err != nil {
		log.Warn().Err(err).Msg("Resource signal flush failed")
	} else if n > 0 {
		log.Info().Int("dispatched", n).Msg("Pending resource signals flushed")
	}
	cancel()

	flushCtx, stopFlush := context.WithCancel(context.Background())
	go stack.outbox.Run(flushCtx, cfg.SignalFlushInterval, flushLimit)
	app.Hooks().OnShutdown(func() error {
		stopFlush()
		return nil
	})

	lh := &loanhandler.Handlers{
		Loans:    stack.service,
		Returns:  stack.processor,
		Location: cfg.Location,
	}
	lg := app.Group("/api/v1/loans", middleware.RequireAuth())
	lh.Register(lg,
		middleware.AuthorizePermission(constants.ViewLoans),
		middleware.AuthorizePermission(constants.ManageLoans),
		middleware.AuthorizePermission(constants.CloseLoans),
	)

	return app
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
