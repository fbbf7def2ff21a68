// Package server wires the authentication core from configuration: database,
// Redis ledger, audit dispatcher, token issuer and services. It also runs the
// background session janitor and reloads configuration on SIGHUP.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/rosedal2/condoauth/internal/audit"
	"github.com/rosedal2/condoauth/internal/cryptox"
	"github.com/rosedal2/condoauth/internal/logging"
	"github.com/rosedal2/condoauth/internal/password"
	"github.com/rosedal2/condoauth/internal/server/auth"
	"github.com/rosedal2/condoauth/internal/server/config"
	"github.com/rosedal2/condoauth/internal/server/repositories/repomanager"
	"github.com/rosedal2/condoauth/internal/server/services"
	"github.com/rosedal2/condoauth/internal/server/tempgrant"
	"github.com/rosedal2/condoauth/internal/totp"
)

type App struct {
	provider *config.Provider
	logger   logging.Logger

	db    *sql.DB
	redis redis.UniversalClient
	audit *audit.Dispatcher

	Repos      repomanager.RepositoryManager
	Auth       *services.AuthService
	Signatures *services.SignatureVault
}

// OpenDB opens the PostgreSQL pool through the pgx stdlib driver and checks
// it is reachable.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

func NewRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// NewApp builds every component from the provider's current config and
// runs the database migrations.
func NewApp(ctx context.Context, provider *config.Provider, logger logging.Logger) (*App, error) {
	cfg := provider.Current()

	db, err := OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	rdb := NewRedisClient(cfg)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("redis error: %w", err)
	}

	s3c, err := services.NewS3Client(ctx, cfg)
	if err != nil {
		_ = db.Close()
		_ = rdb.Close()
		return nil, err
	}

	app, err := newApp(provider, logger, db, rdb, repos, s3c)
	if err != nil {
		_ = db.Close()
		_ = rdb.Close()
		return nil, err
	}
	return app, nil
}

func newApp(provider *config.Provider, logger logging.Logger, db *sql.DB, rdb redis.UniversalClient,
	repos repomanager.RepositoryManager, store services.ObjectStore) (*App, error) {

	cfg := provider.Current()

	hasher, err := password.NewHasher(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	issuer := auth.NewIssuer(auth.IssuerConfig{
		AccessSecret:  []byte(cfg.AccessSecret),
		RefreshSecret: []byte(cfg.RefreshSecret),
		Lifetimes: func() auth.Lifetimes {
			c := provider.Current()
			return auth.Lifetimes{Access: c.AccessTTL, Refresh: c.RefreshTTL, Temp: c.TempTTL}
		},
	})

	dispatcher := audit.NewDispatcher(repos.Audit(db), audit.DefaultBufferSize, logger)

	authService := services.NewAuthService(services.AuthDeps{
		DB:     db,
		Repos:  repos,
		Hasher: hasher,
		TOTP:   totp.New(cfg.TOTPIssuer),
		Issuer: issuer,
		Grants: tempgrant.NewRedisLedger(rdb),
		Audit:  dispatcher,
		Log:    logger,
		Settings: func() services.Settings {
			return services.SettingsFromConfig(provider.Current())
		},
	})

	vault := services.NewSignatureVault(store, cfg.S3Bucket, cryptox.NewEngine(provider.EncryptionKey), logger)

	return &App{
		provider:   provider,
		logger:     logger,
		db:         db,
		redis:      rdb,
		audit:      dispatcher,
		Repos:      repos,
		Auth:       authService,
		Signatures: vault,
	}, nil
}

func (app *App) DB() *sql.DB { return app.db }

// Close flushes pending audit entries and releases connections.
func (app *App) Close() error {
	app.audit.Close()

	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	return errors.Join(errs...)
}

func (app *App) watchReload(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := app.provider.Reload(); err != nil {
				app.logger.Warn(ctx, "config reload failed, keeping previous config", "error", err)
				continue
			}
			app.logger.Info(ctx, "config reloaded")
		}
	}
}

// Run starts the background workers and blocks until ctx is cancelled or
// the process receives SIGINT, SIGTERM or SIGQUIT.
func (app *App) Run(ctx context.Context) {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	app.logger.Info(ctx, "Starting app...")

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.watchReload(ctx)
	}()
	go func() {
		defer wg.Done()
		j := &janitor{
			purge:    app.Auth.PurgeExpiredSessions,
			interval: func() time.Duration { return app.provider.Current().SessionPurgeInterval },
			now:      time.Now,
			log:      app.logger,
		}
		j.run(ctx)
	}()

	wg.Wait()
	app.logger.Info(context.Background(), "app stopped")
}
