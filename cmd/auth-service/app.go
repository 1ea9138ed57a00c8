package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-auth-service"
	"github.com/goliatone/go-auth-service/activitymap"
	"github.com/goliatone/go-auth-service/config"
	"github.com/goliatone/go-auth-service/middleware/jwtware"
	"github.com/goliatone/go-auth-service/repository"
)

type App struct {
	cfg    *config.BaseConfig
	logger *glog.BaseLogger

	db     *bun.DB
	redis  redis.UniversalClient
	repo   *repository.Manager
	tokens *auth.TokenService
	mailer auth.EmailSender

	authService  *auth.AuthService
	usersService *auth.UsersService

	srv *fiber.App
}

func (a *App) Config() *config.BaseConfig {
	return a.cfg
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func (a *App) SetMailer(mailer auth.EmailSender) *App {
	a.mailer = mailer
	return a
}

// WithPersistence opens the configured database and applies migrations
func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.Config().GetPersistence()
	logger := app.GetLogger("persistence")

	var db *bun.DB
	switch cfg.GetDriver() {
	case config.DriverPostgres:
		sqldb, err := sql.Open("pgx", cfg.GetDSN())
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to open postgres")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.GetDSN())
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to open sqlite")
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}

	if n := cfg.GetMaxOpenConns(); n > 0 {
		db.SetMaxOpenConns(n)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.GetPingTimeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return errors.Wrap(err, errors.CategoryInternal, "database is not reachable").
			WithMetadata(map[string]any{"driver": cfg.GetDriver()})
	}

	if cfg.GetMigrateOnStart() {
		group, err := repository.Migrate(ctx, db)
		if err != nil {
			_ = db.Close()
			return err
		}
		if group.IsZero() {
			logger.Info("database is up to date")
		} else {
			logger.Info("migrated database", "group", group.String())
		}
	}

	app.db = db
	app.repo = repository.NewManager(db)
	app.repo.MustValidate()

	return nil
}

// WithRedis connects the shared throttle backend when enabled
func WithRedis(ctx context.Context, app *App) error {
	cfg := app.Config().GetRedis()
	if !cfg.GetEnabled() {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetAddress(),
		Password: cfg.GetPassword(),
		DB:       cfg.GetDB(),
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return errors.Wrap(err, errors.CategoryInternal, "redis is not reachable").
			WithMetadata(map[string]any{"address": cfg.GetAddress()})
	}

	app.redis = client
	return nil
}

// WithServices builds the token codec and the auth and users workflows
func WithServices(_ context.Context, app *App) error {
	cfg := app.Config()
	authCfg := cfg.GetAuth()
	opTimeout := cfg.GetServer().GetOperationTimeout()

	tokens, err := auth.NewTokenServiceFromConfig(authCfg)
	if err != nil {
		return err
	}
	app.tokens = tokens.WithLogger(app.GetLogger("auth:tokens"))

	throttleOpts := []auth.ThrottleOption{
		auth.WithMaxFailures(authCfg.GetMaxFailedLogins()),
		auth.WithThrottleWindow(authCfg.GetThrottleWindow()),
		auth.WithThrottleLogger(app.GetLogger("auth:throttle")),
	}

	var throttle auth.LoginThrottle
	if app.redis != nil {
		throttle = auth.NewRedisThrottle(app.redis, cfg.GetRedis().GetKeyPrefix(), throttleOpts...)
	} else {
		throttle = auth.NewMemoryThrottle(throttleOpts...)
	}

	if app.mailer == nil {
		if smtpCfg := cfg.GetSMTP(); smtpCfg.IsConfigured() {
			app.mailer = auth.NewSMTPMailer(smtpCfg.MailerConfig()).WithLogger(app.GetLogger("auth:mailer"))
		} else {
			app.mailer = auth.NewLogMailer(app.GetLogger("auth:mailer"))
		}
	}

	sinks := []auth.ActivitySink{activitymap.NewLogSink(app.GetLogger("auth:activity"))}
	if app.redis != nil && cfg.GetRedis().GetActivityStream() != "" {
		sinks = append(sinks, activitymap.NewStreamSink(app.redis, cfg.GetRedis().GetActivityStream(), 0))
	}
	activity := activitymap.Fanout(sinks...)

	hasher := auth.NewBcryptHasher(authCfg.GetBcryptCost())

	app.authService = auth.NewAuthService(
		app.repo.Users(),
		app.repo.RefreshTokens(),
		app.tokens,
		hasher,
		throttle,
	).
		WithLogger(app.GetLogger("auth:workflow")).
		WithActivitySink(activity).
		WithEmailSender(app.mailer).
		WithTransactor(app.repo).
		WithRefreshTTL(authCfg.GetRefreshTokenTTL()).
		WithOperationTimeout(opTimeout).
		WithDefaultAdminEmail(authCfg.GetDefaultAdminEmail())

	app.usersService = auth.NewUsersService(
		app.repo.Users(),
		app.repo.RefreshTokens(),
		hasher,
	).
		WithLogger(app.GetLogger("auth:users")).
		WithActivitySink(activity).
		WithOperationTimeout(opTimeout)

	return nil
}

// WithHTTPServer builds the fiber app and mounts every route
func WithHTTPServer(_ context.Context, app *App) error {
	cfg := app.Config()
	logger := app.GetLogger("http")

	srv := fiber.New(fiber.Config{
		AppName:               cfg.GetName(),
		ErrorHandler:          auth.NewErrorHandler(logger),
		BodyLimit:             cfg.GetServer().GetBodyLimit(),
		DisableStartupMessage: true,
	})

	srv.Get("/health", app.health).Name("health")

	authController := auth.NewAuthController(
		app.authService,
		auth.WithAuthControllerLogger(app.GetLogger("http:auth")),
		auth.WithAuthControllerDebug(cfg.GetDebug()),
	)
	authController.RegisterRoutes(srv.Group("/api/auth"))

	guardCfg := jwtware.Config{
		Verifier:        app.tokens,
		ContextEnricher: auth.WithClaimsContext,
	}
	guard := func(roles ...auth.Role) fiber.Handler {
		return jwtware.RequireRoles(guardCfg, roles...)
	}

	usersController := auth.NewUsersController(app.usersService, app.tokens).
		WithLogger(app.GetLogger("http:users"))
	usersController.RegisterRoutes(srv.Group("/api/users"), guard)

	app.srv = srv
	return nil
}

func (a *App) healthTimeout() time.Duration {
	return a.cfg.GetPersistence().GetPingTimeout()
}

func (a *App) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), a.healthTimeout())
	defer cancel()

	if err := a.db.PingContext(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// Close releases the database and redis connections
func (a *App) Close() error {
	var first error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			first = err
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
