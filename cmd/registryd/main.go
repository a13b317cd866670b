// Command registryd is the mcjars registry's HTTP server: it wires the
// remote cache (C1), result-cache facade (C2), bounded file cache (C3),
// telemetry pipeline (C4), middleware chain (C5), response shaping
// (C6), and domain read models (C7) into one Echo server, following the
// teacher's NewEchoServer + signal-driven graceful shutdown pattern.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mcjars/registry/apimiddleware"
	"github.com/mcjars/registry/apiresponse"
	"github.com/mcjars/registry/auth"
	"github.com/mcjars/registry/cache"
	"github.com/mcjars/registry/config"
	"github.com/mcjars/registry/db"
	"github.com/mcjars/registry/filecache"
	"github.com/mcjars/registry/logging"
	"github.com/mcjars/registry/metrics"
	"github.com/mcjars/registry/models"
	"github.com/mcjars/registry/openapi"
	queueredis "github.com/mcjars/registry/queue/redis"
	"github.com/mcjars/registry/routes"
	"github.com/mcjars/registry/storage"
	"github.com/mcjars/registry/telemetry"
)

func main() {
	env, err := config.Parse()
	if err != nil {
		panic(err)
	}

	logger := logging.New(env.LogLevel, env.ServerName)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, env, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if env.DatabaseMigrate {
		if err := db.RunMigrations(ctx, pool.Write(), logger); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	cacheClient, err := cache.New(ctx, env)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect redis")
	}

	store, err := storage.New(ctx, storage.Config{
		Endpoint:  env.S3Endpoint,
		Region:    env.S3Region,
		Bucket:    env.S3Bucket,
		AccessKey: env.S3AccessKey,
		SecretKey: env.S3SecretKey,
		PathStyle: env.S3PathStyle,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect object storage")
	}

	fileCache, err := filecache.New(filecache.Config{
		CacheDir: env.FilesCache,
		MaxBytes: 5 * 1024 * 1024 * 1024,
	}, store, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init file cache")
	}

	ch, err := telemetry.OpenClickhouse(env)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect clickhouse")
	}

	telemetryLogger := telemetry.New(pool, ch, cacheClient, logger)

	tracker, err := queueredis.NewTracker(ctx, queueredis.Config{RedisURL: env.RedisAddr()})
	if err != nil {
		logger.Warn().Err(err).Msg("distributed staleness tracker unavailable, continuing without it")
	} else {
		telemetryLogger = telemetryLogger.WithTracker(tracker)
		defer tracker.Close()
	}

	met := metrics.New("mcjars_registry", cacheClient, fileCache)

	var reporter apiresponse.ErrorReporter = zerologReporter{logger}

	githubConfig := auth.NewGithubConfig(env.GithubClientID, env.GithubClientSecret, env.AppURL+"/api/github/callback")

	deps := &routes.Deps{
		Pool:            pool,
		Cache:           cacheClient,
		FileCache:       fileCache,
		Github:          githubConfig,
		AppFrontendURL:  env.AppFrontendURL,
		AppCookieDomain: env.AppCookieDomain,
	}

	e := echo.New()
	apimiddleware.Base(e, logger, reporter)

	api := e.Group("/api")
	api.Use(apimiddleware.Gate(telemetryLogger, orgLookup(pool, cacheClient), reporter, env.ServerName))

	registerRoutes(api, deps, reporter, env)
	if env.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	go runLoop(ctx, logger, "telemetry drain", 5*time.Second, func(ctx context.Context) error {
		start := time.Now()
		err := telemetryLogger.Process(ctx)
		met.DrainDuration.Observe(time.Since(start).Seconds())
		return err
	})

	go runLoop(ctx, logger, "file cache eviction", 30*time.Second, fileCache.Process)

	addr := env.Bind + ":" + strconv.Itoa(env.Port)
	go func() {
		logger.Info().Str("addr", addr).Msg("registry listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
}

func registerRoutes(api *echo.Group, deps *routes.Deps, reporter apiresponse.ErrorReporter, env *config.Env) {
	api.GET("/types", apimiddleware.Wrap(deps.ListTypes, reporter))
	api.GET("/:type/versions", apimiddleware.Wrap(deps.ListVersions, reporter))
	api.GET("/build/:identifier", apimiddleware.Wrap(deps.GetBuild, reporter))
	api.GET("/files/*", apimiddleware.Wrap(deps.ListFiles, reporter))
	api.HEAD("/files/*", apimiddleware.Wrap(deps.ListFiles, reporter))
	api.GET("/files/download/*", deps.DownloadFile)
	api.HEAD("/files/download/*", deps.DownloadFile)

	api.GET("/github", deps.GithubAuthorize)
	api.GET("/github/callback", deps.GithubCallback)
	api.GET("/me", apimiddleware.Wrap(deps.Me, reporter))

	doc := openapi.New(env.AppURL, "1.0.0")
	api.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, doc)
	})
}

// orgLookup bridges apimiddleware.OrgLookup to the cached organization
// model, matching C5's "normally backed by C1 + C7.Organization.ByKey"
// contract.
func orgLookup(pool *db.Pool, c *cache.Client) apimiddleware.OrgLookup {
	return func(ctx echo.Context, key string) (*telemetry.OrgContext, error) {
		org, err := models.OrganizationByKey(ctx.Request().Context(), pool.Read(), c, key)
		if err != nil {
			return nil, err
		}
		if org == nil {
			return nil, nil
		}
		return &telemetry.OrgContext{ID: strconv.Itoa(int(org.ID)), Verified: org.Verified}, nil
	}
}

// runLoop runs fn on a ticker until ctx is cancelled, logging (but not
// exiting on) errors, matching the teacher's background-loop posture in
// registryservice's healthCheckLoop.
func runLoop(ctx context.Context, logger zerolog.Logger, name string, interval time.Duration, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				logger.Warn().Err(err).Msg(name + " failed")
			}
		}
	}
}

// zerologReporter satisfies apiresponse.ErrorReporter by logging the
// error, since this tree carries no dedicated APM/error-tracking
// client (see DESIGN.md).
type zerologReporter struct {
	logger zerolog.Logger
}

func (r zerologReporter) Capture(err error) {
	r.logger.Error().Err(err).Msg("unhandled error")
}
