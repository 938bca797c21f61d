// Command matchday serves the live match API and, optionally, runs the
// fixture sync on a schedule. With -once it runs a single sync batch, prints
// the summary as JSON and exits, which suits an external cron.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/matchday-live/internal/broadcast"
	"github.com/tbourn/matchday-live/internal/config"
	"github.com/tbourn/matchday-live/internal/feed"
	httpapi "github.com/tbourn/matchday-live/internal/http"
	"github.com/tbourn/matchday-live/internal/livesync"
	"github.com/tbourn/matchday-live/internal/observability"
	"github.com/tbourn/matchday-live/internal/repo"
	"github.com/tbourn/matchday-live/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

func main() {
	once := flag.Bool("once", false, "run one sync batch, print the result and exit")
	matchID := flag.String("match", "", "with -once, sync only this match id")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version, "dev"))
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DBDriver, cfg.DBPath, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	var pub broadcast.Publisher = broadcast.Noop{}
	if cfg.NATS.Enabled {
		js, err := broadcast.NewJetStreamPublisher(ctx, cfg.NATS)
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.NATS.URL).Msg("connect nats")
		}
		defer js.Close()
		pub = js
	}

	engine := livesync.NewEngine(db, feed.NewClient(cfg.Feed), nil, pub, cfg.Sync)

	if *once {
		res, err := engine.Run(ctx, livesync.RunOptions{MatchID: *matchID})
		if err != nil {
			log.Fatal().Err(err).Msg("sync batch failed")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(res)
		return
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, engine, pub, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	if cfg.Sync.SchedulerEnabled {
		go (&livesync.Scheduler{Runner: engine, Interval: cfg.Sync.Interval}).Start(ctx)
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("base", cfg.APIBasePath).Msg("matchday listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
