package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rota/internal/adapters/feed"
	router "github.com/dkeye/Rota/internal/adapters/http"
	"github.com/dkeye/Rota/internal/announce"
	"github.com/dkeye/Rota/internal/app"
	"github.com/dkeye/Rota/internal/app/orch"
	"github.com/dkeye/Rota/internal/config"
	"github.com/dkeye/Rota/internal/domain"
	"github.com/dkeye/Rota/internal/telemetry"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	telemetry.SetBuildInfo(version)

	store, err := openStore(cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("store close")
		}
	}()

	formatter, err := announce.New(cfg.Locale)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build formatter")
	}

	hub := feed.NewHubWithPolicy(feed.PolicyByName(cfg.FeedPolicy))
	topics := make(map[domain.Kind]announce.Topic, len(cfg.Kinds))
	for _, k := range cfg.Kinds {
		topics[domain.Kind(k.Name)] = announce.Topic{Title: k.Title, Emoji: k.Emoji}
	}

	o := &orch.Orchestrator{
		Engine:    app.NewEngine(store),
		Formatter: formatter,
		Publisher: hub,
		Topics:    topics,
	}

	if cfg.Greeting.Enabled {
		schedule, err := cfg.Greeting.Schedule()
		if err != nil {
			log.Fatal().Err(err).Msg("bad greeting schedule")
		}
		g := &app.Greeter{
			Groups:    store,
			Publisher: hub,
			Phrase:    formatter.Greeting,
			Schedule:  schedule,
		}
		go g.Run(ctx)
	}

	r := router.SetupRouter(ctx, cfg, o, hub)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("version", version).Str("locale", formatter.Lang().String()).Msg("Rota server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
