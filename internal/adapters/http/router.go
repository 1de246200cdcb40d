package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rota/internal/adapters/feed"
	"github.com/dkeye/Rota/internal/app/orch"
	"github.com/dkeye/Rota/internal/config"
	"github.com/dkeye/Rota/internal/telemetry"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware keeps a caller-supplied request id or mints one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, hub *feed.Hub) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(telemetry.Instrument())

	h := &handlers{
		orch:    o,
		hub:     hub,
		ctx:     ctx,
		limiter: NewActorRateLimiter(cfg.RateLimit.Commands, cfg.RateLimit.Window),
		feedOpts: feed.Options{
			Buffer:     cfg.FeedBuffer,
			ReadLimit:  cfg.ReadLimit,
			PingPeriod: cfg.PingPeriod,
		},
	}

	r.GET("/healthz", h.healthz)
	r.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))

	api := r.Group("/api/groups/:group")
	api.GET("/feed", h.feed)

	rosters := api.Group("/rosters/:kind")
	rosters.GET("", h.render)
	rosters.POST("/join", h.join)
	rosters.POST("/leave", h.leave)
	rosters.POST("/advance", h.advance)
	rosters.PUT("/announcement", h.bind)

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
