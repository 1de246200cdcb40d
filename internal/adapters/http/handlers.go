package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rota/internal/adapters/feed"
	"github.com/dkeye/Rota/internal/app"
	"github.com/dkeye/Rota/internal/app/orch"
	"github.com/dkeye/Rota/internal/core"
	"github.com/dkeye/Rota/internal/domain"
)

type handlers struct {
	orch     *orch.Orchestrator
	hub      *feed.Hub
	ctx      context.Context
	feedOpts feed.Options
	limiter  *ActorRateLimiter
}

type actorRequest struct {
	ID          int64  `json:"id" binding:"required"`
	DisplayName string `json:"display_name"`
}

type bindRequest struct {
	AnnouncementID string `json:"announcement_id"`
}

type errorResponse struct {
	Result  string `json:"result"`
	Message string `json:"message"`
}

func (h *handlers) healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func groupParam(c *gin.Context) (domain.GroupID, bool) {
	id, err := strconv.ParseInt(c.Param("group"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Result: "error", Message: "group must be an integer"})
		return 0, false
	}
	return domain.GroupID(id), true
}

func (h *handlers) join(c *gin.Context)    { h.actorOp(c, app.OpJoin) }
func (h *handlers) leave(c *gin.Context)   { h.actorOp(c, app.OpLeave) }
func (h *handlers) advance(c *gin.Context) { h.actorOp(c, app.OpAdvance) }

func (h *handlers) actorOp(c *gin.Context, op app.Op) {
	group, ok := groupParam(c)
	if !ok {
		return
	}
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Result: "error", Message: "missing or invalid id"})
		return
	}
	if !h.limiter.Allow(group, domain.Identity(req.ID)) {
		c.JSON(http.StatusTooManyRequests, errorResponse{Result: "error", Message: "too many commands, slow down"})
		return
	}
	h.run(c, orch.Event{
		Group: group,
		Kind:  c.Param("kind"),
		Op:    op,
		Actor: orch.Actor{ID: domain.Identity(req.ID), DisplayName: req.DisplayName},
	})
}

func (h *handlers) render(c *gin.Context) {
	group, ok := groupParam(c)
	if !ok {
		return
	}
	h.run(c, orch.Event{Group: group, Kind: c.Param("kind"), Op: app.OpRender})
}

func (h *handlers) bind(c *gin.Context) {
	group, ok := groupParam(c)
	if !ok {
		return
	}
	var req bindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Result: "error", Message: "invalid body"})
		return
	}
	h.run(c, orch.Event{Group: group, Kind: c.Param("kind"), Op: app.OpBind, AnnouncementID: req.AnnouncementID})
}

func (h *handlers) run(c *gin.Context, ev orch.Event) {
	reply, err := h.orch.Handle(c.Request.Context(), ev)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Str("module", "adapters.http").Str("request_id", c.GetString("request_id")).Msg("event failed")
			c.JSON(status, errorResponse{Result: "error", Message: "internal error"})
			return
		}
		c.JSON(status, errorResponse{Result: "error", Message: err.Error()})
		return
	}
	c.JSON(statusForResult(reply.Result), reply)
}

func (h *handlers) feed(c *gin.Context) {
	group, ok := groupParam(c)
	if !ok {
		return
	}
	log.Info().Str("module", "adapters.http").Int64("group", int64(group)).Msg("feed endpoint hit")
	h.hub.Serve(h.ctx, c, group, h.feedOpts)
}

func statusForResult(r core.Result) int {
	switch r {
	case core.AlreadyMember, core.EmptyQueue:
		return http.StatusConflict
	case core.NotMember:
		return http.StatusNotFound
	case core.NotYourTurn:
		return http.StatusForbidden
	}
	return http.StatusOK
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, orch.ErrUnknownKind),
		errors.Is(err, domain.ErrIdentityZero),
		errors.Is(err, domain.ErrDisplayNameEmpty),
		errors.Is(err, domain.ErrDisplayNameTooLong):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
