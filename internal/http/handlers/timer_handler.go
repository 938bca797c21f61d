// Match clock HTTP handlers.
//
//   - GET  /matches/{id}/timer              (settings + derived snapshot)
//   - GET  /matches/{id}/timer/stream       (server-sent events, one per tick)
//   - POST /matches/{id}/timer/{action}     (admin; kebab-case transition)
//   - PUT  /matches/{id}/timer/extra-time   (admin; correct stoppage)
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/matchday-live/internal/domain"
	"github.com/tbourn/matchday-live/internal/http/middleware"
	"github.com/tbourn/matchday-live/internal/matchclock"
)

// TimerResponse pairs the persisted clock with the minute derived from it.
type TimerResponse struct {
	Settings *domain.MatchTimerSettings `json:"settings"`
	Snapshot matchclock.Snapshot        `json:"snapshot"`
}

// TimerActionRequest carries the announced stoppage for end-of-period
// actions. It is ignored by start actions.
type TimerActionRequest struct {
	ExtraTime int `json:"extra_time" example:"3"`
}

// ExtraTimeRequest corrects the stoppage of the current half.
type ExtraTimeRequest struct {
	Minutes *int `json:"minutes" binding:"required" example:"4"`
}

func (h *Handlers) timerResponse(matchID string, t *domain.MatchTimerSettings) TimerResponse {
	return TimerResponse{Settings: t, Snapshot: matchclock.TakeSnapshot(matchID, t, h.clock.Now())}
}

// GetTimer godoc
// @ID          getTimer
// @Summary     Get the match clock
// @Description Returns the persisted timer of a match and the minute shown to fans. A clock that never started is returned in its default state.
// @Tags        Timer
// @Produce     json
//
// @Param       id   path  string  true  "Match ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.TimerResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Match not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /matches/{id}/timer [get]
func (h *Handlers) GetTimer(c *gin.Context) {
	id, valid := matchID(c)
	if !valid {
		return
	}
	t, err := h.timers.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, h.timerResponse(id, t))
}

// StreamTimer godoc
// @ID          streamTimer
// @Summary     Stream the match clock
// @Description Server-sent events; a "timer" event with the current snapshot is sent immediately and then once per tick until the client disconnects.
// @Tags        Timer
// @Produce     text/event-stream
//
// @Param       id   path  string  true  "Match ID (UUID)"  format(uuid)
//
// @Success     200  {object}  matchclock.Snapshot
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Match not found"
// @Router      /matches/{id}/timer/stream [get]
func (h *Handlers) StreamTimer(c *gin.Context) {
	id, valid := matchID(c)
	if !valid {
		return
	}
	ctx := c.Request.Context()
	// Resolve the match before committing to a 200 stream.
	if _, err := h.timers.Get(ctx, id); err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	middleware.StreamOpened()
	defer middleware.StreamClosed()

	err := h.timers.Watch(ctx, id, h.streamTick, func(s matchclock.Snapshot) error {
		c.SSEvent("timer", s)
		c.Writer.Flush()
		return ctx.Err()
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		log.Warn().Err(err).Str("match_id", id).Msg("timer stream ended")
	}
}

// TimerAction godoc
// @ID          timerAction
// @Summary     Apply a clock transition
// @Description Performs one of start-first-half, end-first-half, start-second-half, end-match, start-extra-time-1, end-extra-time-1, start-extra-time-2, end-extra-time-2.
// @Tags        Timer
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  true   "Bearer admin JWT"
// @Param       id             path    string  true   "Match ID (UUID)"  format(uuid)
// @Param       action         path    string  true   "Transition name"  example(end-first-half)
// @Param       body           body    handlers.TimerActionRequest  false  "Announced stoppage"
//
// @Success     200  {object}  handlers.TimerResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Match not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Invalid transition"
// @Router      /matches/{id}/timer/{action} [post]
func (h *Handlers) TimerAction(c *gin.Context) {
	id, valid := matchID(c)
	if !valid {
		return
	}
	tr, known := matchclock.ParseTransition(c.Param("action"))
	if !known {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown timer action")
		return
	}
	var req TimerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	t, err := h.timers.Apply(c.Request.Context(), id, tr, req.ExtraTime)
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, h.timerResponse(id, t))
}

// SetExtraTime godoc
// @ID          setExtraTime
// @Summary     Correct announced stoppage
// @Description Sets the stoppage minutes of the current regular half. While paused at the end of that half the frozen minute follows.
// @Tags        Timer
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer admin JWT"
// @Param       id             path    string  true  "Match ID (UUID)"  format(uuid)
// @Param       body           body    handlers.ExtraTimeRequest  true  "Stoppage minutes"
//
// @Success     200  {object}  handlers.TimerResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Match not found"
// @Failure     409  {object}  handlers.ErrorResponse  "No stoppage in extra time"
// @Router      /matches/{id}/timer/extra-time [put]
func (h *Handlers) SetExtraTime(c *gin.Context) {
	id, valid := matchID(c)
	if !valid {
		return
	}
	var req ExtraTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Minutes == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "minutes required")
		return
	}
	t, err := h.timers.SetExtraTime(c.Request.Context(), id, *req.Minutes)
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, h.timerResponse(id, t))
}
