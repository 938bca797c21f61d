// Sync trigger.
//
//   - POST /sync  run one sync batch, all eligible matches or a single one
//
// The endpoint is meant for an external cron or an admin "force sync" button.
// Retries carrying the same Idempotency-Key replay the stored batch summary
// instead of running another batch.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/matchday-live/internal/livesync"
)

// TriggerSyncRequest optionally narrows the batch to one match.
type TriggerSyncRequest struct {
	// MatchID forces a sync of a single automation-enabled match.
	MatchID string `json:"match_id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// TriggerSync godoc
// @ID          triggerSync
// @Summary     Run a sync batch
// @Description Pulls every automation-enabled match (or only match_id) from the fixture feed and applies status, score and event changes. Supports idempotent retries via Idempotency-Key.
// @Tags        Sync
// @Accept      json
// @Produce     json
//
// @Param       X-Cron-Secret    header  string  false "Shared cron secret"
// @Param       Authorization    header  string  false "Bearer admin JWT"
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.TriggerSyncRequest  false  "Optional single-match filter"
//
// @Success     200  {object}  livesync.BatchResult
// @Header      200  {string}  Idempotency-Replayed  "true when served from a stored response"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     429  {object}  handlers.ErrorResponse  "Too many requests"
// @Failure     500  {object}  handlers.ErrorResponse  "Sync failed"
// @Router      /sync [post]
func (h *Handlers) TriggerSync(c *gin.Context) {
	var req TriggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	req.MatchID = strings.TrimSpace(req.MatchID)
	if req.MatchID != "" {
		if _, err := uuid.Parse(req.MatchID); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "match_id must be a UUID")
			return
		}
	}

	if h.replay(c) {
		return
	}

	res, err := h.sync.Run(c.Request.Context(), livesync.RunOptions{MatchID: req.MatchID})
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSyncFailed, err.Error())
		return
	}
	h.okIdempotent(c, http.StatusOK, res)
}
