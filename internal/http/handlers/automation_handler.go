// Automation settings HTTP handlers (admin).
//
//   - GET /matches/{id}/automation
//   - PUT /matches/{id}/automation
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/matchday-live/internal/services"
)

// AutomationRequest is the operator-controlled part of a match's sync
// settings. The sync cursor is never writable through the API.
type AutomationRequest struct {
	AutomationEnabled bool   `json:"automation_enabled" example:"true"`
	APIFixtureID      *int64 `json:"api_fixture_id"     example:"1035037"`
	AutoTimer         bool   `json:"auto_timer"         example:"true"`
	AutoLiveBlog      bool   `json:"auto_live_blog"     example:"true"`
	AutoScore         bool   `json:"auto_score"         example:"true"`
}

// GetAutomation godoc
// @ID          getAutomation
// @Summary     Get sync settings
// @Tags        Automation
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer admin JWT"
// @Param       id             path    string  true  "Match ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.MatchAutomationSettings
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Match or settings not found"
// @Router      /matches/{id}/automation [get]
func (h *Handlers) GetAutomation(c *gin.Context) {
	id, valid := matchID(c)
	if !valid {
		return
	}
	a, err := h.automation.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, a)
}

// PutAutomation godoc
// @ID          putAutomation
// @Summary     Configure sync settings
// @Description Creates or updates the fixture binding and automation flags. Events already synced and the last known status are kept.
// @Tags        Automation
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer admin JWT"
// @Param       id             path    string  true  "Match ID (UUID)"  format(uuid)
// @Param       body           body    handlers.AutomationRequest  true  "Settings"
//
// @Success     200  {object}  domain.MatchAutomationSettings
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Match not found"
// @Router      /matches/{id}/automation [put]
func (h *Handlers) PutAutomation(c *gin.Context) {
	id, valid := matchID(c)
	if !valid {
		return
	}
	var req AutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	a, err := h.automation.Configure(c.Request.Context(), id, services.AutomationConfig{
		Enabled:      req.AutomationEnabled,
		FixtureID:    req.APIFixtureID,
		AutoTimer:    req.AutoTimer,
		AutoLiveBlog: req.AutoLiveBlog,
		AutoScore:    req.AutoScore,
	})
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, a)
}
