// Live-blog HTTP handlers.
//
//   - GET  /matches/{id}/live-blog   (paginated, newest first, weak ETag)
//   - POST /matches/{id}/live-blog   (admin; idempotent via Idempotency-Key)
//   - GET  /matches/{id}/live        (match + clock + latest entries)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/matchday-live/internal/domain"
	"github.com/tbourn/matchday-live/internal/services"
	"github.com/tbourn/matchday-live/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PostEntryRequest is a manual live-blog entry. Without a minute the
// current minute of the running clock is used.
type PostEntryRequest struct {
	Minute      *int    `json:"minute"       example:"23"`
	EntryType   string  `json:"entry_type"   example:"update"`
	Title       string  `json:"title"        binding:"required,max=255" example:"Corner to the home side"`
	Content     string  `json:"content"      example:"Swung in from the left, cleared at the near post."`
	IsImportant bool    `json:"is_important"`
	TeamSide    *string `json:"team_side"    example:"home"`
}

// ListEntriesResponse wraps a page of entries and pagination information.
type ListEntriesResponse struct {
	Entries    []domain.LiveBlogEntry `json:"entries"`
	Pagination Pagination             `json:"pagination"`
}

// ListEntries godoc
// @ID          listLiveBlog
// @Summary     List live-blog entries (paginated)
// @Description Returns a page of entries, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        LiveBlog
// @Produce     json
//
// @Param       id             path    string  true   "Match ID (UUID)"             format(uuid)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListEntriesResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Match not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /matches/{id}/live-blog [get]
func (h *Handlers) ListEntries(c *gin.Context) {
	id, valid := matchID(c)
	if !valid {
		return
	}
	ctx := c.Request.Context()
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"), defaultPageSize, maxPageSize)

	// ETag pre-check (best effort). An empty blog never short-circuits so an
	// unknown match still gets its 404.
	if count, maxTS, err := h.liveBlog.Stats(ctx, id); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"liveblog:%s:%d:%d:%d:%d"`, id, count, ts, page, pageSize)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); count > 0 && inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.liveBlog.ListPage(ctx, id, page, pageSize)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListEntriesResponse{
		Entries: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// PostEntry godoc
// @ID          postLiveBlog
// @Summary     Post a live-blog entry
// @Description Appends a manual entry. Supports idempotent retries via Idempotency-Key (same key returns the stored entry).
// @Tags        LiveBlog
// @Accept      json
// @Produce     json
//
// @Param       Authorization    header  string  true   "Bearer admin JWT"
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"
// @Param       id               path    string  true   "Match ID (UUID)"  format(uuid)
// @Param       body             body    handlers.PostEntryRequest  true  "Entry"
//
// @Success     201  {object}  domain.LiveBlogEntry
// @Header      201  {string}  Idempotency-Replayed  "true when served from a stored response"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Match not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /matches/{id}/live-blog [post]
func (h *Handlers) PostEntry(c *gin.Context) {
	id, valid := matchID(c)
	if !valid {
		return
	}
	var req PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required (1-255 chars)")
		return
	}
	if h.replay(c) {
		return
	}

	e, err := h.liveBlog.Post(c.Request.Context(), id, services.NewEntry{
		Minute:      req.Minute,
		EntryType:   req.EntryType,
		Title:       req.Title,
		Content:     req.Content,
		IsImportant: req.IsImportant,
		TeamSide:    req.TeamSide,
	})
	if err != nil {
		failErr(c, err, ErrCodeCreateFailed)
		return
	}
	h.okIdempotent(c, http.StatusCreated, e)
}

// GetLive godoc
// @ID          getLive
// @Summary     Live view of a match
// @Description Returns the match, its current clock and the latest live-blog entries in one response.
// @Tags        Matches
// @Produce     json
//
// @Param       id     path   string  true   "Match ID (UUID)"  format(uuid)
// @Param       limit  query  int     false  "Latest entries to include"  minimum(1) maximum(100) default(10)
//
// @Success     200  {object}  services.LiveView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Match not found"
// @Router      /matches/{id}/live [get]
func (h *Handlers) GetLive(c *gin.Context) {
	id, valid := matchID(c)
	if !valid {
		return
	}
	v, err := h.matches.Live(c.Request.Context(), id, utils.AtoiDefault(c.Query("limit"), 0))
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, v)
}
