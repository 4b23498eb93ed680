package watch

import (
	"movienight/internal/middleware"
	"movienight/internal/model"
	"movienight/internal/response"
	"movienight/internal/validate"

	"github.com/gin-gonic/gin"
)

// Handler 推荐和观影清单接口
type Handler struct {
	suggestions SuggestionService
	watchlist   WatchlistService
}

func NewHandler(suggestions SuggestionService, watchlist WatchlistService) *Handler {
	return &Handler{suggestions: suggestions, watchlist: watchlist}
}

// CreateSuggestion POST /api/suggestions
func (h *Handler) CreateSuggestion(c *gin.Context) {
	var req CreateSuggestionRequest
	if err := validate.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	v, err := h.suggestions.Create(c.Request.Context(), middleware.CurrentUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, v)
}

// RespondSuggestion PATCH /api/suggestions/:id
func (h *Handler) RespondSuggestion(c *gin.Context) {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req RespondSuggestionRequest
	if err := validate.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	v, err := h.suggestions.Respond(c.Request.Context(), middleware.CurrentUserID(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, v)
}

// ListReceived GET /api/suggestions/received?status=
func (h *Handler) ListReceived(c *gin.Context) {
	list, err := h.suggestions.ListReceived(c.Request.Context(), middleware.CurrentUserID(c), model.SuggestionStatus(c.Query("status")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// ListSent GET /api/suggestions/sent
func (h *Handler) ListSent(c *gin.Context) {
	list, err := h.suggestions.ListSent(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// AddDesire POST /api/watch-desire
func (h *Handler) AddDesire(c *gin.Context) {
	var req AddDesireRequest
	if err := validate.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	v, err := h.watchlist.AddDesire(c.Request.Context(), middleware.CurrentUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, v)
}

func (h *Handler) ListDesires(c *gin.Context) {
	list, err := h.watchlist.ListDesires(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) RemoveDesire(c *gin.Context) {
	movieID, err := validate.ParamID(c, "movieId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.watchlist.RemoveDesire(c.Request.Context(), middleware.CurrentUserID(c), movieID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"movieId": movieID, "removed": true})
}

// MarkWatched POST /api/history
func (h *Handler) MarkWatched(c *gin.Context) {
	var req MarkWatchedRequest
	if err := validate.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	v, err := h.watchlist.MarkWatched(c.Request.Context(), middleware.CurrentUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, v)
}

func (h *Handler) History(c *gin.Context) {
	list, err := h.watchlist.History(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) RemoveWatched(c *gin.Context) {
	movieID, err := validate.ParamID(c, "movieId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.watchlist.RemoveWatched(c.Request.Context(), middleware.CurrentUserID(c), movieID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"movieId": movieID, "removed": true})
}

// SetWatchlist PUT /api/watchlist/:movieId
func (h *Handler) SetWatchlist(c *gin.Context) {
	movieID, err := validate.ParamID(c, "movieId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req WatchlistRequest
	if err := validate.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	entry, err := h.watchlist.SetStatus(c.Request.Context(), middleware.CurrentUserID(c), movieID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entry)
}
