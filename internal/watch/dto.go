package watch

import (
	"time"

	"movienight/internal/model"
	"movienight/internal/movie"
)

// CreateSuggestionRequest 推荐请求，movieId 和 tmdbId 二选一
type CreateSuggestionRequest struct {
	ToUserID string `json:"toUserId" binding:"required"`
	movie.Ref
	Message string `json:"message" binding:"max=500"`
}

// RespondSuggestionRequest 接受或拒绝推荐
type RespondSuggestionRequest struct {
	Action string `json:"action" binding:"required,oneof=accept reject"`
	Rating *int   `json:"rating" binding:"omitempty,min=1,max=10"`
}

// AddDesireRequest 直接加入想看
type AddDesireRequest struct {
	movie.Ref
	Rating *int `json:"rating" binding:"omitempty,min=1,max=10"`
}

// MarkWatchedRequest 标记看过
type MarkWatchedRequest struct {
	movie.Ref
	Score     *int       `json:"score" binding:"omitempty,min=0,max=10"`
	Reaction  string     `json:"reaction" binding:"max=32"`
	WatchedAt *time.Time `json:"watchedAt"`
}

// WatchlistRequest 通用观影清单接口
type WatchlistRequest struct {
	Status    string     `json:"status" binding:"required,oneof=desired watched"`
	Rating    *int       `json:"rating" binding:"omitempty,min=1,max=10"`
	Score     *int       `json:"score" binding:"omitempty,min=0,max=10"`
	Reaction  string     `json:"reaction" binding:"max=32"`
	WatchedAt *time.Time `json:"watchedAt"`
}

type SuggestionView struct {
	ID          uint                   `json:"id"`
	From        model.UserSummary      `json:"from"`
	To          model.UserSummary      `json:"to"`
	MovieID     uint                   `json:"movieId"`
	Movie       *model.Movie           `json:"movie,omitempty"`
	Message     string                 `json:"message"`
	Status      model.SuggestionStatus `json:"status"`
	RespondedAt *time.Time             `json:"respondedAt,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}

type DesireView struct {
	ID           uint         `json:"id"`
	MovieID      uint         `json:"movieId"`
	Movie        *model.Movie `json:"movie,omitempty"`
	Rating       int          `json:"rating"`
	SuggestionID *uint        `json:"suggestionId,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

type WatchedView struct {
	ID            uint         `json:"id"`
	MovieID       uint         `json:"movieId"`
	Movie         *model.Movie `json:"movie,omitempty"`
	WatchedAt     time.Time    `json:"watchedAt"`
	OriginalScore *int         `json:"originalScore"`
	Reaction      string       `json:"reaction,omitempty"`
}

// WatchlistEntry PUT /api/watchlist 的返回，按状态只填一项
type WatchlistEntry struct {
	Status  string       `json:"status"`
	Desire  *DesireView  `json:"desire,omitempty"`
	Watched *WatchedView `json:"watched,omitempty"`
}

func movieOrNil(m model.Movie) *model.Movie {
	if m.ID == 0 {
		return nil
	}
	return &m
}

func toDesireView(d *model.WatchDesire) DesireView {
	return DesireView{
		ID:           d.ID,
		MovieID:      d.MovieID,
		Movie:        movieOrNil(d.Movie),
		Rating:       d.Rating,
		SuggestionID: d.SuggestionID,
		CreatedAt:    d.CreatedAt,
	}
}

func toWatchedView(w *model.WatchedMovie) WatchedView {
	return WatchedView{
		ID:            w.ID,
		MovieID:       w.MovieID,
		Movie:         movieOrNil(w.Movie),
		WatchedAt:     w.WatchedAt,
		OriginalScore: w.Score,
		Reaction:      w.Reaction,
	}
}
