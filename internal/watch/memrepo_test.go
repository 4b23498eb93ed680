package watch

import (
	"context"
	"sort"
	"sync"
	"time"

	"movienight/internal/apperr"
	"movienight/internal/constants"
	"movienight/internal/model"
	"movienight/internal/movie"

	"gorm.io/gorm"
)

type pair struct{ user, movie uint }

type memState struct {
	suggestions map[uint]model.Suggestion
	desires     map[pair]model.WatchDesire
	watched     map[pair]model.WatchedMovie
}

func (s memState) clone() memState {
	c := memState{
		suggestions: make(map[uint]model.Suggestion, len(s.suggestions)),
		desires:     make(map[pair]model.WatchDesire, len(s.desires)),
		watched:     make(map[pair]model.WatchedMovie, len(s.watched)),
	}
	for k, v := range s.suggestions {
		c.suggestions[k] = v
	}
	for k, v := range s.desires {
		c.desires[k] = v
	}
	for k, v := range s.watched {
		c.watched[k] = v
	}
	return c
}

// memRepo 内存实现，Transaction 出错时恢复快照
type memRepo struct {
	mu     sync.Mutex
	nextID uint
	state  memState
	movies map[uint]model.Movie

	failDeleteDesire error
}

func newMemRepo(movies ...model.Movie) *memRepo {
	r := &memRepo{
		state: memState{
			suggestions: map[uint]model.Suggestion{},
			desires:     map[pair]model.WatchDesire{},
			watched:     map[pair]model.WatchedMovie{},
		},
		movies: map[uint]model.Movie{},
	}
	for _, m := range movies {
		r.movies[m.ID] = m
	}
	return r
}

func (r *memRepo) id() uint {
	r.nextID++
	return r.nextID
}

func (r *memRepo) Transaction(_ context.Context, fn func(tx Repository) error) error {
	r.mu.Lock()
	snapshot := r.state.clone()
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.state = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memRepo) CreateSuggestion(_ context.Context, s *model.Suggestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.id()
	s.CreatedAt = time.Now()
	cp := *s
	cp.Movie = model.Movie{}
	r.state.suggestions[s.ID] = cp
	return nil
}

func (r *memRepo) FindSuggestion(_ context.Context, id uint) (*model.Suggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.state.suggestions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	s.Movie = r.movies[s.MovieID]
	return &s, nil
}

func (r *memRepo) UpdateSuggestionStatus(_ context.Context, id uint, status model.SuggestionStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state.suggestions[id]
	s.Status = status
	s.RespondedAt = &at
	r.state.suggestions[id] = s
	return nil
}

func (r *memRepo) HasPendingSuggestion(_ context.Context, from, to, movieID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.state.suggestions {
		if s.FromUserID == from && s.ToUserID == to && s.MovieID == movieID && s.Status == model.SuggestionPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) suggestionsWhere(match func(model.Suggestion) bool) []model.Suggestion {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Suggestion
	for _, s := range r.state.suggestions {
		if match(s) {
			s.Movie = r.movies[s.MovieID]
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *memRepo) ListReceived(_ context.Context, userID uint, status model.SuggestionStatus, _ int) ([]model.Suggestion, error) {
	return r.suggestionsWhere(func(s model.Suggestion) bool {
		return s.ToUserID == userID && (status == "" || s.Status == status)
	}), nil
}

func (r *memRepo) ListSent(_ context.Context, userID uint, _ int) ([]model.Suggestion, error) {
	return r.suggestionsWhere(func(s model.Suggestion) bool { return s.FromUserID == userID }), nil
}

func (r *memRepo) CountPendingReceived(_ context.Context, userID uint) (int64, error) {
	return int64(len(r.suggestionsWhere(func(s model.Suggestion) bool {
		return s.ToUserID == userID && s.Status == model.SuggestionPending
	}))), nil
}

func (r *memRepo) FindDesire(_ context.Context, userID, movieID uint) (*model.WatchDesire, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.state.desires[pair{userID, movieID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	d.Movie = r.movies[movieID]
	return &d, nil
}

func (r *memRepo) UpsertDesire(ctx context.Context, d *model.WatchDesire) (*model.WatchDesire, error) {
	r.mu.Lock()
	key := pair{d.UserID, d.MovieID}
	if existing, ok := r.state.desires[key]; ok {
		existing.Rating = d.Rating
		if d.SuggestionID != nil {
			existing.SuggestionID = d.SuggestionID
		}
		r.state.desires[key] = existing
	} else {
		cp := *d
		cp.ID = r.id()
		cp.CreatedAt = time.Now()
		r.state.desires[key] = cp
	}
	r.mu.Unlock()
	return r.FindDesire(ctx, d.UserID, d.MovieID)
}

func (r *memRepo) DeleteDesire(_ context.Context, userID, movieID uint) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDeleteDesire != nil {
		return 0, r.failDeleteDesire
	}
	key := pair{userID, movieID}
	if _, ok := r.state.desires[key]; !ok {
		return 0, nil
	}
	delete(r.state.desires, key)
	return 1, nil
}

func (r *memRepo) ListDesires(_ context.Context, userID uint) ([]model.WatchDesire, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.WatchDesire
	for k, d := range r.state.desires {
		if k.user != userID {
			continue
		}
		if _, watched := r.state.watched[k]; watched {
			continue
		}
		d.Movie = r.movies[d.MovieID]
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) CountDesires(ctx context.Context, userID uint) (int64, error) {
	list, _ := r.ListDesires(ctx, userID)
	return int64(len(list)), nil
}

func (r *memRepo) UpsertWatched(_ context.Context, w *model.WatchedMovie) (*model.WatchedMovie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pair{w.UserID, w.MovieID}
	cp := *w
	if existing, ok := r.state.watched[key]; ok {
		cp.ID = existing.ID
	} else {
		cp.ID = r.id()
	}
	r.state.watched[key] = cp
	cp.Movie = r.movies[w.MovieID]
	return &cp, nil
}

func (r *memRepo) DeleteWatched(_ context.Context, userID, movieID uint) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pair{userID, movieID}
	if _, ok := r.state.watched[key]; !ok {
		return 0, nil
	}
	delete(r.state.watched, key)
	return 1, nil
}

func (r *memRepo) ListWatched(_ context.Context, userID uint) ([]model.WatchedMovie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.WatchedMovie
	for k, w := range r.state.watched {
		if k.user == userID {
			w.Movie = r.movies[w.MovieID]
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) CountWatched(ctx context.Context, userID uint) (int64, error) {
	list, _ := r.ListWatched(ctx, userID)
	return int64(len(list)), nil
}

// fakeMovies 只认识本地电影，tmdbId 一律视为导入失败
type fakeMovies struct {
	movies map[uint]model.Movie
}

func (f *fakeMovies) Resolve(_ context.Context, ref movie.Ref) (*model.Movie, error) {
	if m, ok := f.movies[ref.MovieID]; ok && ref.MovieID != 0 {
		return &m, nil
	}
	return nil, apperr.NotFound(constants.ErrMovieNotFound)
}
