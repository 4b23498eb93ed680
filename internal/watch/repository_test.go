package watch

import (
	"context"
	"errors"
	"testing"
	"time"

	"movienight/internal/database/databasetest"
	"movienight/internal/identity"
	"movienight/internal/identity/identitytest"
	"movienight/internal/model"
	"movienight/internal/movie"
	"movienight/internal/notification/notificationtest"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var time0 = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

func newSQLRepo(t *testing.T) (*repositoryGorm, *gorm.DB) {
	t.Helper()
	db := databasetest.Open(t)
	databasetest.Seed(t, db,
		&model.User{ID: 1, PublicID: u1Public, Username: "u1", Email: "u1@example.com", PasswordHash: "x"},
		&model.User{ID: 2, PublicID: u2Public, Username: "u2", Email: "u2@example.com", PasswordHash: "x"},
	)
	h, a := heat, alien
	databasetest.Seed(t, db, &h, &a)
	return NewRepositoryGorm(db), db
}

func countRows[T any](t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var n int64
	if err := db.Model(new(T)).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestRepositoryUpsertDesireKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	repo, db := newSQLRepo(t)

	first, err := repo.UpsertDesire(ctx, &model.WatchDesire{UserID: 1, MovieID: heat.ID, Rating: 4})
	if err != nil {
		t.Fatal(err)
	}
	second, err := repo.UpsertDesire(ctx, &model.WatchDesire{UserID: 1, MovieID: heat.ID, Rating: 9})
	if err != nil {
		t.Fatal(err)
	}

	if n := countRows[model.WatchDesire](t, db, 1); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
	if second.ID != first.ID || second.Rating != 9 {
		t.Errorf("second = id %d rating %d, first id %d", second.ID, second.Rating, first.ID)
	}
	if second.Movie.Title != "Heat" {
		t.Errorf("movie not preloaded: %+v", second.Movie)
	}
}

func TestRepositoryUpsertDesireKeepsSuggestionSource(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLRepo(t)

	s := &model.Suggestion{FromUserID: 2, ToUserID: 1, MovieID: heat.ID, Status: model.SuggestionAccepted}
	if err := repo.CreateSuggestion(ctx, s); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.UpsertDesire(ctx, &model.WatchDesire{UserID: 1, MovieID: heat.ID, Rating: 5, SuggestionID: &s.ID}); err != nil {
		t.Fatal(err)
	}
	got, err := repo.UpsertDesire(ctx, &model.WatchDesire{UserID: 1, MovieID: heat.ID, Rating: 7})
	if err != nil {
		t.Fatal(err)
	}
	if got.SuggestionID == nil || *got.SuggestionID != s.ID {
		t.Errorf("suggestion source lost: %v", got.SuggestionID)
	}
}

func TestRepositoryUpsertWatchedKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	repo, db := newSQLRepo(t)

	if _, err := repo.UpsertWatched(ctx, &model.WatchedMovie{UserID: 1, MovieID: alien.ID, WatchedAt: time0, Reaction: "meh"}); err != nil {
		t.Fatal(err)
	}
	got, err := repo.UpsertWatched(ctx, &model.WatchedMovie{UserID: 1, MovieID: alien.ID, WatchedAt: time0.Add(24 * time.Hour), Score: intPtr(8), Reaction: "loved"})
	if err != nil {
		t.Fatal(err)
	}
	if n := countRows[model.WatchedMovie](t, db, 1); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
	if got.Reaction != "loved" || got.Score == nil || *got.Score != 8 || !got.WatchedAt.Equal(time0.Add(24*time.Hour)) {
		t.Errorf("watched = %+v", got)
	}
}

func TestRepositoryListDesiresHidesWatched(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLRepo(t)

	for _, id := range []uint{heat.ID, alien.ID} {
		if _, err := repo.UpsertDesire(ctx, &model.WatchDesire{UserID: 1, MovieID: id, Rating: 5}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := repo.UpsertWatched(ctx, &model.WatchedMovie{UserID: 1, MovieID: heat.ID, WatchedAt: time0}); err != nil {
		t.Fatal(err)
	}

	list, err := repo.ListDesires(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].MovieID != alien.ID {
		t.Fatalf("desires = %+v", list)
	}
	if n, err := repo.CountDesires(ctx, 1); err != nil || n != 1 {
		t.Errorf("CountDesires = %d, %v", n, err)
	}
}

func TestRepositoryTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	repo, db := newSQLRepo(t)

	if _, err := repo.UpsertDesire(ctx, &model.WatchDesire{UserID: 1, MovieID: heat.ID, Rating: 5}); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	err := repo.Transaction(ctx, func(tx Repository) error {
		if _, err := tx.UpsertWatched(ctx, &model.WatchedMovie{UserID: 1, MovieID: heat.ID, WatchedAt: time0}); err != nil {
			return err
		}
		if _, err := tx.DeleteDesire(ctx, 1, heat.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if n := countRows[model.WatchedMovie](t, db, 1); n != 0 {
		t.Errorf("watched rows = %d after rollback", n)
	}
	if _, err := repo.FindDesire(ctx, 1, heat.ID); err != nil {
		t.Errorf("desire lost after rollback: %v", err)
	}
}

func TestMarkWatchedRemovesDesireInDatabase(t *testing.T) {
	ctx := context.Background()
	repo, db := newSQLRepo(t)
	movies := &fakeMovies{movies: map[uint]model.Movie{heat.ID: heat, alien.ID: alien}}
	svc := NewWatchlistService(repo, movies, defaultOptions(), zap.NewNop())

	if _, err := svc.AddDesire(ctx, 1, &AddDesireRequest{Ref: movie.Ref{MovieID: heat.ID}}); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if _, err := svc.MarkWatched(ctx, 1, &MarkWatchedRequest{Ref: movie.Ref{MovieID: heat.ID}}); err != nil {
			t.Fatal(err)
		}
	}

	if n := countRows[model.WatchDesire](t, db, 1); n != 0 {
		t.Errorf("desire rows = %d, want 0", n)
	}
	if n := countRows[model.WatchedMovie](t, db, 1); n != 1 {
		t.Errorf("watched rows = %d, want 1", n)
	}
}

func TestAcceptSuggestionInDatabase(t *testing.T) {
	ctx := context.Background()
	repo, db := newSQLRepo(t)
	ids := identity.NewMapper(identitytest.NewUsers(
		&model.User{ID: 1, PublicID: u1Public, Username: "u1"},
		&model.User{ID: 2, PublicID: u2Public, Username: "u2"},
	), true)
	movies := &fakeMovies{movies: map[uint]model.Movie{heat.ID: heat}}
	svc := NewSuggestionService(repo, movies, ids, &notificationtest.Recorder{}, defaultOptions(), zap.NewNop())

	v, err := svc.Create(ctx, 2, &CreateSuggestionRequest{ToUserID: u1Public, Ref: movie.Ref{MovieID: heat.ID}})
	if err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if _, err := svc.Respond(ctx, 1, v.ID, &RespondSuggestionRequest{Action: "accept", Rating: intPtr(8)}); err != nil {
			t.Fatal(err)
		}
	}

	d, err := repo.FindDesire(ctx, 1, heat.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.Rating != 8 || d.SuggestionID == nil || *d.SuggestionID != v.ID {
		t.Errorf("desire = %+v", d)
	}
	if n := countRows[model.WatchDesire](t, db, 1); n != 1 {
		t.Errorf("desire rows = %d, want 1", n)
	}
}
