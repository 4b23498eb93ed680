package movie

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"movienight/internal/catalog"
	"movienight/internal/database/databasetest"
	"movienight/internal/model"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func tmdbMovie(id int64, title string, genres string) *model.Movie {
	m := &model.Movie{TMDBID: &id, Title: title}
	if genres != "" {
		m.Genres = datatypes.JSON(genres)
	}
	return m
}

func TestRepositoryUpsertKeepsInternalID(t *testing.T) {
	ctx := context.Background()
	db := databasetest.Open(t)
	repo := NewRepositoryGorm(db)

	first, err := repo.UpsertByTMDBID(ctx, tmdbMovie(603, "The Matrix", `["Action"]`))
	if err != nil {
		t.Fatal(err)
	}
	second, err := repo.UpsertByTMDBID(ctx, tmdbMovie(603, "The Matrix (1999)", `["Action","Science Fiction"]`))
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("internal id changed: %d -> %d", first.ID, second.ID)
	}
	if second.Title != "The Matrix (1999)" || string(second.Genres) != `["Action","Science Fiction"]` {
		t.Errorf("movie = %+v genres %s", second, second.Genres)
	}

	var n int64
	db.Model(&model.Movie{}).Count(&n)
	if n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestRepositoryUpsertUnknownGenres(t *testing.T) {
	ctx := context.Background()
	repo := NewRepositoryGorm(databasetest.Open(t))

	fresh, err := repo.UpsertByTMDBID(ctx, tmdbMovie(1, "Fresh", ""))
	if err != nil {
		t.Fatal(err)
	}
	if string(fresh.Genres) != `[]` {
		t.Errorf("new row genres = %s, want []", fresh.Genres)
	}

	if _, err := repo.UpsertByTMDBID(ctx, tmdbMovie(2, "Known", `["Drama"]`)); err != nil {
		t.Fatal(err)
	}
	kept, err := repo.UpsertByTMDBID(ctx, tmdbMovie(2, "Known", ""))
	if err != nil {
		t.Fatal(err)
	}
	if string(kept.Genres) != `["Drama"]` {
		t.Errorf("existing genres overwritten: %s", kept.Genres)
	}
}

func TestRepositoryListFiltersGenreAndTitle(t *testing.T) {
	ctx := context.Background()
	repo := NewRepositoryGorm(databasetest.Open(t))
	for _, m := range []*model.Movie{
		tmdbMovie(1, "Heat", `["Action","Crime"]`),
		tmdbMovie(2, "Alien", `["Horror","Science Fiction"]`),
		tmdbMovie(3, "Aliens", `["Action","Science Fiction"]`),
	} {
		if _, err := repo.UpsertByTMDBID(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	action, total, err := repo.List(ctx, ListQuery{Genre: "Action", Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(action) != 2 {
		t.Errorf("action = %d rows, total %d", len(action), total)
	}

	aliens, total, err := repo.List(ctx, ListQuery{Genre: "Science Fiction", Title: "Alien", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(aliens) != 1 {
		t.Errorf("aliens = %d rows, total %d", len(aliens), total)
	}
}

// genreServer 外部目录：一页两部电影，genresDown 时类型表返回 500
func genreServer(t *testing.T, genresDown *atomic.Bool) *catalog.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/genre/movie/list", func(w http.ResponseWriter, r *http.Request) {
		if genresDown.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"genres":[{"id":28,"name":"Action"},{"id":18,"name":"Drama"}]}`)
	})
	mux.HandleFunc("/movie/popular", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"page":1,"total_pages":1,"results":[
			{"id":11,"title":"Star Wars","genre_ids":[28]},
			{"id":12,"title":"Finding Nemo","genre_ids":[18]}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return catalog.NewClient(catalog.Options{BaseURL: srv.URL, RequestsPerSec: 1000, BreakerTimeout: time.Second}, zap.NewNop())
}

func TestSyncKeepsGenresInDatabase(t *testing.T) {
	ctx := context.Background()
	repo := NewRepositoryGorm(databasetest.Open(t))
	var genresDown atomic.Bool
	syncer := catalog.NewSyncer(genreServer(t, &genresDown), repo, catalog.SyncOptions{Pages: 1}, zap.NewNop())

	if _, err := syncer.Run(ctx); err != nil {
		t.Fatal(err)
	}
	before, err := repo.FindByTMDBID(ctx, 11)
	if err != nil {
		t.Fatal(err)
	}
	if string(before.Genres) != `["Action"]` {
		t.Fatalf("genres = %s", before.Genres)
	}

	genresDown.Store(true)
	res, err := syncer.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Upserted != 2 {
		t.Errorf("upserted = %d, want 2", res.Upserted)
	}

	after, err := repo.FindByTMDBID(ctx, 11)
	if err != nil {
		t.Fatal(err)
	}
	if after.ID != before.ID || string(after.Genres) != `["Action"]` {
		t.Errorf("after failed genre fetch: id %d -> %d, genres %s", before.ID, after.ID, after.Genres)
	}
	_, total, err := repo.List(ctx, ListQuery{Genre: "Action", Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("genre filter total = %d, want 1", total)
	}
}
