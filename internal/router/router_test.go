package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"movienight/internal/apperr"
	"movienight/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type fakeSessions map[string]*model.User

func (f fakeSessions) Resolve(_ context.Context, token string) (*model.User, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, apperr.Unauthenticated("authentication required")
}

func newRouter(ping func(context.Context) error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	sessions := fakeSessions{"alice-token": {ID: 1, Role: model.RoleUser}}
	return SetupRouter(&Handlers{}, Options{
		CORSOrigins: []string{"http://localhost:3000"},
		CookieName:  "mn_session",
		Sessions:    sessions,
		Ping:        ping,
	}, zap.NewNop())
}

func TestHealthz(t *testing.T) {
	cases := []struct {
		name string
		ping func(context.Context) error
		want int
	}{
		{"no ping", nil, http.StatusOK},
		{"ping ok", func(context.Context) error { return nil }, http.StatusOK},
		{"ping fails", func(context.Context) error { return errors.New("down") }, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newRouter(tc.ping).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	r := newRouter(nil)
	for _, path := range []string{"/api/auth/me", "/api/dashboard", "/api/watch-desire", "/api/friends"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", path, w.Code)
		}
	}
}

func TestAdminRouteRejectsRegularUser(t *testing.T) {
	r := newRouter(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/catalog/sync", nil)
	req.Header.Set("Authorization", "Bearer alice-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestRouteTable(t *testing.T) {
	r := newRouter(nil)
	have := make(map[string]bool)
	for _, ri := range r.Routes() {
		have[ri.Method+" "+ri.Path] = true
	}
	want := []string{
		"POST /api/auth/register",
		"POST /api/auth/login",
		"GET /api/ws",
		"POST /api/suggestions",
		"GET /api/suggestions/received",
		"PATCH /api/suggestions/:id",
		"POST /api/watch-desire",
		"DELETE /api/watch-desire/:movieId",
		"POST /api/history",
		"PUT /api/watchlist/:movieId",
		"POST /api/friends/requests",
		"PATCH /api/friends/requests/:id",
		"DELETE /api/friends/:userId",
		"PATCH /api/notifications/read-all",
		"PATCH /api/notifications/:id/read",
		"DELETE /api/events/:id/participants/me",
		"GET /api/dashboard",
		"POST /api/realtime/ticket",
		"POST /api/admin/catalog/sync",
		"GET /metrics",
	}
	for _, route := range want {
		if !have[route] {
			t.Errorf("missing route %s", route)
		}
	}
}
