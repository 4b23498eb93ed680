package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"movienight/internal/apperr"

	"github.com/gin-gonic/gin"
)

func run(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return w, body
}

func TestOK(t *testing.T) {
	w, body := run(t, func(c *gin.Context) { OK(c, gin.H{"n": 1}) })
	if w.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("unexpected response %d %v", w.Code, body)
	}
	if _, ok := body["error"]; ok {
		t.Error("error should be omitted on success")
	}
}

func TestErrorHidesInternalDetails(t *testing.T) {
	w, body := run(t, func(c *gin.Context) { Error(c, errors.New("dial tcp 10.0.0.1: refused")) })
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if body["error"] != "internal server error" || body["success"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestErrorFieldMap(t *testing.T) {
	w, body := run(t, func(c *gin.Context) {
		Error(c, apperr.Field("movieId", "is required"))
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	fields, ok := body["error"].(map[string]any)
	if !ok || fields["movieId"] != "is required" {
		t.Errorf("body = %v", body)
	}
}

func TestErrorForbidden(t *testing.T) {
	w, body := run(t, func(c *gin.Context) { Error(c, apperr.Forbidden()) })
	if w.Code != http.StatusForbidden || body["error"] != "not authorized" {
		t.Errorf("got %d %v", w.Code, body)
	}
}
