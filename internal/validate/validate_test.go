package validate

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"movienight/internal/apperr"

	"github.com/gin-gonic/gin"
)

type createReq struct {
	ToUserID string `json:"toUserId" binding:"required"`
	Rating   *int   `json:"rating" binding:"omitempty,min=1,max=10"`
	Name     string `json:"name" binding:"omitempty,min=3"`
}

func bind(t *testing.T, body string) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var req createReq
	return BindJSON(c, &req)
}

func TestBindJSONFieldErrors(t *testing.T) {
	err := bind(t, `{"rating": 11, "name": "ab"}`)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	ae := err.(*apperr.Error)
	want := map[string]string{
		"toUserId": "is required",
		"rating":   "must be <= 10",
		"name":     "must be at least 3 characters",
	}
	for k, v := range want {
		if ae.Fields[k] != v {
			t.Errorf("Fields[%q] = %q, want %q", k, ae.Fields[k], v)
		}
	}
}

func TestBindJSONMalformed(t *testing.T) {
	err := bind(t, `{"toUserId":`)
	if apperr.Status(err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestBindJSONOK(t *testing.T) {
	if err := bind(t, `{"toUserId":"abc","rating":5}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
