package session

import (
	"encoding/hex"
	"testing"
)

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewToken()
	if a == b {
		t.Fatal("tokens should be random")
	}
	raw, err := hex.DecodeString(a)
	if err != nil || len(raw) != 32 {
		t.Errorf("token %q is not 32 hex-encoded bytes", a)
	}
}

func TestCacheKey(t *testing.T) {
	if got := cacheKey("abc"); got != "session:abc" {
		t.Errorf("cacheKey = %q", got)
	}
}
