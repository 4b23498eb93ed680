package identity

import (
	"context"
	"testing"

	"movienight/internal/identity/identitytest"
	"movienight/internal/model"
)

func newUsers() *identitytest.Users {
	return identitytest.NewUsers(
		&model.User{ID: 1, PublicID: "6f1c2d8e-0000-4000-8000-000000000001", Username: "alice"},
		&model.User{ID: 2, PublicID: "6f1c2d8e-0000-4000-8000-000000000002", Username: "bob"},
	)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		fallback  bool
		external  string
		wantID    uint
		wantFound bool
	}{
		{"public id", true, "6f1c2d8e-0000-4000-8000-000000000002", 2, true},
		{"internal fallback", true, "1", 1, true},
		{"fallback disabled", false, "1", 0, false},
		{"unknown numeric", true, "99", 0, false},
		{"zero", true, "0", 0, false},
		{"garbage", true, "not-a-user", 0, false},
		{"empty", true, "  ", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMapper(newUsers(), tt.fallback)
			id, found, err := m.Resolve(ctx, tt.external)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.wantID || found != tt.wantFound {
				t.Errorf("Resolve(%q) = (%d, %v), want (%d, %v)", tt.external, id, found, tt.wantID, tt.wantFound)
			}
		})
	}
}

func TestSummaries(t *testing.T) {
	m := NewMapper(newUsers(), true)
	got, err := m.Summaries(context.Background(), 1, 2, 1, 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[2].Username != "bob" || got[2].ID != "6f1c2d8e-0000-4000-8000-000000000002" {
		t.Errorf("summary = %+v", got[2])
	}
}
