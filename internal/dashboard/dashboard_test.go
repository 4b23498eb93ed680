package dashboard

import (
	"context"
	"errors"
	"testing"

	"movienight/internal/event"
	"movienight/internal/model"
	"movienight/internal/watch"
)

type stub struct {
	err error
}

func (s stub) ListReceived(context.Context, uint, model.SuggestionStatus) ([]watch.SuggestionView, error) {
	return []watch.SuggestionView{{ID: 1, Status: model.SuggestionPending}}, s.err
}

func (s stub) CountDesires(context.Context, uint) (int64, error) {
	return 3, nil
}

func (s stub) CountWatched(context.Context, uint) (int64, error) {
	return 4, nil
}

func (s stub) Count(context.Context, uint) (int64, error) {
	return 5, nil
}

func (s stub) UnreadCount(context.Context, uint) (int64, error) {
	return 6, nil
}

func (s stub) List(context.Context, uint, bool) ([]event.View, error) {
	return []event.View{{ID: 9}}, nil
}

func TestGet(t *testing.T) {
	s := stub{}
	svc := NewService(s, s, s, s, s)
	sum, err := svc.Get(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.PendingSuggestions) != 1 || sum.DesireCount != 3 || sum.WatchedCount != 4 ||
		sum.FriendCount != 5 || sum.UnreadNotifications != 6 || len(sum.UpcomingEvents) != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestGetFailsWhenAnyPartFails(t *testing.T) {
	boom := errors.New("boom")
	s := stub{err: boom}
	svc := NewService(s, s, s, s, s)
	if _, err := svc.Get(context.Background(), 1); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
