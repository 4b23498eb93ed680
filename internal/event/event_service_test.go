package event

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"movienight/internal/apperr"
	"movienight/internal/constants"
	"movienight/internal/identity"
	"movienight/internal/identity/identitytest"
	"movienight/internal/model"
	"movienight/internal/movie"
	"movienight/internal/notification/notificationtest"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type memRepo struct {
	mu         sync.Mutex
	nextID     uint
	events     map[uint]model.Event
	failCreate error
}

func newMemRepo() *memRepo {
	return &memRepo{events: map[uint]model.Event{}}
}

func (r *memRepo) Transaction(_ context.Context, fn func(tx Repository) error) error {
	return fn(r)
}

func (r *memRepo) Create(_ context.Context, e *model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	r.nextID++
	e.ID = r.nextID
	e.CreatedAt = time.Now()
	for i := range e.Participants {
		e.Participants[i].EventID = e.ID
	}
	cp := *e
	cp.Participants = append([]model.EventParticipant(nil), e.Participants...)
	r.events[e.ID] = cp
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id uint) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	e.Participants = append([]model.EventParticipant(nil), e.Participants...)
	return &e, nil
}

func (r *memRepo) matching(userID uint, from *time.Time) []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Event
	for _, e := range r.events {
		if e.HostID != userID && !isParticipant(&e, userID) {
			continue
		}
		if from != nil && e.ScheduledAt.Before(*from) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

func (r *memRepo) ListForUser(_ context.Context, userID uint, from *time.Time, _ int) ([]model.Event, error) {
	return r.matching(userID, from), nil
}

func (r *memRepo) CountUpcoming(_ context.Context, userID uint, from time.Time) (int64, error) {
	return int64(len(r.matching(userID, &from))), nil
}

func (r *memRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, id)
	return nil
}

func (r *memRepo) AddParticipant(_ context.Context, p *model.EventParticipant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.events[p.EventID]
	for _, x := range e.Participants {
		if x.UserID == p.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	e.Participants = append(e.Participants, *p)
	r.events[p.EventID] = e
	return nil
}

func (r *memRepo) RemoveParticipant(_ context.Context, eventID, userID uint) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.events[eventID]
	for i, x := range e.Participants {
		if x.UserID == userID {
			e.Participants = append(e.Participants[:i], e.Participants[i+1:]...)
			r.events[eventID] = e
			return 1, nil
		}
	}
	return 0, nil
}

type fakeMovies struct{}

func (fakeMovies) Resolve(_ context.Context, ref movie.Ref) (*model.Movie, error) {
	if ref.MovieID == 7 {
		return &model.Movie{ID: 7, Title: "Arrival"}, nil
	}
	return nil, apperr.NotFound(constants.ErrMovieNotFound)
}

const (
	hostPublic  = "00000000-0000-4000-8000-0000000000a1"
	guestPublic = "00000000-0000-4000-8000-0000000000b2"
	otherPublic = "00000000-0000-4000-8000-0000000000c3"
)

var now = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func newService() (*service, *memRepo, *notificationtest.Recorder) {
	repo := newMemRepo()
	ids := identity.NewMapper(identitytest.NewUsers(
		&model.User{ID: 1, PublicID: hostPublic, Username: "host"},
		&model.User{ID: 2, PublicID: guestPublic, Username: "guest"},
		&model.User{ID: 3, PublicID: otherPublic, Username: "other"},
	), true)
	notes := &notificationtest.Recorder{}
	svc := NewService(repo, fakeMovies{}, ids, notes, zap.NewNop()).(*service)
	svc.now = func() time.Time { return now }
	return svc, repo, notes
}

func createReq(participants ...string) *CreateEventRequest {
	return &CreateEventRequest{
		Ref:            movie.Ref{MovieID: 7},
		Title:          "Friday night",
		ScheduledAt:    now.Add(24 * time.Hour),
		ParticipantIDs: participants,
	}
}

func TestCreateEvent(t *testing.T) {
	svc, _, notes := newService()
	v, err := svc.Create(context.Background(), 1, createReq(guestPublic, hostPublic, guestPublic))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v.Host.ID != hostPublic || v.Movie == nil || v.Movie.Title != "Arrival" {
		t.Fatalf("unexpected view %+v", v)
	}
	if len(v.Participants) != 1 || v.Participants[0].ID != guestPublic {
		t.Fatalf("host must be excluded and duplicates dropped, got %+v", v.Participants)
	}
	invites := notes.Of(model.NotificationEventInvite)
	if len(invites) != 1 || invites[0].UserID != 2 {
		t.Fatalf("expected one invite for the guest, got %+v", invites)
	}
}

func TestCreateEventErrors(t *testing.T) {
	tests := []struct {
		name string
		req  *CreateEventRequest
		want apperr.Kind
	}{
		{"unknown participant", createReq("ghost"), apperr.KindNotFound},
		{"unknown movie", &CreateEventRequest{Ref: movie.Ref{MovieID: 8}, Title: "x", ScheduledAt: now}, apperr.KindNotFound},
		{"missing movie", &CreateEventRequest{Title: "x", ScheduledAt: now}, apperr.KindValidation},
		{"missing date", &CreateEventRequest{Ref: movie.Ref{MovieID: 7}, Title: "x"}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, notes := newService()
			if _, err := svc.Create(context.Background(), 1, tt.req); !apperr.Is(err, tt.want) {
				t.Fatalf("expected %s, got %v", tt.want, err)
			}
			if len(repo.events) != 0 || len(notes.All()) != 0 {
				t.Fatalf("nothing may be written on failure")
			}
		})
	}
}

func TestCreateEventFailureSendsNoInvites(t *testing.T) {
	svc, repo, notes := newService()
	repo.failCreate = errors.New("deadlock")
	if _, err := svc.Create(context.Background(), 1, createReq(guestPublic)); err == nil {
		t.Fatal("expected error")
	}
	if len(notes.All()) != 0 {
		t.Fatalf("invites must only go out after the event is stored")
	}
}

func TestEventAccess(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService()
	v, _ := svc.Create(ctx, 1, createReq(guestPublic))

	if _, err := svc.Get(ctx, 2, v.ID); err != nil {
		t.Fatalf("participant may view: %v", err)
	}
	if _, err := svc.Get(ctx, 3, v.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("outsider must be forbidden, got %v", err)
	}
	if _, err := svc.Get(ctx, 1, 99); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Delete(ctx, 2, v.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("only the host may delete, got %v", err)
	}
	if _, err := svc.AddParticipant(ctx, 2, v.ID, otherPublic); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("only the host may invite, got %v", err)
	}
	if err := svc.Delete(ctx, 1, v.ID); err != nil {
		t.Fatalf("host delete: %v", err)
	}
	if _, err := svc.Get(ctx, 1, v.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("deleted event must be gone, got %v", err)
	}
}

func TestParticipants(t *testing.T) {
	ctx := context.Background()
	svc, _, notes := newService()
	v, _ := svc.Create(ctx, 1, createReq())

	got, err := svc.AddParticipant(ctx, 1, v.ID, otherPublic)
	if err != nil || len(got.Participants) != 1 {
		t.Fatalf("add participant: %+v, %v", got, err)
	}
	if len(notes.Of(model.NotificationEventInvite)) != 1 {
		t.Fatalf("new participant must be invited")
	}
	if _, err := svc.AddParticipant(ctx, 1, v.ID, otherPublic); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := svc.AddParticipant(ctx, 1, v.ID, hostPublic); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("host cannot be a participant, got %v", err)
	}

	if err := svc.Leave(ctx, 1, v.ID); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("host cannot leave, got %v", err)
	}
	if err := svc.Leave(ctx, 3, v.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if err := svc.Leave(ctx, 3, v.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("leaving twice must be forbidden, got %v", err)
	}
}

func TestListUpcoming(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService()
	past := createReq(guestPublic)
	past.ScheduledAt = now.Add(-time.Hour)
	if _, err := svc.Create(ctx, 1, past); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, 1, createReq(guestPublic)); err != nil {
		t.Fatal(err)
	}

	all, _ := svc.List(ctx, 2, false)
	upcoming, _ := svc.List(ctx, 2, true)
	if len(all) != 2 || len(upcoming) != 1 {
		t.Fatalf("expected 2 events and 1 upcoming, got %d and %d", len(all), len(upcoming))
	}
	if n, _ := svc.CountUpcoming(ctx, 1); n != 1 {
		t.Fatalf("expected 1 upcoming for the host, got %d", n)
	}
	if others, _ := svc.List(ctx, 3, false); len(others) != 0 {
		t.Fatalf("outsider sees nothing, got %d", len(others))
	}
}
