package user

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"movienight/internal/apperr"
	"movienight/internal/identity"
	"movienight/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type memRepo struct {
	mu     sync.Mutex
	nextID uint
	users  []*model.User
}

func (r *memRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	u.ID = r.nextID
	cp := *u
	r.users = append(r.users, &cp)
	return nil
}

func (r *memRepo) find(pred func(*model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if pred(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) FindByID(_ context.Context, id uint) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ID == id })
}

func (r *memRepo) FindByPublicID(_ context.Context, pid string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.PublicID == pid })
}

func (r *memRepo) FindByIDs(ctx context.Context, ids []uint) ([]model.User, error) {
	var out []model.User
	for _, id := range ids {
		if u, err := r.FindByID(ctx, id); err == nil {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *memRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *memRepo) FindByLogin(_ context.Context, login string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Username == login || u.Email == login })
}

func (r *memRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	_, err := r.find(func(u *model.User) bool { return u.Username == username || u.Email == email })
	return err == nil, nil
}

func (r *memRepo) Search(_ context.Context, q string, exclude uint, limit int) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		if u.ID != exclude && strings.Contains(u.Username, q) && len(out) < limit {
			out = append(out, *u)
		}
	}
	return out, nil
}

type memSessions struct {
	mu     sync.Mutex
	tokens map[string]uint
	n      int
}

func (s *memSessions) Create(_ context.Context, userID uint) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	tok := strings.Repeat("t", s.n)
	s.tokens[tok] = userID
	return &model.Session{Token: tok, UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *memSessions) Resolve(context.Context, string) (*model.User, error) {
	return nil, apperr.Unauthenticated("unused")
}

func (s *memSessions) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func newService() (AccountService, *memRepo, *memSessions) {
	repo := &memRepo{}
	sessions := &memSessions{tokens: map[string]uint{}}
	svc := NewAccountService(repo, sessions, identity.NewMapper(repo, true), []string{"Admin@Example.com"}, zap.NewNop())
	return svc, repo, sessions
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, sessions := newService()
	ctx := context.Background()

	res, err := svc.Register(ctx, &RegisterRequest{Username: "alice", Email: "Alice@Example.com", Password: "password1"})
	if err != nil {
		t.Fatal(err)
	}
	if res.User.PublicID == "" || res.User.Role != model.RoleUser || res.User.Email != "alice@example.com" {
		t.Errorf("unexpected user %+v", res.User)
	}
	if res.User.DisplayName != "alice" {
		t.Errorf("display name should default to username, got %q", res.User.DisplayName)
	}
	if res.User.PasswordHash == "password1" {
		t.Error("password must be hashed")
	}

	_, err = svc.Register(ctx, &RegisterRequest{Username: "alice", Email: "other@example.com", Password: "password1"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("duplicate username: err = %v", err)
	}

	login, err := svc.Login(ctx, &LoginRequest{Login: "ALICE@example.com", Password: "password1"})
	if err != nil {
		t.Fatal(err)
	}
	if login.User.ID != res.User.ID {
		t.Error("login resolved a different user")
	}

	_, err = svc.Login(ctx, &LoginRequest{Login: "alice", Password: "wrong-password"})
	if !apperr.Is(err, apperr.KindUnauthenticated) {
		t.Errorf("wrong password: err = %v", err)
	}
	_, err = svc.Login(ctx, &LoginRequest{Login: "nobody", Password: "password1"})
	if !apperr.Is(err, apperr.KindUnauthenticated) {
		t.Errorf("unknown user: err = %v", err)
	}

	if err := svc.Logout(ctx, login.Session.Token); err != nil {
		t.Fatal(err)
	}
	if _, ok := sessions.tokens[login.Session.Token]; ok {
		t.Error("logout should delete the session")
	}
}

func TestRegisterAdminEmail(t *testing.T) {
	svc, _, _ := newService()
	res, err := svc.Register(context.Background(), &RegisterRequest{Username: "root", Email: "admin@example.com", Password: "password1"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.User.IsAdmin() {
		t.Error("configured admin email should register as admin")
	}
}

func TestProfileAndSearch(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	a, _ := svc.Register(ctx, &RegisterRequest{Username: "alice", Email: "a@example.com", Password: "password1"})
	b, _ := svc.Register(ctx, &RegisterRequest{Username: "alicia", Email: "b@example.com", Password: "password1"})

	p, err := svc.Profile(ctx, b.User.PublicID)
	if err != nil || p.Username != "alicia" {
		t.Fatalf("Profile = %+v, %v", p, err)
	}
	if _, err := svc.Profile(ctx, "missing"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("missing profile: err = %v", err)
	}

	found, err := svc.Search(ctx, a.User.ID, "ali")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].ID != b.User.PublicID {
		t.Errorf("Search = %+v", found)
	}
	if _, err := svc.Search(ctx, a.User.ID, "a"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("short query: err = %v", err)
	}
}
