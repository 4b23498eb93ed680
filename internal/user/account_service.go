package user

import (
	"context"
	"errors"
	"strings"

	"movienight/internal/apperr"
	"movienight/internal/constants"
	"movienight/internal/identity"
	"movienight/internal/model"
	"movienight/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AccountService 账号与会话
type AccountService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResult, error)
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, externalID string) (*model.UserSummary, error)
	Search(ctx context.Context, viewerID uint, query string) ([]model.UserSummary, error)
}

type accountService struct {
	users       Repository
	sessions    session.Store
	ids         *identity.Mapper
	adminEmails map[string]struct{}
	log         *zap.Logger
}

var _ AccountService = (*accountService)(nil)

func NewAccountService(users Repository, sessions session.Store, ids *identity.Mapper, adminEmails []string, log *zap.Logger) AccountService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		admins[normalizeEmail(e)] = struct{}{}
	}
	return &accountService{
		users:       users,
		sessions:    sessions,
		ids:         ids,
		adminEmails: admins,
		log:         log,
	}
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// Register 注册新用户并创建会话
func (s *accountService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)

	// 检查用户名或邮箱是否已存在
	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict("username or email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = username
	}
	u := &model.User{
		PublicID:     uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		DisplayName:  displayName,
		AvatarURL:    req.AvatarURL,
		Role:         model.RoleUser,
	}
	if _, ok := s.adminEmails[email]; ok {
		u.Role = model.RoleAdmin
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("username or email already registered")
		}
		return nil, err
	}

	sess, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("用户注册成功", zap.String("user", u.PublicID), zap.String("role", string(u.Role)))
	return &AuthResult{User: u, Session: sess}, nil
}

// Login 用户登录，用户不存在和密码错误返回同样的错误
func (s *accountService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	login := strings.TrimSpace(req.Login)
	if strings.Contains(login, "@") {
		login = normalizeEmail(login)
	}

	u, err := s.users.FindByLogin(ctx, login)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthenticated("invalid credentials")
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		s.log.Debug("密码验证失败", zap.String("user", u.PublicID))
		return nil, apperr.Unauthenticated("invalid credentials")
	}

	sess, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("用户登录成功", zap.String("user", u.PublicID))
	return &AuthResult{User: u, Session: sess}, nil
}

func (s *accountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// Profile 通过外部ID获取用户摘要
func (s *accountService) Profile(ctx context.Context, externalID string) (*model.UserSummary, error) {
	u, found, err := s.ids.ResolveUser(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound(constants.ErrUserNotFound)
	}
	sum := u.Summary()
	return &sum, nil
}

// Search 搜索用户，不包含自己
func (s *accountService) Search(ctx context.Context, viewerID uint, query string) ([]model.UserSummary, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, apperr.Field("q", "must be at least 2 characters")
	}
	users, err := s.users.Search(ctx, query, viewerID, constants.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	out := make([]model.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out, nil
}
