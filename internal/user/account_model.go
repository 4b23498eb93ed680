package user

import (
	"time"

	"movienight/internal/model"
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=50,alphanum"`
	Email       string `json:"email" binding:"required,email,max=255"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	DisplayName string `json:"displayName" binding:"omitempty,max=100"`
	AvatarURL   string `json:"avatarUrl" binding:"omitempty,url,max=255"`
}

// LoginRequest 登录请求，login 为用户名或邮箱
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResult 注册/登录结果
type AuthResult struct {
	User    *model.User
	Session *model.Session
}

// UserResponse 当前用户信息
type UserResponse struct {
	ID          string         `json:"id"`
	Username    string         `json:"username"`
	Email       string         `json:"email"`
	DisplayName string         `json:"displayName"`
	AvatarURL   string         `json:"avatarUrl"`
	Role        model.UserRole `json:"role"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func toUserResponse(u *model.User) *UserResponse {
	return &UserResponse{
		ID:          u.PublicID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
	}
}
