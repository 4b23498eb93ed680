package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserRole 用户角色
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User 用户模型，内部ID永远不对外暴露，对外统一使用 PublicID
type User struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	PublicID     string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"id"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(100);not null" json:"-"`
	DisplayName  string    `gorm:"type:varchar(100)" json:"displayName"`
	AvatarURL    string    `gorm:"type:varchar(255)" json:"avatarUrl"`
	Role         UserRole  `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserSummary 对外展示的用户摘要
type UserSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// Summary 生成用户摘要
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.PublicID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// Session 服务端会话，token 即 cookie 的值
type Session struct {
	Token     string    `gorm:"primaryKey;type:varchar(64)"`
	UserID    uint      `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

// Expired 会话是否过期
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Movie 电影，TMDBID 为外部目录ID（可空，唯一）
type Movie struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	TMDBID      *int64         `gorm:"uniqueIndex" json:"tmdbId,omitempty"`
	Title       string         `gorm:"type:varchar(255);not null;index" json:"title"`
	Overview    string         `gorm:"type:text" json:"overview"`
	PosterPath  string         `gorm:"type:varchar(255)" json:"posterPath"`
	ReleaseDate string         `gorm:"type:varchar(16)" json:"releaseDate"`
	Rating      float64        `gorm:"default:0" json:"rating"`
	Genres      datatypes.JSON `json:"genres"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// SuggestionStatus 推荐状态
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionRejected SuggestionStatus = "rejected"
)

// Suggestion 用户之间的电影推荐（有向边）
type Suggestion struct {
	ID          uint             `gorm:"primaryKey"`
	FromUserID  uint             `gorm:"not null;index:idx_suggestion_triple"`
	ToUserID    uint             `gorm:"not null;index:idx_suggestion_triple;index"`
	MovieID     uint             `gorm:"not null;index:idx_suggestion_triple"`
	Message     string           `gorm:"type:varchar(500)"`
	Status      SuggestionStatus `gorm:"type:varchar(16);not null;default:'pending';index"`
	RespondedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Movie Movie `gorm:"foreignKey:MovieID"`
}

// WatchDesire 想看：每个 (user, movie) 最多一条
type WatchDesire struct {
	ID           uint  `gorm:"primaryKey"`
	UserID       uint  `gorm:"not null;uniqueIndex:idx_desire_user_movie"`
	MovieID      uint  `gorm:"not null;uniqueIndex:idx_desire_user_movie"`
	Rating       int   `gorm:"not null;default:5"`
	SuggestionID *uint `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Movie Movie `gorm:"foreignKey:MovieID"`
}

// WatchedMovie 看过：每个 (user, movie) 一条，重复标记时更新
type WatchedMovie struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_watched_user_movie"`
	MovieID   uint      `gorm:"not null;uniqueIndex:idx_watched_user_movie"`
	WatchedAt time.Time `gorm:"not null;index"`
	Score     *int
	Reaction  string `gorm:"type:varchar(32)"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Movie Movie `gorm:"foreignKey:MovieID"`
}

// Event 观影活动
type Event struct {
	ID          uint      `gorm:"primaryKey"`
	HostID      uint      `gorm:"not null;index"`
	MovieID     uint      `gorm:"not null;index"`
	Title       string    `gorm:"type:varchar(200);not null"`
	Description string    `gorm:"type:text"`
	ScheduledAt time.Time `gorm:"not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Movie        Movie              `gorm:"foreignKey:MovieID"`
	Participants []EventParticipant `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
}

// EventParticipant 活动参与者
type EventParticipant struct {
	EventID  uint `gorm:"primaryKey"`
	UserID   uint `gorm:"primaryKey;index"`
	JoinedAt time.Time
}

// NotificationType 通知类型
type NotificationType string

const (
	NotificationFriendRequest      NotificationType = "friend_request"
	NotificationFriendAccepted     NotificationType = "friend_accepted"
	NotificationSuggestion         NotificationType = "suggestion"
	NotificationSuggestionAccepted NotificationType = "suggestion_accepted"
	NotificationEventInvite        NotificationType = "event_invite"
)

// Notification 用户收件箱
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index:idx_notification_user_read" json:"-"`
	Type      NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Payload   datatypes.JSON   `json:"payload"`
	Read      bool             `gorm:"column:is_read;not null;default:false;index:idx_notification_user_read" json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// SetupDatabase 初始化数据库表结构
func SetupDatabase(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Session{},
		&Movie{},
		&Suggestion{},
		&WatchDesire{},
		&WatchedMovie{},
		&Friendship{},
		&Event{},
		&EventParticipant{},
		&Notification{},
	)
}
