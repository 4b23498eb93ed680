package model

import "time"

// FriendshipStatus 好友关系状态
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipRejected FriendshipStatus = "rejected"
)

// Friendship 表示好友关系，无序对按 UserID1 < UserID2 存储
type Friendship struct {
	ID          uint             `gorm:"primaryKey"`
	UserID1     uint             `gorm:"column:user_id1;not null;uniqueIndex:idx_friend_pair"`
	UserID2     uint             `gorm:"column:user_id2;not null;uniqueIndex:idx_friend_pair;index"`
	Status      FriendshipStatus `gorm:"type:varchar(16);not null;default:'pending'"`
	RequestedBy uint             `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName 指定表名
func (Friendship) TableName() string {
	return "friendships"
}

// CanonicalPair 返回规范化的用户对（小ID在前）
func CanonicalPair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// Involves 用户是否是该关系的一方
func (f *Friendship) Involves(userID uint) bool {
	return f.UserID1 == userID || f.UserID2 == userID
}

// Other 返回关系中的另一方
func (f *Friendship) Other(userID uint) uint {
	if f.UserID1 == userID {
		return f.UserID2
	}
	return f.UserID1
}
