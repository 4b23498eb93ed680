package mq

import (
	"encoding/json"
	"time"
)

// 通知事件 exchange，routing key 为通知类型
const (
	NotificationExchange     = "movienight.notifications"
	NotificationExchangeKind = "topic"
)

// NotificationEvent 发给外部推送服务的消息
type NotificationEvent struct {
	NotificationID uint            `json:"notification_id"`
	UserID         string          `json:"user_id"`
	Type           string          `json:"type"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
