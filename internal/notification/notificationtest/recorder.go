// Package notificationtest 记录通知调用，供业务流程测试断言
package notificationtest

import (
	"context"
	"sync"

	"movienight/internal/model"
)

// Sent 一次通知调用
type Sent struct {
	UserID  uint
	Type    model.NotificationType
	Payload any
}

// Recorder 实现 notification.Notifier
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
}

func (r *Recorder) Notify(_ context.Context, userID uint, typ model.NotificationType, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{UserID: userID, Type: typ, Payload: payload})
}

// All 返回全部记录的副本
func (r *Recorder) All() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Of 返回某个类型的记录
func (r *Recorder) Of(typ model.NotificationType) []Sent {
	var out []Sent
	for _, s := range r.All() {
		if s.Type == typ {
			out = append(out, s)
		}
	}
	return out
}
