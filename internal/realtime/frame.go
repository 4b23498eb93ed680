package realtime

import (
	"time"

	"github.com/goccy/go-json"
)

// Frame 服务端推送给客户端的消息
type Frame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewFrame 把 data 序列化后封装为 Frame
func NewFrame(frameType string, data any) (*Frame, error) {
	f := &Frame{Type: frameType, Timestamp: time.Now().Unix()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		f.Data = raw
	}
	return f, nil
}

// Envelope 跨实例转发的消息，Origin 为发送方实例ID
type Envelope struct {
	Origin string `json:"origin"`
	UserID uint   `json:"userId"`
	Frame  *Frame `json:"frame"`
}

// inbound 客户端发来的消息，只处理 ping
type inbound struct {
	Type string `json:"type"`
}
