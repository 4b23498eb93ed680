package realtime

import (
	"sync"
	"time"

	"movienight/internal/constants"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 连接超时与心跳
const (
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 4096
	SendBuffer     = 64
)

// Client 一个 WebSocket 连接
type Client struct {
	registry *Registry
	conn     *websocket.Conn
	userID   uint
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	log      *zap.Logger
}

func newClient(r *Registry, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		registry: r,
		conn:     conn,
		userID:   userID,
		send:     make(chan []byte, SendBuffer),
		done:     make(chan struct{}),
		log:      r.log.With(zap.Uint("user_id", userID)),
	}
}

// UserID 连接所属用户
func (c *Client) UserID() uint {
	return c.userID
}

// enqueue 缓冲区满时丢弃，不阻塞推送方
func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// sendFrame 直接向本连接发送一条消息
func (c *Client) sendFrame(frameType string, data any) bool {
	f, err := NewFrame(frameType, data)
	if err != nil {
		return false
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return false
	}
	return c.enqueue(raw)
}

// Close 通知写协程发送关闭帧并断开连接，可重复调用
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// readPump 读取客户端消息，只响应 ping，连接断开时注销
func (c *Client) readPump() {
	defer func() {
		c.registry.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("WebSocket读取错误", zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait))

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == constants.MessageTypePing {
			c.sendFrame(constants.MessageTypePong, nil)
		}
	}
}

// writePump 写出队列中的消息并定期发送 ping
func (c *Client) writePump() {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(WriteWait))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("WebSocket写入失败", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
