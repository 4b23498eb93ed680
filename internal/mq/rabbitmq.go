package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func NewMQConn(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// SetupExchange 声明持久化的 exchange
func SetupExchange(ch *amqp.Channel, name, kind string) error {
	return ch.ExchangeDeclare(name, kind, true, false, false, false, nil)
}

// Publisher 向 exchange 发布 JSON 消息，连接断开时在下次发布时重连
type Publisher struct {
	url      string
	exchange string
	log      *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url, exchange string, log *zap.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = NotificationExchange
	}
	p := &Publisher{url: url, exchange: exchange, log: log.Named("mq")}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := NewMQConn(p.url)
		if err != nil {
			return fmt.Errorf("连接 RabbitMQ 失败: %w", err)
		}
		p.conn = conn
		p.ch = nil
	}
	if p.ch == nil || p.ch.IsClosed() {
		ch, err := p.conn.Channel()
		if err != nil {
			return err
		}
		if err := SetupExchange(ch, p.exchange, NotificationExchangeKind); err != nil {
			_ = ch.Close()
			return err
		}
		p.ch = ch
	}
	return nil
}

// Publish 序列化 message 并发布
func (p *Publisher) Publish(ctx context.Context, routingKey string, message any) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return err
	}

	err = p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message to exchange %s: %w", p.exchange, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	p.log.Info("RabbitMQ 连接已关闭")
	return errors.Join(errs...)
}
