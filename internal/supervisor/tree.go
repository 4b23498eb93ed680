// Package supervisor 后台服务的 suture 监督树
package supervisor

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"
	"go.uber.org/zap"
)

// TreeConfig 重启策略
type TreeConfig struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree 根节点下分三层：数据（目录同步）、实时（推送注册表）、接口（HTTP）
type Tree struct {
	root     *suture.Supervisor
	data     *suture.Supervisor
	realtime *suture.Supervisor
	api      *suture.Supervisor
}

func NewTree(log *zap.Logger, config TreeConfig) *Tree {
	def := DefaultTreeConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = def.FailureDecay
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = def.FailureBackoff
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = def.ShutdownTimeout
	}

	rootSpec := suture.Spec{
		EventHook:        EventHook(log.Named("supervisor")),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	t := &Tree{
		root:     suture.New("movienight", rootSpec),
		data:     suture.New("data-layer", childSpec),
		realtime: suture.New("realtime-layer", childSpec),
		api:      suture.New("api-layer", childSpec),
	}
	t.root.Add(t.data)
	t.root.Add(t.realtime)
	t.root.Add(t.api)
	return t
}

func (t *Tree) AddDataService(svc suture.Service) suture.ServiceToken {
	return t.data.Add(svc)
}

func (t *Tree) AddRealtimeService(svc suture.Service) suture.ServiceToken {
	return t.realtime.Add(svc)
}

func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve 阻塞直到 ctx 取消
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// EventHook 把 suture 事件写到 zap
func EventHook(log *zap.Logger) suture.EventHook {
	return func(e suture.Event) {
		switch ev := e.(type) {
		case suture.EventServicePanic:
			log.Error("服务 panic",
				zap.String("supervisor", ev.SupervisorName),
				zap.String("service", ev.ServiceName),
				zap.String("panic", ev.PanicMsg),
				zap.String("stack", ev.Stacktrace),
				zap.Bool("restarting", ev.Restarting))
		case suture.EventServiceTerminate:
			log.Warn("服务退出",
				zap.String("supervisor", ev.SupervisorName),
				zap.String("service", ev.ServiceName),
				zap.Any("error", ev.Err),
				zap.Bool("restarting", ev.Restarting))
		case suture.EventBackoff:
			log.Warn("失败次数过多，进入退避", zap.String("supervisor", ev.SupervisorName))
		case suture.EventResume:
			log.Info("退避结束，恢复重启", zap.String("supervisor", ev.SupervisorName))
		case suture.EventStopTimeout:
			log.Error("服务停止超时",
				zap.String("supervisor", ev.SupervisorName),
				zap.String("service", ev.ServiceName))
		default:
			log.Info(e.String())
		}
	}
}
