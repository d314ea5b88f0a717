package server

import (
	"net"

	"github.com/Trinoooo/eggie_echo/consts"
	"github.com/Trinoooo/eggie_echo/server/connections"
	"github.com/Trinoooo/eggie_echo/server/logs"
	"github.com/Trinoooo/eggie_echo/server/poller"
	"github.com/luci/go-render/render"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// EventLoopServer 单线程事件循环：poll -> 逐个分发事件 -> 再次 poll。
// 除 Close 外的所有方法都只能在运行循环的 goroutine 上调用。
type EventLoopServer struct {
	cfg        *Config
	poller     poller.Poller
	listener   connections.IListener
	registry   *Registry
	dispatcher *Dispatcher
	observers  Observers
	metrics    *MetricsHelper
	events     []poller.Pevent
}

type Option func(srv *EventLoopServer)

// WithObserver 追加一个观察者，默认只有日志观察者
func WithObserver(o Observer) Option {
	return func(srv *EventLoopServer) {
		srv.observers = append(srv.observers, o)
	}
}

// WithMetrics 接入 prometheus 指标，配置了 MetricsPushURL 时同时启动 pusher
func WithMetrics(mh *MetricsHelper) Option {
	return func(srv *EventLoopServer) {
		srv.metrics = mh
	}
}

func WithPoller(p poller.Poller) Option {
	return func(srv *EventLoopServer) {
		srv.poller = p
	}
}

func WithListener(l connections.IListener) Option {
	return func(srv *EventLoopServer) {
		srv.listener = l
	}
}

func NewEventLoopServer(cfg *Config, opts ...Option) (*EventLoopServer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	srv := &EventLoopServer{
		cfg:       cfg,
		observers: Observers{LogObserver{}},
		events:    make([]poller.Pevent, cfg.MaxEvents),
	}
	for _, opt := range opts {
		opt(srv)
	}

	var err error
	if srv.poller == nil {
		if srv.poller, err = poller.New(cfg.MaxEvents); err != nil {
			return nil, err
		}
	}

	if srv.listener == nil {
		if srv.listener, err = connections.Listen(cfg.Host, cfg.Port, cfg.Backlog); err != nil {
			return nil, srv.release(err)
		}
	}

	if srv.registry, err = NewRegistry(srv.poller, srv.listener); err != nil {
		if e := srv.listener.Close(); e != nil {
			err = errors.Wrap(err, e.Error())
		}
		return nil, srv.release(err)
	}

	if srv.metrics != nil {
		srv.observers = append(srv.observers, srv.metrics)
		if cfg.MetricsPushURL != "" {
			srv.metrics.StartPusher(cfg.MetricsPushURL, cfg.MetricsPushInterval)
		}
	}

	srv.dispatcher = NewDispatcher(srv.registry, srv.observers, cfg.RecvBufferSize)
	logs.Info("starting up", zap.Stringer(consts.LogFieldValue, srv.Addr()), zap.String(consts.LogFieldParams, render.Render(cfg)))
	return srv, nil
}

// release 在构造失败时关闭已经创建的 poller
func (srv *EventLoopServer) release(err error) error {
	if e := srv.poller.Close(); e != nil {
		err = errors.Wrap(err, e.Error())
	}
	return err
}

// RunOnce 执行一轮 poll 并分发本轮所有事件，返回事件数。
// 只有 poller 自身失败时才返回错误，单个连接的失败在分发时就地拆链。
func (srv *EventLoopServer) RunOnce() (int, error) {
	n, err := srv.poller.Wait(srv.events, srv.cfg.PollTimeout)
	if err != nil {
		return 0, err
	}

	for i := 0; i < n; i++ {
		out := srv.dispatcher.Dispatch(srv.events[i])
		if out.From != out.To {
			logs.Debug("state transition",
				zap.Int(consts.LogFieldFd, out.Fd),
				zap.String(consts.LogFieldParams, out.Rule),
				zap.Stringer(consts.LogFieldFrom, out.From),
				zap.Stringer(consts.LogFieldTo, out.To),
			)
		}
	}
	return n, nil
}

// Serve 无限循环，正常情况下不会返回
func (srv *EventLoopServer) Serve() error {
	logs.Info("event loop start", zap.Stringer(consts.LogFieldValue, srv.Addr()))
	for {
		logs.Debug("waiting for the next event")
		if _, err := srv.RunOnce(); err != nil {
			logs.Error("event loop stop", zap.Error(err))
			return err
		}
	}
}

func (srv *EventLoopServer) Addr() net.Addr {
	return srv.listener.Addr()
}

// Len 当前存活的连接数，不含监听 socket
func (srv *EventLoopServer) Len() int {
	return srv.registry.Len()
}

func (srv *EventLoopServer) Registry() *Registry {
	return srv.registry
}

// Close 释放所有 socket 与 poller，不通知循环退出
func (srv *EventLoopServer) Close() error {
	if srv.metrics != nil {
		srv.metrics.Stop()
	}
	err := srv.registry.Close()
	if e := srv.poller.Close(); e != nil {
		if err != nil {
			err = errors.Wrap(err, e.Error())
		} else {
			err = e
		}
	}
	return err
}
