package server

import (
	"github.com/Trinoooo/eggie_echo/consts"
	"github.com/Trinoooo/eggie_echo/errs"
	"github.com/Trinoooo/eggie_echo/server/logs"
	"github.com/Trinoooo/eggie_echo/server/poller"
	"go.uber.org/zap"
)

// Observer 接收连接生命周期与队列状态事件。
// 回调在事件循环 goroutine 上同步执行，实现不能阻塞。
type Observer interface {
	OnAccept(c *Connection)
	OnAcceptFailure(err error)
	OnReceive(c *Connection, n int)
	OnSend(c *Connection, n int)
	OnInterestChange(c *Connection, from, to poller.Interest)
	OnClose(c *Connection, reason error)
}

// Observers 把事件依次分发给每个 Observer
type Observers []Observer

var _ Observer = Observers{}

func (obs Observers) OnAccept(c *Connection) {
	for _, o := range obs {
		o.OnAccept(c)
	}
}

func (obs Observers) OnAcceptFailure(err error) {
	for _, o := range obs {
		o.OnAcceptFailure(err)
	}
}

func (obs Observers) OnReceive(c *Connection, n int) {
	for _, o := range obs {
		o.OnReceive(c, n)
	}
}

func (obs Observers) OnSend(c *Connection, n int) {
	for _, o := range obs {
		o.OnSend(c, n)
	}
}

func (obs Observers) OnInterestChange(c *Connection, from, to poller.Interest) {
	for _, o := range obs {
		o.OnInterestChange(c, from, to)
	}
}

func (obs Observers) OnClose(c *Connection, reason error) {
	for _, o := range obs {
		o.OnClose(c, reason)
	}
}

type NopObserver struct{}

var _ Observer = NopObserver{}

func (NopObserver) OnAccept(*Connection) {}
func (NopObserver) OnAcceptFailure(error) {}
func (NopObserver) OnReceive(*Connection, int) {}
func (NopObserver) OnSend(*Connection, int) {}
func (NopObserver) OnInterestChange(*Connection, poller.Interest, poller.Interest) {}
func (NopObserver) OnClose(*Connection, error) {}

// LogObserver 把生命周期事件写入 zap 日志
type LogObserver struct{}

var _ Observer = LogObserver{}

func connFields(c *Connection, fields ...zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.String(consts.LogFieldConnId, c.Id()),
		zap.Int(consts.LogFieldFd, c.Fd()),
		zap.Stringer(consts.LogFieldRemoteAddr, c.RemoteAddr()),
	}, fields...)
}

func (LogObserver) OnAccept(c *Connection) {
	logs.Info("new connection", connFields(c)...)
}

func (LogObserver) OnAcceptFailure(err error) {
	logs.Warn("accept connection failed", zap.Error(err))
}

func (LogObserver) OnReceive(c *Connection, n int) {
	logs.Debug("received chunk", connFields(c, zap.Int(consts.LogFieldBytes, n), zap.Int(consts.LogFieldValue, c.Pending()))...)
}

func (LogObserver) OnSend(c *Connection, n int) {
	logs.Debug("sent chunk", connFields(c, zap.Int(consts.LogFieldBytes, n), zap.Int(consts.LogFieldValue, c.Pending()))...)
}

func (LogObserver) OnInterestChange(c *Connection, from, to poller.Interest) {
	if to == poller.ReadOnly {
		logs.Debug("output queue is empty", connFields(c)...)
	}
	logs.Debug("interest changed", connFields(c, zap.Stringer(consts.LogFieldFrom, from), zap.Stringer(consts.LogFieldTo, to))...)
}

func (LogObserver) OnClose(c *Connection, reason error) {
	logs.Info("closing connection", connFields(c, zap.String(consts.LogFieldReason, ReasonLabel(reason)), zap.Error(reason))...)
}

// ReasonLabel 把拆链原因映射为稳定的短标签，用于日志与 metrics label
func ReasonLabel(reason error) string {
	switch errs.GetCode(reason) {
	case errs.PeerClosedErrCode:
		return "peer_closed"
	case errs.PeerHangupErrCode:
		return "peer_hangup"
	case errs.SocketErrCode:
		return "socket_error"
	case errs.SendFailureErrCode:
		return "send_failure"
	case errs.ReceiveFailureErrCode:
		return "receive_failure"
	case errs.PollerModifyErrCode:
		return "poller_failure"
	default:
		return "other"
	}
}
