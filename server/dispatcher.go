package server

import (
	"github.com/Trinoooo/eggie_echo/consts"
	"github.com/Trinoooo/eggie_echo/errs"
	"github.com/Trinoooo/eggie_echo/server/connections"
	"github.com/Trinoooo/eggie_echo/server/logs"
	"github.com/Trinoooo/eggie_echo/server/poller"
	"go.uber.org/zap"
)

type State int

const (
	// StateAccepting 只属于监听 socket，循环往复
	StateAccepting State = iota
	StateReadOnly
	StateReadWrite
	// StateClosed 终态，连接已从 registry 移除
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAccepting:
		return "Accepting"
	case StateReadOnly:
		return "ReadOnly"
	case StateReadWrite:
		return "ReadWrite"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

const (
	RuleAccept        = "accept"
	RuleListenerError = "listener_error"
	RuleReadable      = "readable"
	RuleHangup        = "hangup"
	RuleWritable      = "writable"
	RuleError         = "error"
	RuleIgnored       = "ignored"
	RuleNone          = "none"
)

// Outcome 描述一次事件导致的状态迁移。From == To 表示没有迁移。
// Err 为拆链原因或被忽略的暂时性错误。
type Outcome struct {
	Fd   int
	Rule string
	From State
	To   State
	Err  error
}

type rule struct {
	name  string
	match poller.Flag
	apply func(d *Dispatcher, c *Connection) Outcome
}

// rules 按优先级排列，同一事件只执行第一条命中的规则
var rules = []rule{
	{name: RuleReadable, match: poller.FlagReadable | poller.FlagUrgent, apply: (*Dispatcher).receive},
	{name: RuleHangup, match: poller.FlagHangup, apply: (*Dispatcher).hangup},
	{name: RuleWritable, match: poller.FlagWritable, apply: (*Dispatcher).send},
	{name: RuleError, match: poller.FlagError, apply: (*Dispatcher).fail},
}

type Dispatcher struct {
	registry *Registry
	observer Observer
	buf      []byte
}

func NewDispatcher(registry *Registry, observer Observer, recvBufferSize int) *Dispatcher {
	if observer == nil {
		observer = NopObserver{}
	}
	if recvBufferSize <= 0 {
		recvBufferSize = consts.DefaultRecvBufferSize
	}
	return &Dispatcher{
		registry: registry,
		observer: observer,
		buf:      make([]byte, recvBufferSize),
	}
}

// Dispatch 处理单个就绪事件，最多产生一次状态迁移
func (d *Dispatcher) Dispatch(evt poller.Pevent) Outcome {
	if d.registry.IsListener(evt.Fd) {
		return d.accept(evt)
	}

	c, ok := d.registry.Lookup(evt.Fd)
	if !ok {
		// 同一批事件中已被关闭的连接
		return Outcome{Fd: evt.Fd, Rule: RuleIgnored, From: StateClosed, To: StateClosed}
	}

	for _, r := range rules {
		if evt.Flag.Has(r.match) {
			return r.apply(d, c)
		}
	}
	return stay(c, RuleNone, nil)
}

func (d *Dispatcher) accept(evt poller.Pevent) Outcome {
	out := Outcome{Fd: evt.Fd, Rule: RuleAccept, From: StateAccepting, To: StateAccepting}
	if !evt.Flag.Has(poller.FlagReadable | poller.FlagUrgent) {
		out.Rule = RuleListenerError
		out.Err = errs.NewSocketErr()
		d.observer.OnAcceptFailure(out.Err)
		return out
	}

	c, err := d.registry.AcceptInto()
	if err != nil {
		out.Err = err
		// 连接在 accept 前被对端放弃或尚未就绪，不算失败
		if !connections.IsTemporary(err) && !connections.IsAborted(err) {
			d.observer.OnAcceptFailure(err)
		}
		return out
	}

	d.observer.OnAccept(c)
	return out
}

func (d *Dispatcher) receive(c *Connection) Outcome {
	n, err := c.conn.Read(d.buf)
	switch {
	case err != nil && connections.IsTemporary(err):
		return stay(c, RuleReadable, err)
	case err != nil:
		return d.teardown(c, RuleReadable, errs.NewReceiveFailureErr().WithErr(err))
	case n == 0:
		return d.teardown(c, RuleReadable, errs.NewPeerClosedErr())
	}

	chunk := make([]byte, n)
	copy(chunk, d.buf[:n])
	c.Enqueue(chunk)
	d.observer.OnReceive(c, n)
	return d.switchInterest(c, RuleReadable, poller.ReadWrite)
}

func (d *Dispatcher) hangup(c *Connection) Outcome {
	return d.teardown(c, RuleHangup, errs.NewPeerHangupErr())
}

func (d *Dispatcher) send(c *Connection) Outcome {
	chunk, ok := c.Dequeue()
	if !ok {
		return d.switchInterest(c, RuleWritable, poller.ReadOnly)
	}

	n, err := c.conn.Write(chunk)
	if err != nil {
		if connections.IsTemporary(err) {
			c.requeue(chunk)
			return stay(c, RuleWritable, err)
		}
		return d.teardown(c, RuleWritable, errs.NewSendFailureErr().WithErr(err))
	}

	d.observer.OnSend(c, n)
	if n < len(chunk) {
		c.requeue(chunk[n:])
		return stay(c, RuleWritable, nil)
	}
	if c.Pending() == 0 {
		return d.switchInterest(c, RuleWritable, poller.ReadOnly)
	}
	return stay(c, RuleWritable, nil)
}

func (d *Dispatcher) fail(c *Connection) Outcome {
	return d.teardown(c, RuleError, errs.NewSocketErr())
}

func (d *Dispatcher) switchInterest(c *Connection, name string, to poller.Interest) Outcome {
	from := c.interest
	if err := d.registry.SetInterest(c, to); err != nil {
		return d.teardown(c, name, err)
	}
	if from != to {
		d.observer.OnInterestChange(c, from, to)
	}
	return Outcome{Fd: c.Fd(), Rule: name, From: stateOf(from), To: stateOf(to)}
}

func (d *Dispatcher) teardown(c *Connection, name string, reason error) Outcome {
	out := Outcome{Fd: c.Fd(), Rule: name, From: stateOf(c.interest), To: StateClosed, Err: reason}
	d.observer.OnClose(c, reason)
	if err := d.registry.Remove(c); err != nil {
		logs.Warn("release connection failed", zap.Int(consts.LogFieldFd, out.Fd), zap.Error(err))
	}
	return out
}

func stay(c *Connection, name string, err error) Outcome {
	s := stateOf(c.interest)
	return Outcome{Fd: c.Fd(), Rule: name, From: s, To: s, Err: err}
}

func stateOf(interest poller.Interest) State {
	if interest == poller.ReadWrite {
		return StateReadWrite
	}
	return StateReadOnly
}
