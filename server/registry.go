package server

import (
	"net"

	"github.com/Trinoooo/eggie_echo/errs"
	"github.com/Trinoooo/eggie_echo/server/connections"
	"github.com/Trinoooo/eggie_echo/server/poller"
	"github.com/eapache/queue"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Connection 是一个已 accept 的客户端 socket 及其待发送队列。
// 队列与连接同生共死，Remove 之后不可再使用。
type Connection struct {
	id       string
	conn     connections.IConnection
	interest poller.Interest
	// pending 保存上一次短写剩下的部分，优先于 outbound 发送
	pending  []byte
	outbound *queue.Queue
}

func newConnection(conn connections.IConnection) *Connection {
	return &Connection{
		id:       uuid.NewString(),
		conn:     conn,
		interest: poller.ReadOnly,
		outbound: queue.New(),
	}
}

func (c *Connection) Id() string {
	return c.id
}

func (c *Connection) Fd() int {
	return c.conn.RawFd()
}

func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Connection) Interest() poller.Interest {
	return c.interest
}

// Enqueue 追加一个 chunk，chunk 之后会作为整体发送，不拆分也不合并
func (c *Connection) Enqueue(chunk []byte) {
	c.outbound.Add(chunk)
}

// Dequeue 弹出最早的 chunk，队列为空时返回 false
func (c *Connection) Dequeue() ([]byte, bool) {
	if c.pending != nil {
		chunk := c.pending
		c.pending = nil
		return chunk, true
	}
	if c.outbound == nil || c.outbound.Length() == 0 {
		return nil, false
	}
	return c.outbound.Remove().([]byte), true
}

// Pending 返回尚未发完的 chunk 数，包括短写剩余部分
func (c *Connection) Pending() int {
	n := 0
	if c.pending != nil {
		n++
	}
	if c.outbound != nil {
		n += c.outbound.Length()
	}
	return n
}

// requeue 把未发完的部分放回队首
func (c *Connection) requeue(rest []byte) {
	c.pending = rest
}

func (c *Connection) discard() {
	c.pending = nil
	c.outbound = nil
}

// Registry 持有监听 socket 与所有连接，以 fd 索引。
// 只在事件循环所在的 goroutine 上修改，不加锁。
type Registry struct {
	p        poller.Poller
	listener connections.IListener
	conns    map[int]*Connection
}

func NewRegistry(p poller.Poller, listener connections.IListener) (*Registry, error) {
	if err := p.Register(listener.RawFd(), poller.ReadOnly); err != nil {
		return nil, err
	}

	return &Registry{
		p:        p,
		listener: listener,
		conns:    make(map[int]*Connection),
	}, nil
}

// AcceptInto 在监听 socket 上做一次非阻塞 accept，新连接以 ReadOnly 注册
func (r *Registry) AcceptInto() (*Connection, error) {
	conn, err := r.listener.Accept()
	if err != nil {
		return nil, errs.NewAcceptFailureErr().WithErr(err)
	}

	if err = r.p.Register(conn.RawFd(), poller.ReadOnly); err != nil {
		if e := conn.Close(); e != nil {
			err = errors.Wrap(err, e.Error())
		}
		return nil, err
	}

	c := newConnection(conn)
	r.conns[c.Fd()] = c
	return c, nil
}

func (r *Registry) Lookup(fd int) (*Connection, bool) {
	c, ok := r.conns[fd]
	return c, ok
}

func (r *Registry) IsListener(fd int) bool {
	return r.listener.RawFd() == fd
}

func (r *Registry) Listener() connections.IListener {
	return r.listener
}

func (r *Registry) Len() int {
	return len(r.conns)
}

// SetInterest 切换连接的关注事件，模式不变时不触发系统调用
func (r *Registry) SetInterest(c *Connection, interest poller.Interest) error {
	if c.interest == interest {
		return nil
	}
	if err := r.p.Modify(c.Fd(), interest); err != nil {
		return err
	}
	c.interest = interest
	return nil
}

// Remove 注销、关闭并丢弃连接的队列。同一连接只能 Remove 一次。
// 即使注销或关闭失败，连接也已经从 registry 中移除。
func (r *Registry) Remove(c *Connection) error {
	fd := c.Fd()
	if cur, ok := r.conns[fd]; !ok || cur != c {
		return errs.NewConnectionNotFoundErr()
	}
	delete(r.conns, fd)

	err := r.p.Unregister(fd)
	if e := c.conn.Close(); e != nil {
		if err != nil {
			err = errors.Wrap(err, e.Error())
		} else {
			err = e
		}
	}
	c.discard()
	return err
}

// Close 释放所有连接与监听 socket
func (r *Registry) Close() error {
	var err error
	for _, c := range r.conns {
		if e := r.Remove(c); e != nil && err == nil {
			err = e
		}
	}

	if e := r.p.Unregister(r.listener.RawFd()); e != nil && err == nil {
		err = e
	}
	if e := r.listener.Close(); e != nil && err == nil {
		err = e
	}
	return err
}
