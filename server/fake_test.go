package server

import (
	"fmt"
	"net"
	"time"

	"github.com/Trinoooo/eggie_echo/errs"
	"github.com/Trinoooo/eggie_echo/server/connections"
	"github.com/Trinoooo/eggie_echo/server/poller"
	"golang.org/x/sys/unix"
)

type readResult struct {
	data []byte
	err  error
}

type fakeConn struct {
	fd         int
	reads      []readResult
	writes     [][]byte
	writeLimit int
	writeErrs  []error
	closed     bool
}

var _ connections.IConnection = &fakeConn{}

func newFakeConn(fd int) *fakeConn {
	return &fakeConn{fd: fd}
}

// feed 安排下一次 Read 的返回，nil data 且 nil err 表示对端关闭
func (fc *fakeConn) feed(data []byte, err error) *fakeConn {
	fc.reads = append(fc.reads, readResult{data: data, err: err})
	return fc
}

func (fc *fakeConn) Read(buf []byte) (int, error) {
	if len(fc.reads) == 0 {
		return 0, unix.EAGAIN
	}
	r := fc.reads[0]
	fc.reads = fc.reads[1:]
	if r.err != nil {
		return 0, r.err
	}
	n := copy(buf, r.data)
	if n < len(r.data) {
		fc.reads = append([]readResult{{data: r.data[n:]}}, fc.reads...)
	}
	return n, nil
}

func (fc *fakeConn) Write(buf []byte) (int, error) {
	if len(fc.writeErrs) > 0 {
		err := fc.writeErrs[0]
		fc.writeErrs = fc.writeErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	n := len(buf)
	if fc.writeLimit > 0 && n > fc.writeLimit {
		n = fc.writeLimit
	}
	fc.writes = append(fc.writes, append([]byte(nil), buf[:n]...))
	return n, nil
}

func (fc *fakeConn) written() string {
	s := ""
	for _, w := range fc.writes {
		s += string(w)
	}
	return s
}

func (fc *fakeConn) Close() error {
	if fc.closed {
		return errs.NewCloseSocketErr().WithErr(unix.EBADF)
	}
	fc.closed = true
	return nil
}

func (fc *fakeConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000 + fc.fd}
}

func (fc *fakeConn) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 10000}
}

func (fc *fakeConn) RawFd() int {
	return fc.fd
}

type fakeListener struct {
	fd      int
	pending []connections.IConnection
	errs    []error
	closed  bool
}

var _ connections.IListener = &fakeListener{}

func (fl *fakeListener) Accept() (connections.IConnection, error) {
	if len(fl.errs) > 0 {
		err := fl.errs[0]
		fl.errs = fl.errs[1:]
		return nil, err
	}
	if len(fl.pending) == 0 {
		return nil, unix.EAGAIN
	}
	c := fl.pending[0]
	fl.pending = fl.pending[1:]
	return c, nil
}

func (fl *fakeListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 10000}
}

func (fl *fakeListener) RawFd() int {
	return fl.fd
}

func (fl *fakeListener) Close() error {
	fl.closed = true
	return nil
}

type fakePoller struct {
	interests   map[int]poller.Interest
	modifyCalls int
	registerErr error
	modifyErr   error
	batches     [][]poller.Pevent
	waitErr     error
	closed      bool
}

var _ poller.Poller = &fakePoller{}

func newFakePoller() *fakePoller {
	return &fakePoller{interests: make(map[int]poller.Interest)}
}

func (fp *fakePoller) Register(fd int, interest poller.Interest) error {
	if fp.registerErr != nil {
		return errs.NewPollerRegisterErr().WithErr(fp.registerErr)
	}
	if _, ok := fp.interests[fd]; ok {
		return errs.NewPollerRegisterErr().WithErr(unix.EEXIST)
	}
	fp.interests[fd] = interest
	return nil
}

func (fp *fakePoller) Modify(fd int, interest poller.Interest) error {
	fp.modifyCalls++
	if fp.modifyErr != nil {
		return errs.NewPollerModifyErr().WithErr(fp.modifyErr)
	}
	if _, ok := fp.interests[fd]; !ok {
		return errs.NewPollerModifyErr().WithErr(unix.ENOENT)
	}
	fp.interests[fd] = interest
	return nil
}

func (fp *fakePoller) Unregister(fd int) error {
	if _, ok := fp.interests[fd]; !ok {
		return errs.NewPollerUnregisterErr().WithErr(unix.ENOENT)
	}
	delete(fp.interests, fd)
	return nil
}

func (fp *fakePoller) Wait(events []poller.Pevent, _ time.Duration) (int, error) {
	if fp.waitErr != nil {
		return 0, errs.NewPollerWaitErr().WithErr(fp.waitErr)
	}
	if len(fp.batches) == 0 {
		return 0, nil
	}
	batch := fp.batches[0]
	fp.batches = fp.batches[1:]
	return copy(events, batch), nil
}

func (fp *fakePoller) Close() error {
	fp.closed = true
	return nil
}

// recordingObserver 以字符串形式记录回调，便于断言顺序
type recordingObserver struct {
	records []string
	reasons []error
}

var _ Observer = &recordingObserver{}

func (ro *recordingObserver) OnAccept(c *Connection) {
	ro.records = append(ro.records, fmt.Sprintf("accept %d", c.Fd()))
}

func (ro *recordingObserver) OnAcceptFailure(err error) {
	ro.records = append(ro.records, "accept_failure")
	ro.reasons = append(ro.reasons, err)
}

func (ro *recordingObserver) OnReceive(c *Connection, n int) {
	ro.records = append(ro.records, fmt.Sprintf("receive %d %d", c.Fd(), n))
}

func (ro *recordingObserver) OnSend(c *Connection, n int) {
	ro.records = append(ro.records, fmt.Sprintf("send %d %d", c.Fd(), n))
}

func (ro *recordingObserver) OnInterestChange(c *Connection, from, to poller.Interest) {
	ro.records = append(ro.records, fmt.Sprintf("interest %d %s->%s", c.Fd(), from, to))
}

func (ro *recordingObserver) OnClose(c *Connection, reason error) {
	ro.records = append(ro.records, fmt.Sprintf("close %d %s", c.Fd(), ReasonLabel(reason)))
	ro.reasons = append(ro.reasons, reason)
}

const listenerFd = 3

type fixture struct {
	poller   *fakePoller
	listener *fakeListener
	registry *Registry
	observer *recordingObserver
	d        *Dispatcher
}

func newFixture(recvBufferSize int) *fixture {
	fp := newFakePoller()
	fl := &fakeListener{fd: listenerFd}
	r, err := NewRegistry(fp, fl)
	if err != nil {
		panic(err)
	}
	ro := &recordingObserver{}
	return &fixture{
		poller:   fp,
		listener: fl,
		registry: r,
		observer: ro,
		d:        NewDispatcher(r, ro, recvBufferSize),
	}
}

// connect 让监听 socket 接受一个 fake 连接，返回该连接
func (f *fixture) connect(fd int) (*fakeConn, *Connection) {
	fc := newFakeConn(fd)
	f.listener.pending = append(f.listener.pending, fc)
	f.d.Dispatch(poller.Pevent{Fd: listenerFd, Flag: poller.FlagReadable})
	c, ok := f.registry.Lookup(fd)
	if !ok {
		panic("connection not accepted")
	}
	return fc, c
}

func (f *fixture) event(fd int, flag poller.Flag) Outcome {
	return f.d.Dispatch(poller.Pevent{Fd: fd, Flag: flag})
}
