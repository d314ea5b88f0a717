package server

import (
	"bytes"
	"crypto/rand"
	"io"
	"net"
	"testing"
	"time"

	"github.com/Trinoooo/eggie_echo/errs"
	"github.com/Trinoooo/eggie_echo/server/poller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newFakeServer(t *testing.T, opts ...Option) (*EventLoopServer, *fakePoller, *fakeListener) {
	fp := newFakePoller()
	fl := &fakeListener{fd: listenerFd}
	srv, err := NewEventLoopServer(DefaultConfig(), append([]Option{WithPoller(fp), WithListener(fl)}, opts...)...)
	require.NoError(t, err)
	return srv, fp, fl
}

func TestNewEventLoopServer_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxEvents = 0
	_, err := NewEventLoopServer(cfg, WithPoller(newFakePoller()), WithListener(&fakeListener{fd: listenerFd}))
	assert.Equal(t, int64(errs.InvalidParamErrCode), errs.GetCode(err))
}

func TestNewEventLoopServer_RegisterFailure(t *testing.T) {
	fp := newFakePoller()
	fp.registerErr = unix.ENOMEM
	fl := &fakeListener{fd: listenerFd}
	_, err := NewEventLoopServer(DefaultConfig(), WithPoller(fp), WithListener(fl))
	assert.Equal(t, int64(errs.PollerRegisterErrCode), errs.GetCode(err))
	assert.True(t, fl.closed)
	assert.True(t, fp.closed)
}

func TestEventLoopServer_RunOnce(t *testing.T) {
	ro := &recordingObserver{}
	mh := NewMetricsHelper()
	srv, fp, fl := newFakeServer(t, WithObserver(ro), WithMetrics(mh))

	fc := newFakeConn(7)
	fc.feed([]byte("hello"), nil)
	fl.pending = append(fl.pending, fc)
	fp.batches = [][]poller.Pevent{
		{{Fd: listenerFd, Flag: poller.FlagReadable}},
		{{Fd: 7, Flag: poller.FlagReadable}},
		{{Fd: 7, Flag: poller.FlagWritable}, {Fd: 99, Flag: poller.FlagReadable}},
	}

	for i, want := range []int{1, 1, 2, 0} {
		n, err := srv.RunOnce()
		require.NoError(t, err, "round %d", i)
		assert.Equal(t, want, n, "round %d", i)
	}

	assert.Equal(t, "hello", fc.written())
	assert.Equal(t, 1, srv.Len())
	assert.Equal(t, []string{
		"accept 7",
		"receive 7 5",
		"interest 7 ReadOnly->ReadWrite",
		"send 7 5",
		"interest 7 ReadWrite->ReadOnly",
	}, ro.records)

	require.NoError(t, srv.Close())
	assert.True(t, fc.closed)
	assert.True(t, fl.closed)
	assert.True(t, fp.closed)
}

func TestEventLoopServer_ServeStopsOnPollerError(t *testing.T) {
	srv, fp, _ := newFakeServer(t)
	fp.waitErr = unix.EBADF

	_, err := srv.RunOnce()
	assert.Equal(t, int64(errs.PollerWaitErrCode), errs.GetCode(err))

	err = srv.Serve()
	assert.ErrorIs(t, err, unix.EBADF)
	assert.NoError(t, srv.Close())
}

// loop 在独立 goroutine 上驱动真实 server，其余 goroutine 通过 calls 在循环上执行读操作
type loop struct {
	srv   *EventLoopServer
	calls chan func()
	stop  chan struct{}
	done  chan error
}

func startLoop(t *testing.T) *loop {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.PollTimeout = 10 * time.Millisecond
	cfg.RecvBufferSize = 512

	srv, err := NewEventLoopServer(cfg)
	require.NoError(t, err)

	l := &loop{
		srv:   srv,
		calls: make(chan func()),
		stop:  make(chan struct{}),
		done:  make(chan error, 1),
	}
	go func() {
		defer close(l.done)
		for {
			select {
			case <-l.stop:
				return
			case fn := <-l.calls:
				fn()
			default:
			}
			if _, err := srv.RunOnce(); err != nil {
				l.done <- err
				return
			}
		}
	}()

	t.Cleanup(func() {
		close(l.stop)
		assert.NoError(t, <-l.done)
		assert.NoError(t, srv.Close())
	})
	return l
}

func (l *loop) len() int {
	res := make(chan int, 1)
	l.calls <- func() { res <- l.srv.Len() }
	return <-res
}

func (l *loop) dial(t *testing.T) net.Conn {
	conn, err := net.Dial("tcp", l.srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func echo(t *testing.T, conn net.Conn, msg []byte) []byte {
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	_, err := conn.Write(msg)
	require.NoError(t, err)
	got := make([]byte, len(msg))
	_, err = io.ReadFull(conn, got)
	require.NoError(t, err)
	return got
}

func TestEventLoopServer_Echo(t *testing.T) {
	l := startLoop(t)
	conn := l.dial(t)

	assert.Equal(t, "hello", string(echo(t, conn, []byte("hello"))))
	assert.Equal(t, "again", string(echo(t, conn, []byte("again"))))
	assert.Equal(t, 1, l.len())
}

func TestEventLoopServer_IndependentClients(t *testing.T) {
	l := startLoop(t)
	a := l.dial(t)
	b := l.dial(t)

	assert.Equal(t, "from a", string(echo(t, a, []byte("from a"))))
	assert.Equal(t, "from b", string(echo(t, b, []byte("from b"))))
	assert.Eventually(t, func() bool { return l.len() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Close())
	assert.Eventually(t, func() bool { return l.len() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "still here", string(echo(t, b, []byte("still here"))))
}

func TestEventLoopServer_SilentClose(t *testing.T) {
	l := startLoop(t)
	conn := l.dial(t)
	assert.Eventually(t, func() bool { return l.len() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return l.len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventLoopServer_LargePayload(t *testing.T) {
	l := startLoop(t)
	conn := l.dial(t)
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))

	payload := make([]byte, 4<<20)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	// 边写边读，避免双方 socket 缓冲区同时写满
	writeErr := make(chan error, 1)
	go func() {
		_, err := conn.Write(payload)
		writeErr <- err
	}()

	got := make([]byte, len(payload))
	_, err = io.ReadFull(conn, got)
	require.NoError(t, err)
	require.NoError(t, <-writeErr)
	assert.True(t, bytes.Equal(payload, got))
}
