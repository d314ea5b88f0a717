//go:build unix

package connections

import (
	"errors"
	"net"
	"strconv"

	"github.com/Trinoooo/eggie_echo/errs"
	"golang.org/x/sys/unix"
)

type Connection struct {
	fd         int
	localAddr  *unix.SockaddrInet4
	remoteAddr *unix.SockaddrInet4
}

var _ IConnection = &Connection{}

func (c *Connection) Read(buf []byte) (int, error) {
	n, err := unix.Read(c.fd, buf)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Connection) Write(buf []byte) (int, error) {
	n, err := unix.Write(c.fd, buf)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Connection) Close() error {
	if err := unix.Close(c.fd); err != nil {
		return errs.NewCloseSocketErr().WithErr(err)
	}
	return nil
}

func (c *Connection) RemoteAddr() net.Addr {
	return toTCPAddr(c.remoteAddr)
}

func (c *Connection) LocalAddr() net.Addr {
	return toTCPAddr(c.localAddr)
}

func (c *Connection) RawFd() int {
	return c.fd
}

type Listener struct {
	conn *Connection
}

var _ IListener = &Listener{}

func (l *Listener) Accept() (IConnection, error) {
	socket, sa, err := unix.Accept(l.conn.fd)
	if err != nil {
		return nil, err
	}

	if err = unix.SetNonblock(socket, true); err != nil {
		_ = unix.Close(socket)
		return nil, err
	}
	unix.CloseOnExec(socket)

	remote, _ := sa.(*unix.SockaddrInet4)
	local := l.conn.localAddr
	if lsa, e := unix.Getsockname(socket); e == nil {
		if in4, ok := lsa.(*unix.SockaddrInet4); ok {
			local = in4
		}
	}

	return &Connection{
		fd:         socket,
		localAddr:  local,
		remoteAddr: remote,
	}, nil
}

func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

func (l *Listener) RawFd() int {
	return l.conn.fd
}

func (l *Listener) Close() error {
	return l.conn.Close()
}

// Listen 创建非阻塞的 ipv4 监听 socket。host 可以是 ip 或可解析为 ipv4 的主机名，
// port 为 0 时由内核分配，实际端口通过 Addr 获取。
func Listen(host string, port int, backlog int) (IListener, error) {
	addr, err := resolve(host, port)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errs.NewSocketCreateErr().WithErr(err)
	}

	fail := func(e *errs.EchoErr, err error) (IListener, error) {
		_ = unix.Close(fd)
		return nil, e.WithErr(err)
	}

	unix.CloseOnExec(fd)
	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail(errs.NewSocketOptionErr(), err)
	}

	if err = unix.SetNonblock(fd, true); err != nil {
		return fail(errs.NewSocketOptionErr(), err)
	}

	if err = unix.Bind(fd, addr); err != nil {
		return fail(errs.NewSocketBindErr(), err)
	}

	if err = unix.Listen(fd, backlog); err != nil {
		return fail(errs.NewSocketListenErr(), err)
	}

	// 端口为 0 时回填内核分配的端口
	if sa, e := unix.Getsockname(fd); e == nil {
		if in4, ok := sa.(*unix.SockaddrInet4); ok {
			addr = in4
		}
	}

	return &Listener{
		conn: &Connection{
			fd:        fd,
			localAddr: addr,
		},
	}, nil
}

func resolve(host string, port int) (*unix.SockaddrInet4, error) {
	if port < 0 || port > 65535 {
		return nil, errs.NewInvalidParamErr()
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp4", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, errs.NewResolveAddrErr().WithErr(err)
	}

	sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}
	return sa, nil
}

func toTCPAddr(sa *unix.SockaddrInet4) net.Addr {
	if sa == nil {
		return &net.TCPAddr{}
	}
	return &net.TCPAddr{
		IP:   net.IPv4(sa.Addr[0], sa.Addr[1], sa.Addr[2], sa.Addr[3]),
		Port: sa.Port,
	}
}

// IsTemporary 判断非阻塞 I/O 的错误是否只是暂时未就绪，调用方应等待下一次就绪事件
func IsTemporary(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}

// IsAborted 对端在 accept 前已经放弃连接
func IsAborted(err error) bool {
	return errors.Is(err, unix.ECONNABORTED)
}
