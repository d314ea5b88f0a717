package connections

import (
	"io"
	"net"
)

type IListener interface {
	// Accept 单次非阻塞 accept，没有待处理连接时返回 EAGAIN
	Accept() (IConnection, error)
	Addr() net.Addr
	RawFd() int
	io.Closer
}

// IConnection 的 Read/Write 均为单次非阻塞系统调用，不做内部重试
type IConnection interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
	LocalAddr() net.Addr
	RawFd() int
}
