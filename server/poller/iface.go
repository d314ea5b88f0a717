package poller

import (
	"strings"
	"time"
)

// Interest 描述 fd 关心的就绪条件集合
type Interest int

const (
	// ReadOnly 可读、紧急数据、挂断、错误
	ReadOnly Interest = iota
	// ReadWrite 在 ReadOnly 基础上增加可写
	ReadWrite
)

func (i Interest) String() string {
	switch i {
	case ReadOnly:
		return "ReadOnly"
	case ReadWrite:
		return "ReadWrite"
	default:
		return "Unknown"
	}
}

// Flag 是平台无关的就绪位
type Flag uint32

const (
	FlagReadable Flag = 1 << iota
	FlagUrgent
	FlagHangup
	FlagWritable
	FlagError
)

func (f Flag) Has(bits Flag) bool {
	return f&bits != 0
}

func (f Flag) String() string {
	names := make([]string, 0, 5)
	for _, item := range []struct {
		bit  Flag
		name string
	}{
		{FlagReadable, "readable"},
		{FlagUrgent, "urgent"},
		{FlagHangup, "hangup"},
		{FlagWritable, "writable"},
		{FlagError, "error"},
	} {
		if f&item.bit != 0 {
			names = append(names, item.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

type Pevent struct {
	Fd   int
	Flag Flag
}

// Poller 是 level-triggered 的就绪通知层，不持有任何业务状态
type Poller interface {
	Register(fd int, interest Interest) error
	Modify(fd int, interest Interest) error
	// Unregister 必须在关闭 fd 之前调用
	Unregister(fd int) error
	// Wait 阻塞直到至少一个 fd 就绪或超时，timeout < 0 表示一直阻塞。
	// 被信号打断时返回 0 个事件而非错误。
	Wait(events []Pevent, timeout time.Duration) (int, error)
	Close() error
}

func timeoutMs(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	return int(timeout / time.Millisecond)
}
