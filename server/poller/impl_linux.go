package poller

import (
	"errors"
	"time"

	"github.com/Trinoooo/eggie_echo/errs"
	"golang.org/x/sys/unix"
)

const (
	epollReadOnly  = unix.EPOLLIN | unix.EPOLLPRI | unix.EPOLLHUP | unix.EPOLLERR
	epollReadWrite = epollReadOnly | unix.EPOLLOUT
)

type EpollPoller struct {
	epfd   int
	events []unix.EpollEvent
}

var _ Poller = &EpollPoller{}

// New 创建当前平台的 Poller，maxEvents 为单次 Wait 最多返回的事件数
func New(maxEvents int) (Poller, error) {
	return NewEpollPoller(maxEvents)
}

func NewEpollPoller(maxEvents int) (*EpollPoller, error) {
	if maxEvents <= 0 {
		return nil, errs.NewInvalidParamErr()
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errs.NewPollerCreateErr().WithErr(err)
	}

	return &EpollPoller{
		epfd:   epfd,
		events: make([]unix.EpollEvent, maxEvents),
	}, nil
}

func (ep *EpollPoller) Register(fd int, interest Interest) error {
	if err := ep.ctl(unix.EPOLL_CTL_ADD, fd, interest); err != nil {
		return errs.NewPollerRegisterErr().WithErr(err)
	}
	return nil
}

func (ep *EpollPoller) Modify(fd int, interest Interest) error {
	if err := ep.ctl(unix.EPOLL_CTL_MOD, fd, interest); err != nil {
		return errs.NewPollerModifyErr().WithErr(err)
	}
	return nil
}

func (ep *EpollPoller) Unregister(fd int) error {
	if err := unix.EpollCtl(ep.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return errs.NewPollerUnregisterErr().WithErr(err)
	}
	return nil
}

func (ep *EpollPoller) ctl(op, fd int, interest Interest) error {
	var mask uint32 = epollReadOnly
	if interest == ReadWrite {
		mask = epollReadWrite
	}
	return unix.EpollCtl(ep.epfd, op, fd, &unix.EpollEvent{
		Events: mask,
		Fd:     int32(fd),
	})
}

func (ep *EpollPoller) Wait(events []Pevent, timeout time.Duration) (int, error) {
	limit := len(events)
	if limit > len(ep.events) {
		limit = len(ep.events)
	}
	if limit == 0 {
		return 0, nil
	}

	n, err := unix.EpollWait(ep.epfd, ep.events[:limit], timeoutMs(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, errs.NewPollerWaitErr().WithErr(err)
	}

	for i := 0; i < n; i++ {
		events[i] = Pevent{
			Fd:   int(ep.events[i].Fd),
			Flag: fromEpoll(ep.events[i].Events),
		}
	}
	return n, nil
}

func fromEpoll(mask uint32) Flag {
	var f Flag
	if mask&unix.EPOLLIN != 0 {
		f |= FlagReadable
	}
	if mask&unix.EPOLLPRI != 0 {
		f |= FlagUrgent
	}
	if mask&unix.EPOLLHUP != 0 {
		f |= FlagHangup
	}
	if mask&unix.EPOLLOUT != 0 {
		f |= FlagWritable
	}
	if mask&unix.EPOLLERR != 0 {
		f |= FlagError
	}
	return f
}

func (ep *EpollPoller) Close() error {
	if err := unix.Close(ep.epfd); err != nil {
		return errs.NewCloseSocketErr().WithErr(err)
	}
	return nil
}
