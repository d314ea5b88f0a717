package poller

import (
	"errors"
	"time"

	"github.com/Trinoooo/eggie_echo/errs"
	"golang.org/x/sys/unix"
)

// KqueuePoller 用 EVFILT_READ/EVFILT_WRITE 两个过滤器模拟 ReadOnly/ReadWrite
type KqueuePoller struct {
	kq        int
	kevents   []unix.Kevent_t
	interests map[int]Interest
}

var _ Poller = &KqueuePoller{}

func New(maxEvents int) (Poller, error) {
	return NewKqueuePoller(maxEvents)
}

func NewKqueuePoller(maxEvents int) (*KqueuePoller, error) {
	if maxEvents <= 0 {
		return nil, errs.NewInvalidParamErr()
	}

	kq, err := unix.Kqueue()
	if err != nil {
		return nil, errs.NewPollerCreateErr().WithErr(err)
	}

	return &KqueuePoller{
		kq:        kq,
		kevents:   make([]unix.Kevent_t, maxEvents),
		interests: make(map[int]Interest),
	}, nil
}

func (kp *KqueuePoller) Register(fd int, interest Interest) error {
	changes := []unix.Kevent_t{kevent(fd, unix.EVFILT_READ, unix.EV_ADD|unix.EV_ENABLE)}
	if interest == ReadWrite {
		changes = append(changes, kevent(fd, unix.EVFILT_WRITE, unix.EV_ADD|unix.EV_ENABLE))
	}
	if _, err := unix.Kevent(kp.kq, changes, nil, nil); err != nil {
		return errs.NewPollerRegisterErr().WithErr(err)
	}
	kp.interests[fd] = interest
	return nil
}

func (kp *KqueuePoller) Modify(fd int, interest Interest) error {
	current, ok := kp.interests[fd]
	if !ok {
		return errs.NewPollerModifyErr().WithErr(unix.ENOENT)
	}
	if current == interest {
		return nil
	}

	flag := unix.EV_ADD | unix.EV_ENABLE
	if interest == ReadOnly {
		flag = unix.EV_DELETE
	}
	changes := []unix.Kevent_t{kevent(fd, unix.EVFILT_WRITE, flag)}
	if _, err := unix.Kevent(kp.kq, changes, nil, nil); err != nil && !errors.Is(err, unix.ENOENT) {
		return errs.NewPollerModifyErr().WithErr(err)
	}
	kp.interests[fd] = interest
	return nil
}

func (kp *KqueuePoller) Unregister(fd int) error {
	interest, ok := kp.interests[fd]
	if !ok {
		return errs.NewPollerUnregisterErr().WithErr(unix.ENOENT)
	}

	changes := []unix.Kevent_t{kevent(fd, unix.EVFILT_READ, unix.EV_DELETE)}
	if interest == ReadWrite {
		changes = append(changes, kevent(fd, unix.EVFILT_WRITE, unix.EV_DELETE))
	}
	delete(kp.interests, fd)
	if _, err := unix.Kevent(kp.kq, changes, nil, nil); err != nil && !errors.Is(err, unix.ENOENT) {
		return errs.NewPollerUnregisterErr().WithErr(err)
	}
	return nil
}

// Wait 把同一 fd 的多个过滤器事件合并成一个 Pevent，与 epoll 的语义对齐
func (kp *KqueuePoller) Wait(events []Pevent, timeout time.Duration) (int, error) {
	limit := len(events)
	if limit > len(kp.kevents) {
		limit = len(kp.kevents)
	}
	if limit == 0 {
		return 0, nil
	}

	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeout))
		ts = &t
	}

	n, err := unix.Kevent(kp.kq, nil, kp.kevents[:limit], ts)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, errs.NewPollerWaitErr().WithErr(err)
	}

	slots := make(map[int]int, n)
	count := 0
	for i := 0; i < n; i++ {
		kevt := kp.kevents[i]
		fd := int(kevt.Ident)
		idx, exist := slots[fd]
		if !exist {
			idx = count
			slots[fd] = idx
			events[idx] = Pevent{Fd: fd}
			count++
		}
		events[idx].Flag |= fromKevent(kevt)
	}
	return count, nil
}

func fromKevent(kevt unix.Kevent_t) Flag {
	var f Flag
	switch kevt.Filter {
	case unix.EVFILT_READ:
		f |= FlagReadable
	case unix.EVFILT_WRITE:
		f |= FlagWritable
	}
	if kevt.Flags&unix.EV_EOF != 0 {
		f |= FlagHangup
	}
	if kevt.Flags&unix.EV_ERROR != 0 {
		f |= FlagError
	}
	return f
}

func kevent(fd, filter, flags int) unix.Kevent_t {
	var k unix.Kevent_t
	unix.SetKevent(&k, fd, filter, flags)
	return k
}

func (kp *KqueuePoller) Close() error {
	if err := unix.Close(kp.kq); err != nil {
		return errs.NewCloseSocketErr().WithErr(err)
	}
	return nil
}
