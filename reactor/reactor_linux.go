//go:build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"fmt"

	"github.com/momentics/hioload-fs/api"
	"golang.org/x/sys/unix"
)

var _ api.Reactor = (*linuxReactor)(nil)

// wakeToken is reserved for the internal eventfd and never surfaced.
const wakeToken = ^uint64(0)

// linuxReactor is an edge-triggered epoll event reactor.
type linuxReactor struct {
	epfd   int
	wakefd int
	raw    []unix.EpollEvent
}

// New constructs the epoll reactor together with its wakeup eventfd.
func New() (api.Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	r := &linuxReactor{epfd: epfd, wakefd: wakefd}
	ev := unix.EpollEvent{Events: unix.EPOLLIN}
	setToken(&ev, wakeToken)
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("epoll ctl add eventfd: %w", err)
	}
	return r, nil
}

// Register adds fd to the epoll interest set in edge-triggered mode.
func (r *linuxReactor) Register(fd uintptr, token uint64, events api.EventType) error {
	if token == wakeToken {
		return fmt.Errorf("register token %d: %w", token, api.ErrInvalidArgument)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLET | unix.EPOLLRDHUP}
	if events&api.EventRead != 0 {
		ev.Events |= unix.EPOLLIN
	}
	if events&api.EventWrite != 0 {
		ev.Events |= unix.EPOLLOUT
	}
	setToken(&ev, token)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

// Unregister removes fd from the epoll interest set.
func (r *linuxReactor) Unregister(fd uintptr) error {
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// Wait blocks for readiness and translates raw epoll events.
func (r *linuxReactor) Wait(events []api.Event, timeoutMs int) (int, error) {
	if len(events) == 0 {
		return 0, fmt.Errorf("wait: empty event buffer: %w", api.ErrInvalidArgument)
	}
	if cap(r.raw) < len(events) {
		r.raw = make([]unix.EpollEvent, len(events))
	}
	raw := r.raw[:len(events)]
	if timeoutMs < 0 {
		timeoutMs = -1
	}

	n, err := unix.EpollWait(r.epfd, raw, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil // interrupted by signal, normal
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	out := 0
	for i := 0; i < n; i++ {
		token := getToken(&raw[i])
		if token == wakeToken {
			r.drainWake()
			continue
		}
		var t api.EventType
		if raw[i].Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0 {
			t |= api.EventRead
		}
		if raw[i].Events&unix.EPOLLOUT != 0 {
			t |= api.EventWrite
		}
		if raw[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			t |= api.EventError
		}
		events[out] = api.Event{Token: token, Type: t}
		out++
	}
	return out, nil
}

// Wake interrupts a blocked Wait by signalling the eventfd.
func (r *linuxReactor) Wake() error {
	var one = [8]byte{1}
	if _, err := unix.Write(r.wakefd, one[:]); err != nil && err != unix.EAGAIN {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

func (r *linuxReactor) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(r.wakefd, buf[:]); err != nil {
			return
		}
	}
}

// Close closes the eventfd and the epoll instance.
func (r *linuxReactor) Close() error {
	errWake := unix.Close(r.wakefd)
	if err := unix.Close(r.epfd); err != nil {
		return fmt.Errorf("epoll close: %w", err)
	}
	if errWake != nil {
		return fmt.Errorf("eventfd close: %w", errWake)
	}
	return nil
}

// The epoll data union is split across Fd and Pad on every architecture.
func setToken(ev *unix.EpollEvent, token uint64) {
	ev.Fd = int32(uint32(token))
	ev.Pad = int32(uint32(token >> 32))
}

func getToken(ev *unix.EpollEvent) uint64 {
	return uint64(uint32(ev.Fd)) | uint64(uint32(ev.Pad))<<32
}
