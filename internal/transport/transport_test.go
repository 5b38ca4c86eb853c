//go:build linux

package transport_test

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/momentics/hioload-fs/api"
	"github.com/momentics/hioload-fs/internal/transport"
)

func acceptEventually(t *testing.T, ln *transport.Listener) *transport.Socket {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s, _, err := ln.Accept()
		if err == nil {
			return s
		}
		if !errors.Is(err, api.ErrWouldBlock) {
			t.Fatalf("accept: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no connection accepted")
	return nil
}

func TestListener_AcceptWouldBlock(t *testing.T) {
	ln, err := transport.Listen("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	if _, _, err := ln.Accept(); !errors.Is(err, api.ErrWouldBlock) {
		t.Fatalf("expected ErrWouldBlock on empty queue, got %v", err)
	}
	if ln.Addr().(*net.TCPAddr).Port == 0 {
		t.Error("expected ephemeral port to be resolved")
	}
}

func TestSocket_ReadWriteEOF(t *testing.T) {
	ln, err := transport.Listen("127.0.0.1:0", 16)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	peer, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	s := acceptEventually(t, ln)
	defer s.Close()

	buf := make([]byte, 16)
	if _, err := s.Read(buf); !errors.Is(err, api.ErrWouldBlock) {
		t.Fatalf("expected ErrWouldBlock with no data, got %v", err)
	}

	if _, err := s.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := make([]byte, 4)
	peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := peer.Read(got); err != nil || string(got) != "ping" {
		t.Fatalf("peer read %q, %v", got, err)
	}

	peer.Close()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := s.Read(buf)
		if errors.Is(err, api.ErrWouldBlock) {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil || n != 0 {
			t.Fatalf("expected EOF (0, nil), got (%d, %v)", n, err)
		}
		break
	}

	if err := s.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second close should be a no-op: %v", err)
	}
}
