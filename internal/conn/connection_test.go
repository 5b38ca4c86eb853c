package conn_test

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/momentics/hioload-fs/api"
	"github.com/momentics/hioload-fs/fake"
	"github.com/momentics/hioload-fs/internal/conn"
	"github.com/momentics/hioload-fs/internal/stream"
	"github.com/momentics/hioload-fs/pool"
)

var peer = &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5555}

func openStreamer(t *testing.T, data []byte, chunk int) *stream.Streamer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "f.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := stream.Open(path, pool.NewBytePool(chunk))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func expectedResponse(data []byte) []byte {
	sum := md5.Sum(data)
	var b bytes.Buffer
	b.WriteString("FILE " + strconv.Itoa(len(data)) + "\n")
	b.Write(data)
	b.WriteString("\nMD5 " + hex.EncodeToString(sum[:]) + "\n")
	return b.Bytes()
}

func TestOnReadable_ExtractsCommands(t *testing.T) {
	sock := fake.NewSocket()
	sock.Feed("LI", "ST GET a", ".txt\n")
	c := conn.New(1, sock, peer)

	line, ok, err := c.OnReadable()
	if err != nil || !ok || line != "LIST" {
		t.Fatalf("OnReadable = (%q, %v, %v)", line, ok, err)
	}
	line, ok = c.NextCommand()
	if !ok || line != "GET a.txt" {
		t.Fatalf("NextCommand = (%q, %v)", line, ok)
	}
	if _, ok := c.NextCommand(); ok {
		t.Error("expected no further command")
	}
}

func TestOnReadable_IncompleteCommand(t *testing.T) {
	sock := fake.NewSocket()
	sock.Feed("GET partial")
	c := conn.New(1, sock, peer)

	if _, ok, err := c.OnReadable(); ok || err != nil {
		t.Fatalf("expected no command yet, got ok=%v err=%v", ok, err)
	}
	sock.Feed(".bin\n")
	line, ok, err := c.OnReadable()
	if err != nil || !ok || line != "GET partial.bin" {
		t.Fatalf("OnReadable = (%q, %v, %v)", line, ok, err)
	}
}

func TestOnReadable_PeerClosed(t *testing.T) {
	sock := fake.NewSocket()
	sock.Feed("LIST ")
	sock.CloseRemote()
	c := conn.New(1, sock, peer)

	if _, _, err := c.OnReadable(); !errors.Is(err, api.ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestOnReadable_ReadError(t *testing.T) {
	sock := fake.NewSocket()
	boom := errors.New("reset by peer")
	sock.SetReadError(boom)
	c := conn.New(1, sock, peer)
	if _, _, err := c.OnReadable(); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
}

func TestOnWritable_FlushesReply(t *testing.T) {
	sock := fake.NewSocket()
	c := conn.New(1, sock, peer)
	c.Reply([]byte("a b .\n"))
	if !c.WantsWrite() {
		t.Fatal("expected pending output")
	}
	if err := c.OnWritable(); err != nil {
		t.Fatalf("OnWritable: %v", err)
	}
	if got := string(sock.Written()); got != "a b .\n" {
		t.Errorf("written %q", got)
	}
	if c.WantsWrite() || c.Blocked() {
		t.Error("expected idle connection after full flush")
	}
	if c.BytesWritten() != 6 {
		t.Errorf("BytesWritten = %d", c.BytesWritten())
	}
}

func TestOnWritable_TransferUnderBackpressure(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789abcdef"), 20_000)
	sock := fake.NewSocket()
	sock.SetWindow(1000)

	var done []conn.Transfer
	c := conn.New(7, sock, peer, conn.WithTransferDone(func(_ *conn.Connection, tr conn.Transfer) {
		done = append(done, tr)
	}))
	if err := c.Attach("f.bin", openStreamer(t, data, 4096)); err != nil {
		t.Fatalf("attach: %v", err)
	}

	for i := 0; c.WantsWrite(); i++ {
		if i > 100_000 {
			t.Fatal("transfer did not finish")
		}
		before := c.Pending()
		if err := c.OnWritable(); err != nil {
			t.Fatalf("OnWritable: %v", err)
		}
		if grown := c.Pending() - before; grown > 4096+64 {
			t.Fatalf("one pass queued %d bytes, more than one chunk", grown)
		}
		if c.Blocked() {
			sock.Drain(777)
		}
	}

	if !bytes.Equal(sock.Written(), expectedResponse(data)) {
		t.Error("response bytes differ from expected framing")
	}
	if c.Busy() {
		t.Error("streamer should be detached after flush")
	}
	if len(done) != 1 || done[0].Name != "f.bin" || done[0].Size != int64(len(data)) {
		t.Errorf("unexpected transfer summary %+v", done)
	}
}

func TestOnWritable_HighWaterBoundsOutbound(t *testing.T) {
	data := bytes.Repeat([]byte{7}, 64*1024)
	sock := fake.NewSocket()
	sock.SetWindow(100)
	c := conn.New(1, sock, peer, conn.WithHighWater(2048))
	if err := c.Attach("f", openStreamer(t, data, 1024)); err != nil {
		t.Fatal(err)
	}

	for i := 0; c.WantsWrite(); i++ {
		if i > 100_000 {
			t.Fatal("transfer did not finish")
		}
		if err := c.OnWritable(); err != nil {
			t.Fatal(err)
		}
		if c.Pending() > 2048+1024+64 {
			t.Fatalf("outbound exceeded high water: %d", c.Pending())
		}
		if c.Blocked() {
			sock.Drain(100)
		}
	}
	if !bytes.Equal(sock.Written(), expectedResponse(data)) {
		t.Error("response bytes differ from expected framing")
	}
}

func TestBusy_QueuesNextCommand(t *testing.T) {
	data := []byte("payload")
	sock := fake.NewSocket()
	sock.SetWindow(0)
	c := conn.New(1, sock, peer)
	if err := c.Attach("p", openStreamer(t, data, 1024)); err != nil {
		t.Fatal(err)
	}

	sock.Feed("LIST ")
	if _, ok, err := c.OnReadable(); ok || err != nil {
		t.Fatalf("command must wait while busy: ok=%v err=%v", ok, err)
	}
	if err := c.Attach("q", openStreamer(t, data, 1024)); !errors.Is(err, conn.ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	sock.SetWindow(-1)
	for c.WantsWrite() {
		if err := c.OnWritable(); err != nil {
			t.Fatal(err)
		}
	}
	line, ok := c.NextCommand()
	if !ok || line != "LIST" {
		t.Fatalf("queued command = (%q, %v)", line, ok)
	}
	if !bytes.Equal(sock.Written(), expectedResponse(data)) {
		t.Error("transfer corrupted by queued command")
	}
}

func TestOnWritable_ZeroWriteIsFatal(t *testing.T) {
	sock := fake.NewSocket()
	sock.SetZeroWrite(true)
	c := conn.New(1, sock, peer)
	c.Reply([]byte("x"))
	if err := c.OnWritable(); !errors.Is(err, api.ErrWriteZero) {
		t.Fatalf("expected ErrWriteZero, got %v", err)
	}
}

func TestClose_ReleasesResources(t *testing.T) {
	sock := fake.NewSocket()
	c := conn.New(1, sock, peer)
	if err := c.Attach("f", openStreamer(t, []byte("abc"), 16)); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !sock.Closed() {
		t.Error("socket not closed")
	}
	if c.Busy() {
		t.Error("streamer not released")
	}
	if err := c.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestClose_ReportsSocketError(t *testing.T) {
	sock := fake.NewSocket()
	boom := errors.New("close failed")
	sock.SetCloseError(boom)
	c := conn.New(1, sock, peer)
	if err := c.Close(); !errors.Is(err, boom) {
		t.Errorf("expected close error, got %v", err)
	}
}
