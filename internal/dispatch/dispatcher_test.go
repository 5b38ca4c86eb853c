package dispatch_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/momentics/hioload-fs/api"
	"github.com/momentics/hioload-fs/internal/dispatch"
	"github.com/momentics/hioload-fs/internal/stream"
)

// recorder captures what the dispatcher asks of a connection.
type recorder struct {
	replies  []string
	attached string
	streamer *stream.Streamer
	busy     bool
}

func (r *recorder) Reply(p []byte) { r.replies = append(r.replies, string(p)) }

func (r *recorder) Attach(name string, s *stream.Streamer) error {
	if r.busy {
		return errors.New("busy")
	}
	r.attached, r.streamer = name, s
	return nil
}

func newDispatcher(t *testing.T, files map[string]string) (*dispatch.Dispatcher, string) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	d, err := dispatch.New(dir, dispatch.WithChunkSize(1024))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, dir
}

func TestNew_RejectsBadRoot(t *testing.T) {
	if _, err := dispatch.New(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := dispatch.New(file); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestDispatch_ListEmpty(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	var r recorder
	if err := d.Dispatch("LIST", &r); err != nil {
		t.Fatal(err)
	}
	if len(r.replies) != 1 || r.replies[0] != ".\n" {
		t.Errorf("replies = %q", r.replies)
	}
}

func TestDispatch_ListSkipsDirectories(t *testing.T) {
	d, dir := newDispatcher(t, map[string]string{"b.txt": "b", "a.txt": "a"})
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "a.txt"), filepath.Join(dir, "link")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "sub"), filepath.Join(dir, "dirlink")); err != nil {
		t.Fatal(err)
	}
	var r recorder
	if err := d.Dispatch("LIST", &r); err != nil {
		t.Fatal(err)
	}
	if want := "a.txt b.txt link .\n"; len(r.replies) != 1 || r.replies[0] != want {
		t.Errorf("replies = %q, want %q", r.replies, want)
	}
}

func TestDispatch_GetAttachesStreamer(t *testing.T) {
	d, _ := newDispatcher(t, map[string]string{"hello.txt": "hello"})
	var r recorder
	if err := d.Dispatch("GET hello.txt", &r); err != nil {
		t.Fatal(err)
	}
	if len(r.replies) != 0 {
		t.Errorf("unexpected replies %q", r.replies)
	}
	if r.attached != "hello.txt" || r.streamer == nil {
		t.Fatalf("attached %q", r.attached)
	}
	defer r.streamer.Close()
	if r.streamer.Size() != 5 {
		t.Errorf("size = %d", r.streamer.Size())
	}
}

func TestDispatch_GetTraversalStaysInRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "served")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(parent, "secret"), []byte("outside"), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := dispatch.New(root)
	if err != nil {
		t.Fatal(err)
	}

	var r recorder
	if err := d.Dispatch("GET ../secret", &r); err != nil {
		t.Fatal(err)
	}
	if r.streamer != nil {
		r.streamer.Close()
		t.Fatal("traversal escaped the served directory")
	}
	if len(r.replies) != 1 || r.replies[0] != "ERR file not found\n" {
		t.Errorf("replies = %q", r.replies)
	}

	if err := os.WriteFile(filepath.Join(root, "secret"), []byte("inside"), 0o644); err != nil {
		t.Fatal(err)
	}
	r = recorder{}
	if err := d.Dispatch("GET ../secret", &r); err != nil {
		t.Fatal(err)
	}
	if r.attached != "secret" || r.streamer == nil {
		t.Fatalf("attached %q", r.attached)
	}
	defer r.streamer.Close()
	if r.streamer.Size() != int64(len("inside")) {
		t.Errorf("served the wrong file, size %d", r.streamer.Size())
	}
}

func TestDispatch_Errors(t *testing.T) {
	d, dir := newDispatcher(t, nil)
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		line string
		want string
	}{
		{"GET", "ERR missing filename\n"},
		{"GET nope.txt", "ERR file not found\n"},
		{"GET sub", "ERR file not found\n"},
		{"GET ..", "ERR file not found\n"},
		{"PUT x", "ERR unknown command\n"},
		{"list", "ERR unknown command\n"},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			var r recorder
			if err := d.Dispatch(tc.line, &r); err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			if len(r.replies) != 1 || r.replies[0] != tc.want {
				t.Errorf("replies = %q, want %q", r.replies, tc.want)
			}
			if r.streamer != nil {
				t.Error("unexpected streamer")
			}
		})
	}
}

func TestDispatch_AttachFailureIsFatal(t *testing.T) {
	d, _ := newDispatcher(t, map[string]string{"a": "x"})
	r := recorder{busy: true}
	if err := d.Dispatch("GET a", &r); err == nil {
		t.Fatal("expected attach error")
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"file.txt":         "file.txt",
		"../secret":        "secret",
		"..\\..\\boot.ini": "boot.ini",
		"a/b/c":            "abc",
		"./.":              "",
		"....":             "",
		".../x":            ".x",
	}
	for in, want := range cases {
		if got := dispatch.Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
