package protocol_test

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-fs/protocol"
)

func TestResponseEncoders(t *testing.T) {
	if got := string(protocol.AppendFileHeader(nil, 1024)); got != "FILE 1024\n" {
		t.Errorf("AppendFileHeader = %q", got)
	}
	if got := string(protocol.AppendTrailer(nil, "abc")); got != "\nMD5 abc\n" {
		t.Errorf("AppendTrailer = %q", got)
	}
	if got := string(protocol.AppendError(nil, protocol.ReasonFileNotFound)); got != "ERR file not found\n" {
		t.Errorf("AppendError = %q", got)
	}
	if got := string(protocol.AppendListing(nil, []string{"a", "b"})); got != "a b .\n" {
		t.Errorf("AppendListing = %q", got)
	}
	if got := string(protocol.AppendListing(nil, nil)); got != ".\n" {
		t.Errorf("empty AppendListing = %q", got)
	}
}

func TestParseListing(t *testing.T) {
	names, err := protocol.ParseListing("a.txt b.bin .\n")
	if err != nil {
		t.Fatalf("ParseListing: %v", err)
	}
	if len(names) != 2 || names[0] != "a.txt" || names[1] != "b.bin" {
		t.Errorf("unexpected names %q", names)
	}

	names, err = protocol.ParseListing(".\n")
	if err != nil || len(names) != 0 {
		t.Errorf("empty listing: %q, %v", names, err)
	}

	if _, err := protocol.ParseListing("a.txt b.bin\n"); !errors.Is(err, protocol.ErrMalformedLine) {
		t.Errorf("expected ErrMalformedLine, got %v", err)
	}
}

func TestParseFileHeader(t *testing.T) {
	size, err := protocol.ParseFileHeader("FILE 42\n")
	if err != nil || size != 42 {
		t.Fatalf("ParseFileHeader = %d, %v", size, err)
	}

	_, err = protocol.ParseFileHeader("ERR file not found\n")
	var re *protocol.RemoteError
	if !errors.As(err, &re) || re.Reason != protocol.ReasonFileNotFound {
		t.Errorf("expected RemoteError, got %v", err)
	}

	for _, bad := range []string{"FILE\n", "FILE -1\n", "FILE x\n", "SIZE 3\n"} {
		if _, err := protocol.ParseFileHeader(bad); !errors.Is(err, protocol.ErrMalformedLine) {
			t.Errorf("ParseFileHeader(%q): expected ErrMalformedLine, got %v", bad, err)
		}
	}
}

func TestParseDigestLine(t *testing.T) {
	d, err := protocol.ParseDigestLine("MD5 d41d8cd98f00b204e9800998ecf8427e\n")
	if err != nil || d != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Fatalf("ParseDigestLine = %q, %v", d, err)
	}
	if _, err := protocol.ParseDigestLine("SHA1 abc\n"); !errors.Is(err, protocol.ErrMalformedLine) {
		t.Errorf("expected ErrMalformedLine, got %v", err)
	}
}
