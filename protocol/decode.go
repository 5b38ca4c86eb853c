// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Decoders for server→client lines, used by the client package.

package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedLine is returned when a response line does not match the wire format.
var ErrMalformedLine = errors.New("malformed response line")

// RemoteError is an ERR line received from the server.
type RemoteError struct {
	Reason string
}

func (e *RemoteError) Error() string {
	return "server error: " + e.Reason
}

// ParseErrorLine returns a *RemoteError when line is an ERR line.
func ParseErrorLine(line string) (*RemoteError, bool) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, PrefixErr) {
		return nil, false
	}
	return &RemoteError{Reason: strings.TrimPrefix(line, PrefixErr)}, true
}

// ParseListing splits a LIST response line into file names.
func ParseListing(line string) ([]string, error) {
	if re, ok := ParseErrorLine(line); ok {
		return nil, re
	}
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[len(fields)-1] != ListSentinel {
		return nil, fmt.Errorf("listing %q: missing %q terminator: %w", line, ListSentinel, ErrMalformedLine)
	}
	return fields[:len(fields)-1], nil
}

// ParseFileHeader extracts the body size from "FILE <size>".
func ParseFileHeader(line string) (int64, error) {
	if re, ok := ParseErrorLine(line); ok {
		return 0, re
	}
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, PrefixFile) {
		return 0, fmt.Errorf("header %q: %w", line, ErrMalformedLine)
	}
	size, err := strconv.ParseInt(strings.TrimSpace(line[len(PrefixFile):]), 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("header %q: bad size: %w", line, ErrMalformedLine)
	}
	return size, nil
}

// ParseDigestLine extracts the hex digest from "MD5 <hex>".
func ParseDigestLine(line string) (string, error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, PrefixMD5) {
		return "", fmt.Errorf("digest %q: %w", line, ErrMalformedLine)
	}
	digest := strings.TrimSpace(line[len(PrefixMD5):])
	if digest == "" {
		return "", fmt.Errorf("digest %q: empty: %w", line, ErrMalformedLine)
	}
	return digest, nil
}
