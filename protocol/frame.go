// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Line-oriented wire format of the file server: response encoders used by
// the server and decoders used by clients. Encoders append to a caller-owned
// slice so the connection can grow its outbound buffer in place.

package protocol

import "strconv"

// Response line prefixes and sentinels.
const (
	PrefixFile    = "FILE "
	PrefixMD5     = "MD5 "
	PrefixErr     = "ERR "
	ListSentinel  = "."
	LineDelimiter = '\n'
)

// Reasons carried on ERR lines.
const (
	ReasonMissingFilename = "missing filename"
	ReasonFileNotFound    = "file not found"
	ReasonUnknownCommand  = "unknown command"
)

// AppendFileHeader appends "FILE <size>\n".
func AppendFileHeader(dst []byte, size int64) []byte {
	dst = append(dst, PrefixFile...)
	dst = strconv.AppendInt(dst, size, 10)
	return append(dst, LineDelimiter)
}

// AppendTrailer appends the newline closing the raw body and "MD5 <hex>\n".
func AppendTrailer(dst []byte, digest string) []byte {
	dst = append(dst, LineDelimiter)
	dst = append(dst, PrefixMD5...)
	dst = append(dst, digest...)
	return append(dst, LineDelimiter)
}

// AppendError appends "ERR <reason>\n".
func AppendError(dst []byte, reason string) []byte {
	dst = append(dst, PrefixErr...)
	dst = append(dst, reason...)
	return append(dst, LineDelimiter)
}

// AppendListing appends every name followed by one space, then ".\n".
func AppendListing(dst []byte, names []string) []byte {
	for _, name := range names {
		dst = append(dst, name...)
		dst = append(dst, ' ')
	}
	dst = append(dst, ListSentinel...)
	return append(dst, LineDelimiter)
}
