// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Command framing and parsing for the client→server direction.

package protocol

import (
	"bytes"
	"strings"
)

// Command keywords.
const (
	KeywordList = "LIST"
	KeywordGet  = "GET"
)

// Kind identifies a parsed command.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindList
	KindGet
)

func (k Kind) String() string {
	switch k {
	case KindList:
		return KeywordList
	case KindGet:
		return KeywordGet
	default:
		return "UNKNOWN"
	}
}

// Command is one parsed request line.
type Command struct {
	Kind    Kind
	Keyword string
	Name    string // GET argument, empty when missing
}

// takesArgument reports whether a keyword must be followed by an argument
// on the same line. Such commands are framed by '\n' only.
func takesArgument(keyword string) bool {
	return keyword == KeywordGet
}

// NextLine frames the next command line in buf.
//
// A line ends at the first '\n', or at the first space when the keyword
// before it takes no argument ("LIST "). Leading whitespace is skipped.
// n is the number of bytes the caller must discard from the front of buf,
// whether or not a line was found.
func NextLine(buf []byte) (line string, n int, ok bool) {
	skip := 0
	for skip < len(buf) && isBlank(buf[skip]) {
		skip++
	}
	rest := buf[skip:]

	j := bytes.IndexAny(rest, " \n")
	if j < 0 {
		return "", skip, false
	}
	if rest[j] == '\n' {
		return strings.TrimSpace(string(rest[:j])), skip + j + 1, true
	}

	keyword := strings.TrimSpace(string(rest[:j]))
	if !takesArgument(keyword) {
		return keyword, skip + j + 1, true
	}
	k := bytes.IndexByte(rest, '\n')
	if k < 0 {
		return "", skip, false
	}
	return strings.TrimSpace(string(rest[:k])), skip + k + 1, true
}

func isBlank(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t'
}

// ParseCommand parses a framed, non-empty command line. Fields are split on
// whitespace and GET takes only the first one as its name, so "GET a b" asks
// for "a" and names containing spaces cannot be requested.
func ParseCommand(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{Kind: KindUnknown}
	}
	cmd := Command{Keyword: fields[0]}
	switch fields[0] {
	case KeywordList:
		cmd.Kind = KindList
	case KeywordGet:
		cmd.Kind = KindGet
		if len(fields) > 1 {
			cmd.Name = fields[1]
		}
	default:
		cmd.Kind = KindUnknown
	}
	return cmd
}

// AppendList appends the LIST request, terminated by its space delimiter.
func AppendList(dst []byte) []byte {
	dst = append(dst, KeywordList...)
	return append(dst, ' ')
}

// AppendGet appends "GET <name>\n".
func AppendGet(dst []byte, name string) []byte {
	dst = append(dst, KeywordGet...)
	dst = append(dst, ' ')
	dst = append(dst, name...)
	return append(dst, LineDelimiter)
}
