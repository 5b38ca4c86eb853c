// File: internal/stream/stage.go
// Author: momentics <momentics@gmail.com>

package stream

// Stage is the position of a Streamer in the response it produces.
type Stage uint8

const (
	StageHeader Stage = iota
	StageBody
	StageTrailing
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageHeader:
		return "header"
	case StageBody:
		return "body"
	case StageTrailing:
		return "trailing"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}
