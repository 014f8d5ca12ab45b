package domain

import "fmt"

// PipeHandle identifies one logical streamed document
type PipeHandle int

// NoPipe marks a document that is not fed by a pipe (a static file, a readme)
const NoPipe PipeHandle = 0

func (h PipeHandle) String() string {
	if h == NoPipe {
		return "nopipe"
	}
	return fmt.Sprintf("pipe#%d", int(h))
}

// SinkState is the lifecycle of a document sink
type SinkState int

const (
	SinkAllocated SinkState = iota // opened, nothing received yet
	SinkStreaming                  // at least one chunk applied
	SinkClosed                     // end of stream or released
)

func (s SinkState) String() string {
	switch s {
	case SinkAllocated:
		return "allocated"
	case SinkStreaming:
		return "streaming"
	case SinkClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Document describes a displayed document for the presentation layer
type Document struct {
	Handle PipeHandle
	Title  string
	Size   int
	State  SinkState
}
