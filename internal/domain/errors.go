package domain

import "errors"

var (
	// ErrInvalidPattern is returned for an empty or malformed search pattern
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrNoMatch is returned when a search completes without a hit
	ErrNoMatch = errors.New("pattern not found")
	// ErrNoPriorPattern is returned by repeat searches before any pattern was entered
	ErrNoPriorPattern = errors.New("no previous search pattern")
	// ErrUnknownHandle is returned for a pipe handle that was never opened or was released
	ErrUnknownHandle = errors.New("unknown pipe handle")
	// ErrHandleClosed is returned when writing to a pipe after end of stream
	ErrHandleClosed = errors.New("pipe handle closed")
	// ErrDuplicateName is returned when an auxiliary window name is already registered
	ErrDuplicateName = errors.New("window name already registered")
	// ErrResourceExhausted is returned when no more pipes can be opened
	ErrResourceExhausted = errors.New("pipe resources exhausted")
)

// ErrorKind classifies core errors for the presentation layer
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindInvalidPattern
	KindNoMatch
	KindNoPriorPattern
	KindUnknownHandle
	KindHandleClosed
	KindDuplicateName
	KindResourceExhausted
	KindOther
)

var kindNames = map[ErrorKind]string{
	KindNone:              "none",
	KindInvalidPattern:    "invalid pattern",
	KindNoMatch:           "no match",
	KindNoPriorPattern:    "no prior pattern",
	KindUnknownHandle:     "unknown handle",
	KindHandleClosed:      "handle closed",
	KindDuplicateName:     "duplicate name",
	KindResourceExhausted: "resource exhausted",
	KindOther:             "other",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindOf maps an error (possibly wrapped) to its kind
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidPattern):
		return KindInvalidPattern
	case errors.Is(err, ErrNoMatch):
		return KindNoMatch
	case errors.Is(err, ErrNoPriorPattern):
		return KindNoPriorPattern
	case errors.Is(err, ErrUnknownHandle):
		return KindUnknownHandle
	case errors.Is(err, ErrHandleClosed):
		return KindHandleClosed
	case errors.Is(err, ErrDuplicateName):
		return KindDuplicateName
	case errors.Is(err, ErrResourceExhausted):
		return KindResourceExhausted
	default:
		return KindOther
	}
}
