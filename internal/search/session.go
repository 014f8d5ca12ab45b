package search

import (
	"errors"

	"aqualess/internal/domain"
	"aqualess/internal/eventbus"
)

// TextView is the read-only text a session searches. Bytes must return a
// slice whose existing contents never change.
type TextView interface {
	Bytes() []byte
}

// Listener receives search outcomes on the UI thread
type Listener interface {
	MatchFound(offset, length int)
	NoMatch()
	SearchError(kind domain.ErrorKind)
}

// Session remembers the last pattern and direction of one window
type Session struct {
	view     TextView
	opts     Options
	listener Listener
	bus      eventbus.EventBus

	hasPattern    bool
	lastPattern   string
	lastDirection Direction
	cursor        int
}

// NewSession binds a session to view. The cursor starts before the first byte.
func NewSession(view TextView, opts Options) *Session {
	return &Session{
		view:   view,
		opts:   opts,
		cursor: -1,
	}
}

// SetListener sets the presentation callback
func (s *Session) SetListener(l Listener) {
	s.listener = l
}

// SetBus makes the session publish a SearchPerformedEvent per attempt
func (s *Session) SetBus(bus eventbus.EventBus) {
	s.bus = bus
}

// SetOptions changes the matcher flags for subsequent searches
func (s *Session) SetOptions(opts Options) {
	s.opts = opts
}

func (s *Session) Options() Options { return s.opts }

// SetCursor moves the search origin, e.g. when the viewport scrolls
func (s *Session) SetCursor(offset int) {
	if offset < -1 {
		offset = -1
	}
	s.cursor = offset
}

func (s *Session) Cursor() int { return s.cursor }

// LastPattern returns the last pattern and whether one was ever entered
func (s *Session) LastPattern() (string, bool) {
	return s.lastPattern, s.hasPattern
}

func (s *Session) LastDirection() Direction { return s.lastDirection }

// FindPattern records pattern and dir, then searches from the cursor. The
// pattern is recorded even when the search fails so a repeat reuses it.
func (s *Session) FindPattern(pattern string, dir Direction) (Match, error) {
	s.hasPattern = true
	s.lastPattern = pattern
	s.lastDirection = dir
	return s.run(pattern, dir)
}

// FindAgain repeats the last pattern in dir without changing the remembered direction
func (s *Session) FindAgain(dir Direction) (Match, error) {
	if !s.hasPattern {
		s.report(Match{}, domain.ErrNoPriorPattern, "", dir)
		return Match{}, domain.ErrNoPriorPattern
	}
	return s.run(s.lastPattern, dir)
}

func (s *Session) FindAgainForward() (Match, error) { return s.FindAgain(Forward) }

func (s *Session) FindAgainBackward() (Match, error) { return s.FindAgain(Backward) }

func (s *Session) FindAgainSameDirection() (Match, error) {
	return s.FindAgain(s.lastDirection)
}

func (s *Session) FindAgainOtherDirection() (Match, error) {
	return s.FindAgain(s.lastDirection.Opposite())
}

func (s *Session) run(pattern string, dir Direction) (Match, error) {
	var buf []byte
	if s.view != nil {
		buf = s.view.Bytes()
	}

	m, err := Find(buf, pattern, s.cursor, dir, s.opts)
	if err == nil {
		s.cursor = m.Offset
	}
	s.report(m, err, pattern, dir)
	return m, err
}

func (s *Session) report(m Match, err error, pattern string, dir Direction) {
	if s.listener != nil {
		switch {
		case err == nil:
			s.listener.MatchFound(m.Offset, m.Length)
		case errors.Is(err, domain.ErrNoMatch):
			s.listener.NoMatch()
		default:
			s.listener.SearchError(domain.KindOf(err))
		}
	}

	if s.bus != nil {
		s.bus.Publish(eventbus.SearchPerformedEvent{
			Pattern:  pattern,
			Backward: bool(dir),
			Found:    err == nil,
			Offset:   m.Offset,
			Kind:     domain.KindOf(err),
		})
	}
}
