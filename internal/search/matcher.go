package search

import (
	"bytes"
	"fmt"
	"regexp"

	"aqualess/internal/domain"
)

// Direction of a search. Backward is true, matching the boolean flag the
// pager has always used for "search backwards".
type Direction bool

const (
	Forward  Direction = false
	Backward Direction = true
)

// Opposite returns the other direction
func (d Direction) Opposite() Direction { return !d }

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Options are the caller-supplied matching flags
type Options struct {
	IgnoreCase bool
	Regexp     bool // treat the pattern as an RE2 expression instead of a literal
}

// Match is the location of one occurrence
type Match struct {
	Offset int
	Length int
}

// Matcher is a compiled pattern. It holds no position state and is safe to
// reuse across buffers.
type Matcher struct {
	pattern string
	literal []byte
	re      *regexp.Regexp
	after   *regexp.Regexp // re behind one skipped rune, for searches that start mid-text
}

// Compile prepares pattern for searching
func Compile(pattern string, opts Options) (*Matcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", domain.ErrInvalidPattern)
	}

	m := &Matcher{pattern: pattern}
	if !opts.Regexp && !opts.IgnoreCase {
		m.literal = []byte(pattern)
		return m, nil
	}

	expr := pattern
	if !opts.Regexp {
		expr = regexp.QuoteMeta(pattern)
	}
	if opts.IgnoreCase {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPattern, err)
	}
	// A pattern that matches the empty string would match everywhere
	if re.MatchString("") {
		return nil, fmt.Errorf("%w: %q matches empty text", domain.ErrInvalidPattern, pattern)
	}
	after, err := regexp.Compile(`\A(?s:.)(?s:.)*?(` + expr + `)`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPattern, err)
	}
	m.re, m.after = re, after
	return m, nil
}

// Pattern returns the source pattern
func (m *Matcher) Pattern() string { return m.pattern }

// Find returns the nearest occurrence strictly after from (Forward) or
// strictly before from (Backward). There is no wraparound.
func (m *Matcher) Find(buf []byte, from int, dir Direction) (Match, error) {
	if dir == Backward {
		return m.findBackward(buf, from)
	}
	return m.findForward(buf, from)
}

func (m *Matcher) findForward(buf []byte, from int) (Match, error) {
	start := from + 1
	if start < 0 {
		start = 0
	}
	if start > len(buf) {
		return Match{}, domain.ErrNoMatch
	}

	if m.re == nil {
		i := bytes.Index(buf[start:], m.literal)
		if i < 0 {
			return Match{}, domain.ErrNoMatch
		}
		return Match{Offset: start + i, Length: len(m.literal)}, nil
	}

	match, ok := m.next(buf, start)
	if !ok {
		return Match{}, domain.ErrNoMatch
	}
	return match, nil
}

func (m *Matcher) findBackward(buf []byte, from int) (Match, error) {
	limit := from - 1 // last acceptable start offset
	if limit >= len(buf) {
		limit = len(buf) - 1
	}
	if limit < 0 {
		return Match{}, domain.ErrNoMatch
	}

	if m.re == nil {
		end := limit + len(m.literal)
		if end > len(buf) {
			end = len(buf)
		}
		i := bytes.LastIndex(buf[:end], m.literal)
		if i < 0 {
			return Match{}, domain.ErrNoMatch
		}
		return Match{Offset: i, Length: len(m.literal)}, nil
	}

	// Step one position past each hit so overlapping occurrences are not skipped
	best := Match{Offset: -1}
	for pos := 0; pos <= limit; {
		match, ok := m.next(buf, pos)
		if !ok || match.Offset > limit {
			break
		}
		best = match
		pos = match.Offset + 1
	}
	if best.Offset < 0 {
		return Match{}, domain.ErrNoMatch
	}
	return best, nil
}

// next returns the leftmost regexp match starting at or after start. The
// text before start stays visible to ^, \A and \b, so a search that begins
// mid-line does not treat its origin as the start of the text.
func (m *Matcher) next(buf []byte, start int) (Match, bool) {
	if start == 0 {
		loc := m.re.FindIndex(buf)
		if loc == nil {
			return Match{}, false
		}
		return Match{Offset: loc[0], Length: loc[1] - loc[0]}, true
	}

	loc := m.after.FindSubmatchIndex(buf[start-1:])
	if loc == nil {
		return Match{}, false
	}
	return Match{Offset: start - 1 + loc[2], Length: loc[3] - loc[2]}, true
}

// Find compiles pattern and searches buf once
func Find(buf []byte, pattern string, from int, dir Direction, opts Options) (Match, error) {
	m, err := Compile(pattern, opts)
	if err != nil {
		return Match{}, err
	}
	return m.Find(buf, from, dir)
}
