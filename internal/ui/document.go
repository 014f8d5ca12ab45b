package ui

import (
	"bytes"
	"sort"

	"aqualess/internal/domain"
	"aqualess/internal/search"
	"aqualess/internal/sink"
)

// document is one window: a sink, its search session and the scroll position
type document struct {
	title   string
	handle  domain.PipeHandle
	aux     string // auxiliary window name, empty for documents
	sink    *sink.Sink
	session *search.Session

	lines   []int // start offset of every line
	scanned int
	top     int
	match   *search.Match
	closed  bool
	tail    bool // keep the last line in view as data arrives
}

func newDocument(s *sink.Sink, opts search.Options) *document {
	d := &document{
		title:   s.Title(),
		handle:  s.Handle(),
		sink:    s,
		session: search.NewSession(s, opts),
		lines:   []int{0},
		closed:  s.State() == domain.SinkClosed,
	}
	d.index()
	return d
}

// index records the line starts of bytes appended since the last call
func (d *document) index() {
	buf := d.sink.Bytes()
	for i := d.scanned; i < len(buf); {
		j := bytes.IndexByte(buf[i:], '\n')
		if j < 0 {
			break
		}
		i += j + 1
		d.lines = append(d.lines, i)
	}
	d.scanned = len(buf)
}

func (d *document) lineCount() int {
	n := len(d.lines)
	if n > 1 && d.lines[n-1] == d.scanned {
		n-- // trailing newline does not start a visible line
	}
	return n
}

// span returns the byte range of line i without its line terminator
func (d *document) span(i int) (int, int) {
	buf := d.sink.Bytes()
	start := d.lines[i]
	end := len(buf)
	if i+1 < len(d.lines) {
		end = d.lines[i+1] - 1
	}
	if end > len(buf) {
		end = len(buf)
	}
	if end > start && buf[end-1] == '\r' {
		end--
	}
	return start, end
}

// lineOf returns the line containing offset
func (d *document) lineOf(offset int) int {
	return sort.Search(len(d.lines), func(i int) bool { return d.lines[i] > offset }) - 1
}

func (d *document) maxTop(height int) int {
	if n := d.lineCount() - height; n > 0 {
		return n
	}
	return 0
}

func (d *document) scrollTo(line, height int) {
	d.top = min(max(line, 0), d.maxTop(height))
}

// percent is how far through the document the bottom of the screen is
func (d *document) percent(height int) int {
	total := d.lineCount()
	if total == 0 {
		return 100
	}
	return min(100, (d.top+height)*100/total)
}

// syncCursor moves the search cursor to just before the top line
func (d *document) syncCursor() {
	d.session.SetCursor(d.lines[d.top] - 1)
}
