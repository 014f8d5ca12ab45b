package sink

import (
	"context"
	"fmt"
	"sync"

	"aqualess/internal/domain"
)

// Option configures a Sink
type Option func(*Sink)

// WithHighWatermark makes WaitForRoom block while more than n bytes are
// queued. n <= 0 disables back-pressure.
func WithHighWatermark(n int) Option {
	return func(s *Sink) { s.highWater = n }
}

// Sink accumulates the text of one document.
//
// Producers call Enqueue from any goroutine. The owning goroutine calls
// Drain to move queued chunks into the buffer. Appended bytes are never
// modified afterwards, so slices handed out by Bytes and Read stay valid.
type Sink struct {
	handle    domain.PipeHandle
	title     string
	highWater int

	qmu         sync.Mutex
	queue       [][]byte
	queued      int
	writeClosed bool
	room        chan struct{} // closed and replaced whenever the queue shrinks

	mu    sync.RWMutex
	buf   []byte
	state domain.SinkState
}

// New creates an empty sink in the Allocated state
func New(handle domain.PipeHandle, title string, opts ...Option) *Sink {
	s := &Sink{
		handle: handle,
		title:  title,
		room:   make(chan struct{}),
		state:  domain.SinkAllocated,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStatic creates a closed sink holding data, for documents that are not piped
func NewStatic(title string, data []byte) *Sink {
	s := New(domain.NoPipe, title)
	s.buf = data[:len(data):len(data)]
	s.writeClosed = true
	s.state = domain.SinkClosed
	return s
}

func (s *Sink) Handle() domain.PipeHandle { return s.handle }

func (s *Sink) Title() string { return s.title }

// Enqueue copies chunk onto the hand-off queue. wake reports that the queue
// was empty, so the owner needs to be told to drain.
func (s *Sink) Enqueue(chunk []byte) (wake bool, err error) {
	s.qmu.Lock()
	defer s.qmu.Unlock()

	if s.writeClosed {
		return false, fmt.Errorf("%s: %w", s.handle, domain.ErrHandleClosed)
	}
	if len(chunk) == 0 {
		return false, nil
	}

	wake = len(s.queue) == 0
	s.queue = append(s.queue, append([]byte(nil), chunk...))
	s.queued += len(chunk)
	return wake, nil
}

// Drain applies every queued chunk in FIFO order and returns the bytes that
// were appended. Call only from the owning goroutine.
func (s *Sink) Drain() []byte {
	s.qmu.Lock()
	batch := s.queue
	s.queue = nil
	if s.queued > 0 {
		s.queued = 0
		close(s.room)
		s.room = make(chan struct{})
	}
	s.qmu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.buf)
	for _, chunk := range batch {
		s.buf = append(s.buf, chunk...)
	}
	if s.state == domain.SinkAllocated {
		s.state = domain.SinkStreaming
	}
	return s.buf[start:len(s.buf):len(s.buf)]
}

// WaitForRoom blocks while the queue is above the high watermark. It returns
// ErrHandleClosed once the sink stops accepting data.
func (s *Sink) WaitForRoom(ctx context.Context) error {
	for {
		s.qmu.Lock()
		if s.writeClosed {
			s.qmu.Unlock()
			return fmt.Errorf("%s: %w", s.handle, domain.ErrHandleClosed)
		}
		if s.highWater <= 0 || s.queued < s.highWater {
			s.qmu.Unlock()
			return nil
		}
		room := s.room
		s.qmu.Unlock()

		select {
		case <-room:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// CloseWrite stops accepting chunks. Already queued chunks are kept for the
// final Drain. Returns false if writes were already closed.
func (s *Sink) CloseWrite() bool {
	s.qmu.Lock()
	defer s.qmu.Unlock()

	if s.writeClosed {
		return false
	}
	s.writeClosed = true
	close(s.room)
	s.room = make(chan struct{})
	return true
}

// MarkClosed moves the sink to Closed. Returns false if it already was.
func (s *Sink) MarkClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.SinkClosed {
		return false
	}
	s.state = domain.SinkClosed
	return true
}

// Cancel discards queued chunks and closes the sink. Returns the number of
// discarded bytes. The buffer stays readable.
func (s *Sink) Cancel() int {
	s.qmu.Lock()
	discarded := s.queued
	s.queue = nil
	s.queued = 0
	s.qmu.Unlock()

	s.CloseWrite()
	s.MarkClosed()
	return discarded
}

// WriteClosed reports whether Enqueue has stopped accepting data
func (s *Sink) WriteClosed() bool {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	return s.writeClosed
}

// Pending returns the number of queued bytes not yet drained
func (s *Sink) Pending() int {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	return s.queued
}

func (s *Sink) State() domain.SinkState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Len returns the number of applied bytes
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buf)
}

// Bytes returns a read-only view of everything applied so far
func (s *Sink) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buf[:len(s.buf):len(s.buf)]
}

// Read returns bytes [start, end). end is clamped to the current length.
func (s *Sink) Read(start, end int) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if end > len(s.buf) {
		end = len(s.buf)
	}
	if start < 0 || start > end {
		return nil, fmt.Errorf("invalid range [%d, %d) for %d bytes", start, end, len(s.buf))
	}
	return s.buf[start:end:end], nil
}
