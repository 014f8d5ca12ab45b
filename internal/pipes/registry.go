// Package pipes hands out pipe handles and routes producer data into
// document sinks.
//
// OpenPipe, AddData and ClosePipe may be called from any goroutine. Applying
// data to a sink and every observer callback happen on the goroutine behind
// the Scheduler, which in the terminal UI is the Bubble Tea update loop.
package pipes

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"go.uber.org/zap"

	"aqualess/internal/config"
	"aqualess/internal/domain"
	"aqualess/internal/eventbus"
	"aqualess/internal/loop"
	"aqualess/internal/metrics"
	"aqualess/internal/sink"
)

// Observer is told about sink changes on the UI goroutine
type Observer interface {
	OnSinkAppended(handle domain.PipeHandle, newBytes []byte)
	OnSinkClosed(handle domain.PipeHandle)
}

// WindowRequester builds the presentation window for a freshly opened pipe
type WindowRequester interface {
	RequestWindowFor(handle domain.PipeHandle, title string)
}

// Registry owns every live sink, keyed by handle
type Registry struct {
	cfg     config.PipeSettings
	sched   loop.Scheduler
	bus     eventbus.EventBus
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu        sync.RWMutex
	sinks     map[domain.PipeHandle]*sink.Sink
	last      domain.PipeHandle
	limit     domain.PipeHandle
	observer  Observer
	requester WindowRequester
}

// NewRegistry creates an empty registry. bus, logger and m may be nil.
func NewRegistry(cfg config.PipeSettings, sched loop.Scheduler, bus eventbus.EventBus, logger *zap.Logger, m *metrics.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Registry{
		cfg:     cfg,
		sched:   sched,
		bus:     bus,
		logger:  logger.Named("pipes"),
		metrics: m,
		sinks:   make(map[domain.PipeHandle]*sink.Sink),
		limit:   domain.PipeHandle(math.MaxInt),
	}
}

func (r *Registry) SetObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
}

func (r *Registry) SetWindowRequester(w WindowRequester) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requester = w
}

// OpenPipe allocates the next handle and an empty sink for it. An empty
// title becomes "pipe <n>".
func (r *Registry) OpenPipe(title string) (domain.PipeHandle, error) {
	r.mu.Lock()
	if r.cfg.MaxOpen > 0 && len(r.sinks) >= r.cfg.MaxOpen {
		r.mu.Unlock()
		r.logger.Warn("pipe limit reached", zap.Int("max_open", r.cfg.MaxOpen))
		return domain.NoPipe, fmt.Errorf("%d pipes open: %w", r.cfg.MaxOpen, domain.ErrResourceExhausted)
	}
	if r.last >= r.limit {
		r.mu.Unlock()
		r.logger.Error("pipe handles exhausted")
		return domain.NoPipe, fmt.Errorf("handle counter overflow: %w", domain.ErrResourceExhausted)
	}
	r.last++
	handle := r.last
	if title == "" {
		title = fmt.Sprintf("pipe %d", handle)
	}
	s := sink.New(handle, title, sink.WithHighWatermark(r.cfg.HighWatermark))
	r.sinks[handle] = s
	r.mu.Unlock()

	r.metrics.PipesOpened.Inc()
	r.metrics.PipesActive.Inc()
	r.logger.Info("pipe opened", zap.Stringer("handle", handle), zap.String("title", title))
	r.publish(eventbus.PipeOpenedEvent{Handle: handle, Title: title})

	r.sched.Post(func() {
		if req := r.windowRequester(); req != nil && r.current(handle, s) {
			req.RequestWindowFor(handle, title)
		}
	})
	return handle, nil
}

// AddData queues a copy of data for handle. Safe from any goroutine.
func (r *Registry) AddData(handle domain.PipeHandle, data []byte) error {
	s, err := r.Sink(handle)
	if err != nil {
		r.metrics.AddDataErrors.WithLabelValues(domain.KindOf(err).String()).Inc()
		return err
	}

	wake, err := s.Enqueue(data)
	if err != nil {
		r.metrics.AddDataErrors.WithLabelValues(domain.KindOf(err).String()).Inc()
		return err
	}
	if wake {
		r.sched.Post(func() { r.drain(handle, s) })
	}
	return nil
}

// WaitForRoom blocks a producer while handle's queue is above the high
// watermark.
func (r *Registry) WaitForRoom(ctx context.Context, handle domain.PipeHandle) error {
	s, err := r.Sink(handle)
	if err != nil {
		return err
	}
	return s.WaitForRoom(ctx)
}

// ClosePipe ends the stream for handle. Data queued before the call is still
// applied, then the sink becomes Closed. Closing twice is a no-op.
func (r *Registry) ClosePipe(handle domain.PipeHandle) error {
	s, err := r.Sink(handle)
	if err != nil {
		return err
	}
	if !s.CloseWrite() {
		return nil
	}
	r.logger.Debug("pipe closing", zap.Stringer("handle", handle), zap.Int("pending", s.Pending()))
	r.sched.Post(func() { r.finish(handle, s) })
	return nil
}

// Release drops handle after its window went away. Undrained data is
// discarded and later calls with handle fail with ErrUnknownHandle.
func (r *Registry) Release(handle domain.PipeHandle) error {
	r.mu.Lock()
	s, ok := r.sinks[handle]
	if ok {
		delete(r.sinks, handle)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", handle, domain.ErrUnknownHandle)
	}

	discarded := s.Cancel()
	r.metrics.PipesActive.Dec()
	r.metrics.BytesDiscarded.Add(float64(discarded))
	r.logger.Info("pipe released", zap.Stringer("handle", handle), zap.Int("discarded", discarded))
	r.publish(eventbus.PipeReleasedEvent{Handle: handle, Discarded: discarded})
	return nil
}

// Sink returns the live sink for handle
func (r *Registry) Sink(handle domain.PipeHandle) (*sink.Sink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sinks[handle]
	if !ok {
		return nil, fmt.Errorf("%s: %w", handle, domain.ErrUnknownHandle)
	}
	return s, nil
}

// Read returns the applied bytes [start, end) of handle
func (r *Registry) Read(handle domain.PipeHandle, start, end int) ([]byte, error) {
	s, err := r.Sink(handle)
	if err != nil {
		return nil, err
	}
	return s.Read(start, end)
}

func (r *Registry) Len(handle domain.PipeHandle) (int, error) {
	s, err := r.Sink(handle)
	if err != nil {
		return 0, err
	}
	return s.Len(), nil
}

func (r *Registry) State(handle domain.PipeHandle) (domain.SinkState, error) {
	s, err := r.Sink(handle)
	if err != nil {
		return domain.SinkAllocated, err
	}
	return s.State(), nil
}

// Handles lists live handles in allocation order
func (r *Registry) Handles() []domain.PipeHandle {
	r.mu.RLock()
	handles := make([]domain.PipeHandle, 0, len(r.sinks))
	for h := range r.sinks {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	slices.Sort(handles)
	return handles
}

// Documents describes every live pipe, in allocation order
func (r *Registry) Documents() []domain.Document {
	handles := r.Handles()
	docs := make([]domain.Document, 0, len(handles))
	for _, h := range handles {
		s, err := r.Sink(h)
		if err != nil {
			continue
		}
		docs = append(docs, domain.Document{
			Handle: h,
			Title:  s.Title(),
			Size:   s.Len(),
			State:  s.State(),
		})
	}
	return docs
}

func (r *Registry) drain(handle domain.PipeHandle, s *sink.Sink) {
	added := s.Drain()
	if len(added) == 0 || !r.current(handle, s) {
		return
	}
	r.metrics.BytesReceived.Add(float64(len(added)))
	if o := r.sinkObserver(); o != nil {
		o.OnSinkAppended(handle, added)
	}
}

func (r *Registry) finish(handle domain.PipeHandle, s *sink.Sink) {
	r.drain(handle, s)
	if !r.current(handle, s) || !s.MarkClosed() {
		return
	}

	r.logger.Info("pipe closed", zap.Stringer("handle", handle), zap.Int("size", s.Len()))
	r.publish(eventbus.PipeClosedEvent{Handle: handle, Size: s.Len()})
	if o := r.sinkObserver(); o != nil {
		o.OnSinkClosed(handle)
	}
}

// current reports whether s is still registered under handle
func (r *Registry) current(handle domain.PipeHandle, s *sink.Sink) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sinks[handle] == s
}

func (r *Registry) sinkObserver() Observer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.observer
}

func (r *Registry) windowRequester() WindowRequester {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.requester
}

func (r *Registry) publish(event eventbus.DomainEvent) {
	if r.bus != nil {
		r.bus.Publish(event)
	}
}
