package pipes

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aqualess/internal/config"
	"aqualess/internal/domain"
	"aqualess/internal/eventbus"
	"aqualess/internal/loop"
	"aqualess/internal/metrics"
)

type observed struct {
	appended map[domain.PipeHandle][]string
	closed   []domain.PipeHandle
	windows  map[domain.PipeHandle]string
}

func newObserved() *observed {
	return &observed{
		appended: make(map[domain.PipeHandle][]string),
		windows:  make(map[domain.PipeHandle]string),
	}
}

func (o *observed) OnSinkAppended(h domain.PipeHandle, b []byte) {
	o.appended[h] = append(o.appended[h], string(b))
}
func (o *observed) OnSinkClosed(h domain.PipeHandle) { o.closed = append(o.closed, h) }
func (o *observed) RequestWindowFor(h domain.PipeHandle, t string) { o.windows[h] = t }

func setup(t *testing.T, cfg config.PipeSettings) (*Registry, *loop.Queue, *observed, *metrics.Metrics) {
	t.Helper()
	q := loop.NewQueue(nil)
	m := metrics.New()
	r := NewRegistry(cfg, q, nil, nil, m)
	o := newObserved()
	r.SetObserver(o)
	r.SetWindowRequester(o)
	return r, q, o, m
}

func TestOpenPipeAllocatesDistinctHandles(t *testing.T) {
	r, q, o, m := setup(t, config.PipeSettings{})

	h1, err := r.OpenPipe("")
	require.NoError(t, err)
	h2, err := r.OpenPipe("build log")
	require.NoError(t, err)

	assert.Equal(t, domain.PipeHandle(1), h1)
	assert.Equal(t, domain.PipeHandle(2), h2)
	assert.Equal(t, []domain.PipeHandle{h1, h2}, r.Handles())

	q.RunPending()
	assert.Equal(t, "pipe 1", o.windows[h1])
	assert.Equal(t, "build log", o.windows[h2])

	state, err := r.State(h1)
	require.NoError(t, err)
	assert.Equal(t, domain.SinkAllocated, state)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PipesActive))
}

func TestAddDataIsAppliedOnDrain(t *testing.T) {
	r, q, o, m := setup(t, config.PipeSettings{})
	h, err := r.OpenPipe("")
	require.NoError(t, err)

	require.NoError(t, r.AddData(h, []byte("AB")))
	require.NoError(t, r.AddData(h, []byte("CD")))

	n, err := r.Len(h)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "nothing applied before the UI goroutine runs")

	q.RunPending()
	got, err := r.Read(h, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, "ABCD", string(got))
	assert.Equal(t, []string{"ABCD"}, o.appended[h])
	assert.Equal(t, 4.0, testutil.ToFloat64(m.BytesReceived))

	state, _ := r.State(h)
	assert.Equal(t, domain.SinkStreaming, state)
}

func TestClosePipeFlushesThenCloses(t *testing.T) {
	r, q, o, _ := setup(t, config.PipeSettings{})
	h, _ := r.OpenPipe("")

	require.NoError(t, r.AddData(h, []byte("last words")))
	require.NoError(t, r.ClosePipe(h))
	require.NoError(t, r.ClosePipe(h), "closing twice is harmless")

	err := r.AddData(h, []byte("late"))
	assert.ErrorIs(t, err, domain.ErrHandleClosed)

	q.RunPending()
	assert.Equal(t, []domain.PipeHandle{h}, o.closed)
	got, err := r.Read(h, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, "last words", string(got))

	state, _ := r.State(h)
	assert.Equal(t, domain.SinkClosed, state)
}

func TestClosingOnePipeLeavesOthersOpen(t *testing.T) {
	r, q, o, _ := setup(t, config.PipeSettings{})
	h1, _ := r.OpenPipe("")
	h2, _ := r.OpenPipe("")

	require.NoError(t, r.ClosePipe(h1))
	require.NoError(t, r.AddData(h2, []byte("still flowing")))
	q.RunPending()

	assert.Equal(t, []domain.PipeHandle{h1}, o.closed)
	state, _ := r.State(h2)
	assert.Equal(t, domain.SinkStreaming, state)

	assert.Equal(t, []domain.Document{
		{Handle: h1, Title: "pipe 1", Size: 0, State: domain.SinkClosed},
		{Handle: h2, Title: "pipe 2", Size: len("still flowing"), State: domain.SinkStreaming},
	}, r.Documents())
}

func TestUnknownHandle(t *testing.T) {
	r, _, _, m := setup(t, config.PipeSettings{})

	assert.ErrorIs(t, r.AddData(42, []byte("x")), domain.ErrUnknownHandle)
	assert.ErrorIs(t, r.ClosePipe(42), domain.ErrUnknownHandle)
	assert.ErrorIs(t, r.Release(42), domain.ErrUnknownHandle)
	assert.ErrorIs(t, r.AddData(domain.NoPipe, []byte("x")), domain.ErrUnknownHandle)

	_, err := r.Read(42, 0, 1)
	assert.ErrorIs(t, err, domain.ErrUnknownHandle)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AddDataErrors.WithLabelValues("unknown handle")))
}

func TestReleaseDiscardsQueuedData(t *testing.T) {
	r, q, o, m := setup(t, config.PipeSettings{})
	h, _ := r.OpenPipe("")

	require.NoError(t, r.AddData(h, []byte("never shown")))
	require.NoError(t, r.ClosePipe(h))
	require.NoError(t, r.Release(h))

	q.RunPending()
	assert.Empty(t, o.appended[h])
	assert.Empty(t, o.closed)
	assert.Empty(t, o.windows, "window is not requested for a pipe released before it was built")

	assert.ErrorIs(t, r.AddData(h, []byte("x")), domain.ErrUnknownHandle)
	assert.Empty(t, r.Handles())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PipesActive))
	assert.Equal(t, 11.0, testutil.ToFloat64(m.BytesDiscarded))
}

func TestHandlesAreNeverReused(t *testing.T) {
	r, _, _, _ := setup(t, config.PipeSettings{})
	h1, _ := r.OpenPipe("")
	require.NoError(t, r.Release(h1))

	h2, err := r.OpenPipe("")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestMaxOpen(t *testing.T) {
	r, _, _, _ := setup(t, config.PipeSettings{MaxOpen: 2})
	h1, err := r.OpenPipe("")
	require.NoError(t, err)
	_, err = r.OpenPipe("")
	require.NoError(t, err)

	_, err = r.OpenPipe("")
	assert.ErrorIs(t, err, domain.ErrResourceExhausted)

	require.NoError(t, r.Release(h1))
	_, err = r.OpenPipe("")
	assert.NoError(t, err)
}

func TestHandleCounterOverflow(t *testing.T) {
	r, q, _, _ := setup(t, config.PipeSettings{})
	r.limit = 2

	h1, _ := r.OpenPipe("")
	_, err := r.OpenPipe("")
	require.NoError(t, err)

	_, err = r.OpenPipe("")
	assert.ErrorIs(t, err, domain.ErrResourceExhausted)

	require.NoError(t, r.AddData(h1, []byte("ok")), "existing pipes keep working")
	q.RunPending()
	n, _ := r.Len(h1)
	assert.Equal(t, 2, n)
}

func TestLifecycleEventsArePublished(t *testing.T) {
	bus := eventbus.New(nil)
	defer bus.Close()

	var mu sync.Mutex
	var seen []eventbus.EventType
	got := make(chan struct{}, 8)
	for _, et := range []eventbus.EventType{eventbus.EventPipeOpened, eventbus.EventPipeClosed, eventbus.EventPipeReleased} {
		bus.Subscribe(et, func(e eventbus.DomainEvent) {
			mu.Lock()
			seen = append(seen, e.Type())
			mu.Unlock()
			got <- struct{}{}
		})
	}

	q := loop.NewQueue(nil)
	r := NewRegistry(config.PipeSettings{}, q, bus, nil, nil)
	h, _ := r.OpenPipe("")
	require.NoError(t, r.ClosePipe(h))
	q.RunPending()
	require.NoError(t, r.Release(h))

	for i := 0; i < 3; i++ {
		select {
		case <-got:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d events delivered", i)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []eventbus.EventType{eventbus.EventPipeOpened, eventbus.EventPipeClosed, eventbus.EventPipeReleased}, seen)
}

func TestConcurrentProducers(t *testing.T) {
	l := loop.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	r := NewRegistry(config.PipeSettings{HighWatermark: 64}, l, nil, nil, nil)

	const producers = 4
	handles := make([]domain.PipeHandle, producers)
	for i := range handles {
		h, err := r.OpenPipe(fmt.Sprintf("producer %d", i))
		require.NoError(t, err)
		handles[i] = h
	}

	var wg sync.WaitGroup
	for i, h := range handles {
		wg.Add(1)
		go func(i int, h domain.PipeHandle) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if err := r.WaitForRoom(ctx, h); err != nil {
					t.Error(err)
					return
				}
				if err := r.AddData(h, []byte(fmt.Sprintf("%d:%03d\n", i, j))); err != nil {
					t.Error(err)
					return
				}
			}
			_ = r.ClosePipe(h)
		}(i, h)
	}
	wg.Wait()

	syncCtx, syncCancel := context.WithTimeout(ctx, 5*time.Second)
	defer syncCancel()
	require.NoError(t, l.Sync(syncCtx))

	for i, h := range handles {
		var want []byte
		for j := 0; j < 200; j++ {
			want = append(want, fmt.Sprintf("%d:%03d\n", i, j)...)
		}
		got, err := r.Read(h, 0, len(want)+1)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))
		state, _ := r.State(h)
		assert.Equal(t, domain.SinkClosed, state)
	}
}
