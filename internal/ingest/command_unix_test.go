//go:build unix

package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aqualess/internal/domain"
)

func TestCommandStreamsOutput(t *testing.T) {
	w := newRecordingWriter()
	p := NewProducer(w, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := p.Command(ctx, 1, "sh", "-c", "printf 'hello from pty'")
	require.NoError(t, err)
	assert.Contains(t, w.text(), "hello from pty")
	assert.Equal(t, 1, w.closed)
}

func TestCommandFailure(t *testing.T) {
	w := newRecordingWriter()
	p := NewProducer(w, 0, nil)

	err := p.Command(context.Background(), 1, "sh", "-c", "exit 3")
	assert.Error(t, err)
	assert.Equal(t, 1, w.closed)

	err = p.Command(context.Background(), 2, "/definitely/not/a/binary")
	assert.Error(t, err)
	assert.Equal(t, 2, w.closed)
}

func TestCommandStopsQuietlyWhenWindowCloses(t *testing.T) {
	w := newRecordingWriter()
	w.addErr = domain.ErrUnknownHandle
	p := NewProducer(w, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := p.Command(ctx, 1, "yes")
	assert.NoError(t, err)
	assert.NoError(t, ctx.Err(), "the command is stopped, not left to run until the deadline")
	assert.Equal(t, 1, w.closed)
}
