// Package ingest feeds pipes from files, commands and standard input.
//
// Producers run on their own goroutines and only talk to the pipe registry
// through AddData, WaitForRoom and ClosePipe.
package ingest

import (
	"context"
	"errors"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"aqualess/internal/domain"
)

const defaultChunk = 32 * 1024

// PipeWriter is the producer side of the pipe registry
type PipeWriter interface {
	AddData(handle domain.PipeHandle, data []byte) error
	WaitForRoom(ctx context.Context, handle domain.PipeHandle) error
	ClosePipe(handle domain.PipeHandle) error
}

// Producer copies sources into pipes in fixed-size reads
type Producer struct {
	w      PipeWriter
	chunk  int
	logger *zap.Logger
}

func NewProducer(w PipeWriter, chunk int, logger *zap.Logger) *Producer {
	if chunk <= 0 {
		chunk = defaultChunk
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{w: w, chunk: chunk, logger: logger.Named("ingest")}
}

// Pump copies r into handle until EOF and then closes the pipe
func (p *Producer) Pump(ctx context.Context, handle domain.PipeHandle, r io.Reader) (int64, error) {
	n, err := p.copy(ctx, handle, r)
	p.close(handle)
	if Gone(err) {
		p.logger.Debug("pipe went away", zap.Stringer("handle", handle), zap.Int64("bytes", n))
		return n, nil
	}
	if err != nil {
		p.logger.Warn("pump stopped", zap.Stringer("handle", handle), zap.Int64("bytes", n), zap.Error(err))
	}
	return n, err
}

// copy moves whatever r yields until EOF
func (p *Producer) copy(ctx context.Context, handle domain.PipeHandle, r io.Reader) (int64, error) {
	var total int64
	buf := make([]byte, p.chunk)
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		if err := p.w.WaitForRoom(ctx, handle); err != nil {
			return total, err
		}

		n, rerr := r.Read(buf)
		if n > 0 {
			if err := p.w.AddData(handle, buf[:n]); err != nil {
				return total, err
			}
			total += int64(n)
		}
		if errors.Is(rerr, io.EOF) {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

func (p *Producer) close(handle domain.PipeHandle) {
	// the window may already be gone, which released the handle
	if err := p.w.ClosePipe(handle); err != nil && !errors.Is(err, domain.ErrUnknownHandle) {
		p.logger.Warn("close pipe", zap.Stringer("handle", handle), zap.Error(err))
	}
}

// Gone reports whether err means the pipe went away under the producer,
// which happens when the user closes its window.
func Gone(err error) bool {
	return errors.Is(err, domain.ErrUnknownHandle) || errors.Is(err, domain.ErrHandleClosed)
}

// IsPiped reports whether f is a pipe or redirected file rather than a
// terminal. Character devices such as /dev/null do not count.
func IsPiped(f *os.File) bool {
	if term.IsTerminal(int(f.Fd())) {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeNamedPipe != 0 || fi.Mode().IsRegular()
}
