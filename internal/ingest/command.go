package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"aqualess/internal/domain"
)

// Command runs name on a pseudo-terminal and streams its output into
// handle. The pipe is closed when the command exits.
func (p *Producer) Command(ctx context.Context, handle domain.PipeHandle, name string, args ...string) error {
	defer p.close(handle)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), "TERM=dumb")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 24, Cols: 132})
	if err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	defer ptmx.Close()

	n, err := p.copy(ctx, handle, ptmx)
	// Linux reports EIO on the master once the child side is closed
	if errors.Is(err, syscall.EIO) {
		err = nil
	}
	if err != nil {
		// nothing reads the pty any more, so the command would block on output
		_ = cmd.Process.Kill()
	}

	werr := cmd.Wait()
	p.logger.Info("command finished",
		zap.Stringer("handle", handle),
		zap.String("command", name),
		zap.Int64("bytes", n),
		zap.Error(werr))

	if Gone(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if werr != nil {
		return fmt.Errorf("%s: %w", name, werr)
	}
	return nil
}
