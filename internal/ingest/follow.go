package ingest

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"aqualess/internal/domain"
)

// Follow streams path into handle, then keeps appending whatever is written
// to it until the file is removed or renamed, its window is closed, or ctx
// ends. A truncated file is read again from the start. The pipe is closed on
// return.
func (p *Producer) Follow(ctx context.Context, handle domain.PipeHandle, path string) error {
	err := p.follow(ctx, handle, path)
	p.close(handle)
	if Gone(err) {
		p.logger.Debug("pipe went away", zap.Stringer("handle", handle), zap.String("path", path))
		return nil
	}
	return err
}

func (p *Producer) follow(ctx context.Context, handle domain.PipeHandle, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("unable to watch %s: %w", path, err)
	}

	offset, err := p.copy(ctx, handle, f)
	if err != nil {
		return err
	}

	log := p.logger.With(zap.Stringer("handle", handle), zap.String("path", path))
	log.Debug("following")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				log.Info("followed file went away")
				return nil
			case event.Has(fsnotify.Write):
				if info, err := f.Stat(); err == nil && info.Size() < offset {
					log.Info("followed file truncated", zap.Int64("size", info.Size()))
					if _, err := f.Seek(0, io.SeekStart); err != nil {
						return err
					}
					offset = 0
				}
				n, err := p.copy(ctx, handle, f)
				offset += n
				if err != nil {
					return err
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))
		}
	}
}
