// Package app wires configuration, logging, the pipe registry, producers and
// the terminal UI into the aqualess command.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aqualess/internal/config"
	"aqualess/internal/eventbus"
	"aqualess/internal/ingest"
	"aqualess/internal/logging"
	"aqualess/internal/loop"
	"aqualess/internal/metrics"
	"aqualess/internal/pipes"
	"aqualess/internal/ui"
)

// ErrNothingToShow is returned when there are no files, no piped input and
// no commands
var ErrNothingToShow = errors.New("missing filename (\"aqualess --help\" for help)")

// Options are the command line settings
type Options struct {
	ConfigFile  string
	Follow      bool
	Exec        []string
	Title       string
	MetricsAddr string
	LogLevel    string
}

// Run loads configuration, opens every source and runs the UI until the
// user quits
func Run(ctx context.Context, opts Options, files []string, stdin *os.File) error {
	cfg, cfgPath, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		OutputPaths: []string{cfg.Log.File},
	})
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting", zap.String("config", cfgPath), zap.Strings("files", files))

	piped := stdin != nil && ingest.IsPiped(stdin)
	if len(files) == 0 && len(opts.Exec) == 0 && !piped {
		return ErrNothingToShow
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus := eventbus.New(logger.Named("eventbus"))
	defer bus.Close()

	m := metrics.New()
	queue := loop.NewQueue(nil)
	defer queue.Close()

	settings := config.NewConfigService(cfgPath, bus)
	s := newSession(ctx, cfg, settings, logger, bus, m, queue)
	subscribe(bus, logger, m, queue, s.model)
	// the file was read before the bus existed
	bus.Publish(eventbus.ConfigLoadedEvent{Path: cfgPath})

	programOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if piped {
		// stdin carries the document, keys come from the terminal
		programOpts = append(programOpts, tea.WithInputTTY())
	}
	p := tea.NewProgram(s.model, programOpts...)
	s.model.SetProgram(p)
	queue.SetWake(ui.Waker(p))

	if cfg.Metrics.Addr != "" {
		s.group.Go(func() error {
			if err := m.Serve(s.ctx, cfg.Metrics.Addr, logger.Named("metrics")); err != nil {
				p.Quit()
				return fmt.Errorf("metrics: %w", err)
			}
			return nil
		})
	}

	for _, path := range files {
		if err := s.openFile(path, opts.Follow); err != nil {
			return err
		}
	}
	if piped {
		if err := s.pump(opts.Title, stdin); err != nil {
			return err
		}
	}
	for _, command := range opts.Exec {
		if err := s.launch(command); err != nil {
			return err
		}
	}

	if os.Getenv("AQUALESS_E2E_TEST") == "1" {
		fmt.Println("__READY__")
	}

	_, runErr := p.Run()
	if errors.Is(runErr, tea.ErrProgramKilled) {
		runErr = nil
	}
	logger.Info("ui exited", zap.Error(runErr))
	for _, d := range s.pipes.Documents() {
		logger.Debug("pipe at exit", zap.Stringer("handle", d.Handle), zap.String("title", d.Title),
			zap.Int("size", d.Size), zap.Stringer("state", d.State))
	}

	cancel()
	if err := s.group.Wait(); err != nil {
		return err
	}
	return runErr
}

// loadConfig reads the config file and applies command line overrides
func loadConfig(opts Options) (*config.Config, string, error) {
	svc := config.NewConfigService(opts.ConfigFile, nil)
	cfg, err := svc.Load()
	if err != nil {
		return nil, "", err
	}
	if opts.MetricsAddr != "" {
		cfg.Metrics.Addr = opts.MetricsAddr
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	return cfg, svc.Path(), nil
}

// session owns the producers feeding one UI
type session struct {
	ctx      context.Context
	logger   *zap.Logger
	bus      eventbus.EventBus
	pipes    *pipes.Registry
	producer *ingest.Producer
	model    *ui.Model
	group    *errgroup.Group
}

func newSession(ctx context.Context, cfg *config.Config, settings config.ConfigService, logger *zap.Logger, bus eventbus.EventBus, m *metrics.Metrics, queue *loop.Queue) *session {
	g, gctx := errgroup.WithContext(ctx)
	reg := pipes.NewRegistry(cfg.Pipes, queue, bus, logger, m)
	s := &session{
		ctx:      gctx,
		logger:   logger.Named("app"),
		bus:      bus,
		pipes:    reg,
		producer: ingest.NewProducer(reg, cfg.Pipes.ReadChunk, logger),
		group:    g,
	}
	s.model = ui.NewModel(ui.Options{
		Config:   cfg,
		Bus:      bus,
		Logger:   logger,
		Queue:    queue,
		Pipes:    reg,
		Launcher: s.launch,
		Settings: settings,
	})
	return s
}

// openFile shows path as a static document, or as a growing pipe when
// follow is set
func (s *session) openFile(path string, follow bool) error {
	title := filepath.Base(path)
	if follow {
		h, err := s.pipes.OpenPipe(title)
		if err != nil {
			return err
		}
		s.group.Go(func() error {
			s.report(title, s.producer.Follow(s.ctx, h, path))
			return nil
		})
		return nil
	}

	data, charset, err := ingest.LoadFile(path)
	if err != nil {
		return err
	}
	s.logger.Debug("loaded file", zap.String("path", path), zap.String("charset", charset), zap.Int("size", len(data)))
	s.model.AddStatic(title, data)
	return nil
}

// pump streams r into a new pipe. A blocked read cannot be interrupted, so
// the group does not wait for it.
func (s *session) pump(title string, r io.Reader) error {
	if title == "" {
		title = "stdin"
	}
	h, err := s.pipes.OpenPipe(title)
	if err != nil {
		return err
	}
	go func() {
		n, err := s.producer.Pump(s.ctx, h, r)
		s.logger.Debug("input finished", zap.String("title", title), zap.Int64("bytes", n))
		s.report(title, err)
	}()
	return nil
}

// launch runs command through the shell into a new pipe. It is also the
// UI's launcher for the exec prompt.
func (s *session) launch(command string) error {
	h, err := s.pipes.OpenPipe(command)
	if err != nil {
		return err
	}
	s.group.Go(func() error {
		s.report(command, s.producer.Command(s.ctx, h, "sh", "-c", command))
		return nil
	})
	return nil
}

// report logs a producer failure and publishes it for the status line.
// Producer errors never stop the other producers. A pipe whose window was
// closed is not a failure.
func (s *session) report(title string, err error) {
	if err == nil || errors.Is(err, context.Canceled) || ingest.Gone(err) {
		return
	}
	s.logger.Warn("producer failed", zap.String("title", title), zap.Error(err))
	s.bus.Publish(eventbus.ErrorEvent{Message: title, Err: err})
}
