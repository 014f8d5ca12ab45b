package ui

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"aqualess/internal/config"
	"aqualess/internal/domain"
	"aqualess/internal/eventbus"
	"aqualess/internal/loop"
	"aqualess/internal/pipes"
	"aqualess/internal/search"
	"aqualess/internal/sink"
	"aqualess/internal/windows"
)

type promptMode int

const (
	promptNone promptMode = iota
	promptSearchForward
	promptSearchBackward
	promptExec
)

// Launcher runs a shell command line into a new pipe
type Launcher func(command string) error

// Options wires the model to the rest of the application
type Options struct {
	Config   *config.Config
	Bus      eventbus.EventBus
	Logger   *zap.Logger
	Queue    *loop.Queue
	Pipes    *pipes.Registry
	Launcher Launcher
	Settings config.ConfigService // saves preference toggles, may be nil
}

// Model represents the UI state. It is the single owner of every document
// and runs the work producers post to the queue.
type Model struct {
	bus      eventbus.EventBus
	config   *config.Config
	logger   *zap.Logger
	queue    *loop.Queue
	pipes    *pipes.Registry
	windows  *windows.Registry
	launcher Launcher
	settings config.ConfigService

	docs     []*document
	active   int
	byHandle map[domain.PipeHandle]*document

	searchOpts search.Options
	format     displayFormat

	width  int
	height int
	keys   keyMap
	help   help.Model
	styles *Styles
	prompt textinput.Model
	mode   promptMode

	message    string
	messageErr bool

	inPagerMode bool
	helpText    *HelpRenderer
	pager       *PagerOps

	// Program reference for terminal management
	program *tea.Program
}

// NewModel creates the model and registers it with the pipe registry
func NewModel(opts Options) *Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Model{
		bus:      opts.Bus,
		config:   cfg,
		logger:   logger.Named("ui"),
		queue:    opts.Queue,
		pipes:    opts.Pipes,
		launcher: opts.Launcher,
		settings: opts.Settings,
		byHandle: make(map[domain.PipeHandle]*document),
		searchOpts: search.Options{
			IgnoreCase: cfg.Search.IgnoreCase,
			Regexp:     cfg.Search.Regexp,
		},
		keys:   defaultKeyMap(),
		help:   help.New(),
		styles: NewStyles(),
		prompt: textinput.New(),
		pager:  NewPagerOps(),
	}
	if cfg.UI.ShowLineNumbers {
		m.format = formatNumbered
	}
	m.helpText = NewHelpRenderer(m.styles, m.keys)
	m.windows = windows.NewRegistry(m, opts.Bus)

	if m.pipes != nil {
		m.pipes.SetObserver(m)
		m.pipes.SetWindowRequester(m)
	}
	return m
}

// SetProgram sets the program reference for terminal management
func (m *Model) SetProgram(p *tea.Program) {
	m.program = p
	m.pager.SetProgram(p)
}

// AddStatic opens a window on a document that is already complete
func (m *Model) AddStatic(title string, data []byte) {
	d := newDocument(sink.NewStatic(title, data), m.searchOpts)
	m.addDocument(d, len(m.docs) == 0)
}

// Init returns an initial command
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.prompt.Width = max(msg.Width-3, 1)
		for _, d := range m.docs {
			m.settle(d)
		}
		return m, nil

	case drainMsg:
		if m.queue != nil {
			m.queue.RunPending()
		}
		return m, nil

	case tea.KeyMsg:
		if m.mode != promptNone {
			return m.updatePrompt(msg)
		}
		return m, m.handleKey(msg)

	case pagerMsg:
		m.inPagerMode = false
		if msg.err != nil {
			m.logger.Warn("pager failed", zap.String("title", msg.title), zap.Error(msg.err))
			m.setError(fmt.Sprintf("ov: %v", msg.err))
		}
		return m, nil

	case execMsg:
		if msg.err != nil {
			m.logger.Warn("command failed to start", zap.String("command", msg.command), zap.Error(msg.err))
			m.setError(fmt.Sprintf("%s: %v", msg.command, msg.err))
		}
		return m, nil

	case pauseRenderingMsg:
		m.inPagerMode = true
		return m, nil

	case resumeRenderingMsg:
		m.inPagerMode = false
		return m, nil
	}

	if m.mode != promptNone {
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.message = ""
	m.messageErr = false

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Readme):
		m.openAux(readmeWindow)
		return nil
	case key.Matches(msg, m.keys.License):
		m.openAux(licenseWindow)
		return nil
	case key.Matches(msg, m.keys.Exec):
		return m.openPrompt(promptExec)
	}

	d := m.current()
	if d == nil {
		return nil
	}
	h := m.bodyHeight()

	switch {
	case key.Matches(msg, m.keys.Down):
		m.scroll(d, 1)
	case key.Matches(msg, m.keys.Up):
		m.scroll(d, -1)
	case key.Matches(msg, m.keys.PageDown):
		m.scroll(d, h)
	case key.Matches(msg, m.keys.PageUp):
		m.scroll(d, -h)
	case key.Matches(msg, m.keys.HalfDown):
		m.scroll(d, max(h/2, 1))
	case key.Matches(msg, m.keys.HalfUp):
		m.scroll(d, -max(h/2, 1))
	case key.Matches(msg, m.keys.Top):
		m.scroll(d, -d.top)
	case key.Matches(msg, m.keys.Bottom):
		m.scroll(d, d.maxTop(h)-d.top)
	case key.Matches(msg, m.keys.Tail):
		d.tail = !d.tail
		m.settle(d)
		if d.tail {
			m.setMessage("following end of document")
		}

	case key.Matches(msg, m.keys.SearchForward):
		return m.openPrompt(promptSearchForward)
	case key.Matches(msg, m.keys.SearchBack):
		return m.openPrompt(promptSearchBackward)
	case key.Matches(msg, m.keys.Next):
		m.repeat(d, d.session.FindAgainSameDirection)
	case key.Matches(msg, m.keys.Prev):
		m.repeat(d, d.session.FindAgainOtherDirection)
	case key.Matches(msg, m.keys.NextForward):
		m.repeat(d, d.session.FindAgainForward)
	case key.Matches(msg, m.keys.NextBackward):
		m.repeat(d, d.session.FindAgainBackward)
	case key.Matches(msg, m.keys.IgnoreCase):
		m.searchOpts.IgnoreCase = !m.searchOpts.IgnoreCase
		for _, doc := range m.docs {
			doc.session.SetOptions(m.searchOpts)
		}
		if m.searchOpts.IgnoreCase {
			m.setMessage("ignore case")
		} else {
			m.setMessage("match case")
		}
		ignoreCase := m.searchOpts.IgnoreCase
		m.remember(func(c *config.Config) { c.Search.IgnoreCase = ignoreCase })

	case key.Matches(msg, m.keys.Format):
		was := m.format == formatNumbered
		m.format = m.format.next()
		m.setMessage("format: " + m.format.String())
		if numbered := m.format == formatNumbered; numbered != was {
			m.remember(func(c *config.Config) { c.UI.ShowLineNumbers = numbered })
		}
	case key.Matches(msg, m.keys.NextWindow):
		m.active = (m.active + 1) % len(m.docs)
	case key.Matches(msg, m.keys.PrevWindow):
		m.active = (m.active + len(m.docs) - 1) % len(m.docs)
	case key.Matches(msg, m.keys.CloseWindow):
		return m.closeWindow(d)
	case key.Matches(msg, m.keys.OpenPager):
		return m.openInPager(d)
	}
	return nil
}

func (m *Model) openPrompt(mode promptMode) tea.Cmd {
	m.mode = mode
	switch mode {
	case promptSearchForward:
		m.prompt.Prompt = "/"
	case promptSearchBackward:
		m.prompt.Prompt = "?"
	case promptExec:
		m.prompt.Prompt = "!"
	}
	m.prompt.Reset()
	m.prompt.Focus()
	return textinput.Blink
}

func (m *Model) closePrompt() {
	m.mode = promptNone
	m.prompt.Blur()
	m.prompt.Reset()
}

func (m *Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		mode, value := m.mode, m.prompt.Value()
		m.closePrompt()
		return m, m.submitPrompt(mode, value)
	case tea.KeyEsc, tea.KeyCtrlC:
		m.closePrompt()
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *Model) submitPrompt(mode promptMode, value string) tea.Cmd {
	m.message = ""
	m.messageErr = false

	switch mode {
	case promptSearchForward, promptSearchBackward:
		d := m.current()
		if d == nil {
			return nil
		}
		dir := search.Forward
		if mode == promptSearchBackward {
			dir = search.Backward
		}
		d.tail = false
		_, _ = d.session.FindPattern(value, dir)

	case promptExec:
		if value == "" {
			return nil
		}
		if m.launcher == nil {
			m.setError("running commands is not available")
			return nil
		}
		launch := m.launcher
		return func() tea.Msg {
			return execMsg{command: value, err: launch(value)}
		}
	}
	return nil
}

// repeat runs a repeat-search; the listener reports the outcome
func (m *Model) repeat(d *document, find func() (search.Match, error)) {
	d.tail = false
	_, _ = find()
}

func (m *Model) scroll(d *document, lines int) {
	d.tail = false
	d.scrollTo(d.top+lines, m.bodyHeight())
	d.syncCursor()
}

// settle re-clamps the scroll position after the document or screen changed
func (m *Model) settle(d *document) {
	h := m.bodyHeight()
	if d.tail {
		d.scrollTo(d.maxTop(h), h)
		return
	}
	d.scrollTo(d.top, h)
}

// reveal scrolls d so that offset is on screen
func (m *Model) reveal(d *document, offset int) {
	line := d.lineOf(offset)
	h := m.bodyHeight()
	if line < d.top || line >= d.top+h {
		d.scrollTo(line, h)
	}
}

func (m *Model) current() *document {
	if m.active < 0 || m.active >= len(m.docs) {
		return nil
	}
	return m.docs[m.active]
}

func (m *Model) focus(d *document) {
	for i, doc := range m.docs {
		if doc == d {
			m.active = i
			return
		}
	}
}

func (m *Model) addDocument(d *document, activate bool) {
	d.session.SetListener(&docListener{m: m, d: d})
	if m.bus != nil {
		d.session.SetBus(m.bus)
	}
	m.docs = append(m.docs, d)
	if d.handle != domain.NoPipe {
		m.byHandle[d.handle] = d
	}
	if activate || len(m.docs) == 1 {
		m.active = len(m.docs) - 1
	}
	m.settle(d)
}

// closeWindow destroys d's window and lets go of its pipe
func (m *Model) closeWindow(d *document) tea.Cmd {
	for i, doc := range m.docs {
		if doc != d {
			continue
		}
		m.docs = append(m.docs[:i], m.docs[i+1:]...)
		if m.active >= i && m.active > 0 {
			m.active--
		}
		break
	}

	if d.handle != domain.NoPipe {
		delete(m.byHandle, d.handle)
		if m.pipes != nil {
			if err := m.pipes.Release(d.handle); err != nil && !errors.Is(err, domain.ErrUnknownHandle) {
				m.logger.Warn("release pipe", zap.Stringer("handle", d.handle), zap.Error(err))
			}
		}
	}
	if d.aux != "" {
		m.windows.Unregister(d.aux)
	}

	if len(m.docs) == 0 {
		return tea.Quit
	}
	return nil
}

func (m *Model) openAux(name string) {
	if _, err := m.windows.Open(name); err != nil {
		m.logger.Warn("open window", zap.String("name", name), zap.Error(err))
		m.setError(err.Error())
	}
}

// openInPager hands the current document to ov
func (m *Model) openInPager(d *document) tea.Cmd {
	if m.program == nil {
		m.setError("pager unavailable")
		return nil
	}
	title, content := d.title, d.sink.Bytes()
	return func() tea.Msg {
		// Send pause message to stop rendering
		m.program.Send(pauseRenderingMsg{})

		err := m.pager.ShowInPager(title, bytes.NewReader(content))

		// Send resume message to restart rendering
		m.program.Send(resumeRenderingMsg{})

		return pagerMsg{title: title, err: err}
	}
}

// ShowError puts msg on the status line. Call it from the UI thread, e.g. in
// a function posted to the queue.
func (m *Model) ShowError(msg string) {
	m.setError(msg)
}

// remember applies a preference change and writes it to the config file
func (m *Model) remember(change func(*config.Config)) {
	change(m.config)
	if m.settings == nil {
		return
	}
	if err := m.settings.Update(change); err != nil {
		m.logger.Warn("failed to save settings", zap.Error(err))
		m.setError("settings: " + err.Error())
	}
}

func (m *Model) setMessage(s string) {
	m.message = s
	m.messageErr = false
}

func (m *Model) setError(s string) {
	m.message = s
	m.messageErr = true
}

// RequestWindowFor implements pipes.WindowRequester
func (m *Model) RequestWindowFor(handle domain.PipeHandle, title string) {
	s, err := m.pipes.Sink(handle)
	if err != nil {
		m.logger.Debug("window for released pipe", zap.Stringer("handle", handle))
		return
	}
	d := newDocument(s, m.searchOpts)
	d.title = title
	m.addDocument(d, true)
}

// OnSinkAppended implements pipes.Observer
func (m *Model) OnSinkAppended(handle domain.PipeHandle, newBytes []byte) {
	d, ok := m.byHandle[handle]
	if !ok {
		return
	}
	d.index()
	m.settle(d)
}

// OnSinkClosed implements pipes.Observer
func (m *Model) OnSinkClosed(handle domain.PipeHandle) {
	if d, ok := m.byHandle[handle]; ok {
		d.closed = true
	}
}

// RequestAuxiliaryWindow implements windows.Factory
func (m *Model) RequestAuxiliaryWindow(name string) (windows.Controller, error) {
	content, err := m.helpText.Content(name)
	if err != nil {
		return nil, err
	}
	d := newDocument(sink.NewStatic(name, []byte(content)), m.searchOpts)
	d.aux = name
	m.addDocument(d, false)
	return &auxWindow{m: m, d: d}, nil
}

type auxWindow struct {
	m *Model
	d *document
}

func (w *auxWindow) Activate() { w.m.focus(w.d) }

// docListener reports search outcomes for one document
type docListener struct {
	m *Model
	d *document
}

func (l *docListener) MatchFound(offset, length int) {
	l.d.match = &search.Match{Offset: offset, Length: length}
	l.m.reveal(l.d, offset)
}

func (l *docListener) NoMatch() {
	l.m.setError("Pattern not found")
}

func (l *docListener) SearchError(kind domain.ErrorKind) {
	switch kind {
	case domain.KindNoPriorPattern:
		l.m.setError("No previous search pattern")
	case domain.KindInvalidPattern:
		l.m.setError("Invalid pattern")
	default:
		l.m.setError(kind.String())
	}
}
