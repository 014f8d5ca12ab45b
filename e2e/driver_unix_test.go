//go:build e2e && unix

package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
)

var binPath = "aqualess_e2e"

const (
	screenRows = 40
	screenCols = 120

	// output kept for matching; older bytes are dropped
	keepOutput = 1 << 20
)

const (
	KeyEnter    = "\r"
	KeyCtrlC    = "\x03"
	KeyPageDown = " "
	KeyDown     = "j"
	KeyQuit     = "q"
	KeyTab      = "\t"
	KeyClose    = "x"
)

// escapes strips what the renderer sends besides text
var escapes = regexp.MustCompile(
	`(?:\x1b\[[0-9;?]*[ -/]*[@-~])|` + // CSI
		`(?:\x1b\][^\x07]*\x07)|` + // OSC
		`(?:\x1b[()][A-Za-z])|` + // charset
		`(?:\x1b[=>])|` + // keypad mode
		`\r`,
)

func plain(s string) string { return escapes.ReplaceAllString(s, "") }

// Pager drives one aqualess process on a pseudo terminal
type Pager struct {
	t   *testing.T
	ptm *os.File
	cmd *exec.Cmd

	exited  chan struct{}
	exitErr error

	mu      sync.Mutex
	out     []byte
	dropped int // bytes trimmed from the front of out
}

// Workspace creates a directory for documents, config and the log
func Workspace(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "aqualess-e2e-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

// StartPager runs aqualess with args and waits until it is ready
func StartPager(t *testing.T, dir string, args ...string) *Pager {
	t.Helper()
	return start(t, dir, exec.Command(binPath, args...))
}

// StartPiped runs aqualess with input on its standard input. The
// terminal stays the controlling tty, so keys still reach the pager.
func StartPiped(t *testing.T, dir, input string, args ...string) *Pager {
	t.Helper()
	script := `printf '%s' "$AQUALESS_E2E_INPUT" | exec "$0" "$@"`
	cmd := exec.Command("sh", append([]string{"-c", script, binPath}, args...)...)
	cmd.Env = append(os.Environ(), "AQUALESS_E2E_INPUT="+input)
	return start(t, dir, cmd)
}

func start(t *testing.T, dir string, cmd *exec.Cmd) *Pager {
	t.Helper()
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Dir = dir
	cmd.Env = append(cmd.Env,
		"TERM=xterm-256color",
		"LC_ALL=C",
		"LANG=C",
		"HOME="+dir,
		"XDG_CONFIG_HOME="+filepath.Join(dir, ".config"),
		"AQUALESS_LOG_FILE="+filepath.Join(dir, "aqualess.log"),
		"AQUALESS_E2E_TEST=1",
	)

	ptm, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: screenRows, Cols: screenCols})
	require.NoError(t, err, "start %s", cmd.Path)

	p := &Pager{t: t, ptm: ptm, cmd: cmd, exited: make(chan struct{})}
	go p.read()
	go func() {
		p.exitErr = cmd.Wait()
		close(p.exited)
	}()
	t.Cleanup(p.stop)

	p.ExpectRaw("__READY__", 5*time.Second)
	return p
}

func (p *Pager) read() {
	buf := make([]byte, 8192)
	for {
		n, err := p.ptm.Read(buf)
		if n > 0 {
			p.mu.Lock()
			p.out = append(p.out, buf[:n]...)
			if extra := len(p.out) - keepOutput; extra > 0 {
				p.out = append(p.out[:0], p.out[extra:]...)
				p.dropped += extra
			}
			p.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (p *Pager) stop() {
	_ = p.ptm.Close()
	select {
	case <-p.exited:
	default:
		_ = p.cmd.Process.Kill()
		<-p.exited
	}
}

// Keys writes keys to the terminal
func (p *Pager) Keys(keys ...string) {
	p.t.Helper()
	_, err := p.ptm.Write([]byte(strings.Join(keys, "")))
	require.NoError(p.t, err)
}

func (p *Pager) Search(pattern string) {
	p.t.Helper()
	p.Keys("/", pattern, KeyEnter)
}

func (p *Pager) SearchBack(pattern string) {
	p.t.Helper()
	p.Keys("?", pattern, KeyEnter)
}

func (p *Pager) NextWindow() {
	p.t.Helper()
	p.Keys(KeyTab)
}

func (p *Pager) CloseWindow() {
	p.t.Helper()
	p.Keys(KeyClose)
}

func (p *Pager) PageDown() {
	p.t.Helper()
	p.Keys(KeyPageDown)
}

func (p *Pager) Down() {
	p.t.Helper()
	p.Keys(KeyDown)
}

// Mark returns the current end of the output, for ExpectSince
func (p *Pager) Mark() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped + len(p.out)
}

// Output returns everything written since mark, escape sequences included
func (p *Pager) Output(mark int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	from := max(mark-p.dropped, 0)
	return string(bytes.Clone(p.out[from:]))
}

// Expect waits for text to be drawn anywhere in the output
func (p *Pager) Expect(text string) {
	p.t.Helper()
	p.ExpectSince(0, text)
}

// ExpectSince waits for text to be drawn after mark
func (p *Pager) ExpectSince(mark int, text string) {
	p.t.Helper()
	p.waitFor(mark, 3*time.Second, fmt.Sprintf("never drew %q", text), func(s string) bool {
		return strings.Contains(plain(s), text)
	})
}

// ExpectRaw waits for text in the unfiltered output
func (p *Pager) ExpectRaw(text string, timeout time.Duration) {
	p.t.Helper()
	p.waitFor(0, timeout, fmt.Sprintf("never wrote %q", text), func(s string) bool {
		return strings.Contains(s, text)
	})
}

func (p *Pager) waitFor(mark int, timeout time.Duration, failure string, ok func(string) bool) {
	p.t.Helper()
	deadline := time.Now().Add(timeout)
	for !ok(p.Output(mark)) {
		if time.Now().After(deadline) {
			tail := plain(p.Output(mark))
			if len(tail) > 4096 {
				tail = tail[len(tail)-4096:]
			}
			p.t.Fatalf("%s\n--- screen tail ---\n%s", failure, tail)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

// Quit presses q, falling back to ctrl+c, and waits for the process to end
func (p *Pager) Quit() error {
	p.t.Helper()
	p.Keys(KeyQuit)
	err := p.wait(3 * time.Second)
	select {
	case <-p.exited:
		return err
	default:
	}
	p.Keys(KeyCtrlC)
	return p.wait(3 * time.Second)
}

func (p *Pager) wait(timeout time.Duration) error {
	select {
	case <-p.exited:
		return p.exitErr
	case <-time.After(timeout):
		return fmt.Errorf("still running after %s", timeout)
	}
}
