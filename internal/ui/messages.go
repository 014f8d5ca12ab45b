package ui

import tea "github.com/charmbracelet/bubbletea"

// drainMsg asks the model to run work posted by producer goroutines
type drainMsg struct{}

// pagerMsg contains the result of handing a document to ov
type pagerMsg struct {
	title string
	err   error
}

// execMsg contains the result of starting a command from the prompt
type execMsg struct {
	command string
	err     error
}

// pauseRenderingMsg signals that an external pager owns the terminal
type pauseRenderingMsg struct{}

// resumeRenderingMsg signals that the terminal is back
type resumeRenderingMsg struct{}

// Waker returns the wake function for the loop queue. Send blocks until the
// program reads the message, so it must not run on the caller's goroutine.
func Waker(p *tea.Program) func() {
	return func() {
		go p.Send(drainMsg{})
	}
}
