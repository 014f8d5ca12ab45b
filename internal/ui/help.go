package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/noborus/ov/oviewer"
)

const (
	readmeWindow  = "readme"
	licenseWindow = "license"
)

// HelpRenderer builds the text of the auxiliary windows. The text is plain;
// LineStyle colours it as it is drawn.
type HelpRenderer struct {
	styles   *Styles
	sections []helpSection
}

type helpSection struct {
	title    string
	bindings []key.Binding
}

const (
	readmeHeading = "aqualess"
	readmeFooter  = "Searches never wrap. Patterns are literal text unless [search] regexp is set."
)

func NewHelpRenderer(styles *Styles, keys keyMap) *HelpRenderer {
	return &HelpRenderer{
		styles: styles,
		sections: []helpSection{
			{"Moving", []key.Binding{keys.Down, keys.Up, keys.PageDown, keys.PageUp, keys.HalfDown, keys.HalfUp, keys.Top, keys.Bottom, keys.Tail}},
			{"Searching", []key.Binding{keys.SearchForward, keys.SearchBack, keys.Next, keys.Prev, keys.NextForward, keys.NextBackward, keys.IgnoreCase}},
			{"Windows", []key.Binding{keys.NextWindow, keys.PrevWindow, keys.CloseWindow, keys.Exec, keys.OpenPager, keys.Format}},
			{"Other", []key.Binding{keys.Readme, keys.License, keys.Quit}},
		},
	}
}

// Content returns the text for the auxiliary window called name
func (r *HelpRenderer) Content(name string) (string, error) {
	switch name {
	case readmeWindow:
		return r.readme(), nil
	case licenseWindow:
		return license, nil
	default:
		return "", fmt.Errorf("no auxiliary window named %q", name)
	}
}

// LineStyle returns the style for a line of the auxiliary window called name
func (r *HelpRenderer) LineStyle(name string, line []byte) (lipgloss.Style, bool) {
	if name != readmeWindow {
		return lipgloss.Style{}, false
	}
	text := string(line)
	switch {
	case text == readmeHeading:
		return r.styles.Title, true
	case text == readmeFooter:
		return r.styles.Dim, true
	case strings.HasPrefix(text, "  "):
		return r.styles.Key, true
	}
	for _, s := range r.sections {
		if text == s.title {
			return r.styles.Section, true
		}
	}
	return lipgloss.Style{}, false
}

func (r *HelpRenderer) readme() string {
	var help strings.Builder

	help.WriteString(readmeHeading + "\n\n")
	help.WriteString("A less-like pager with one window per document. Files, standard\n")
	help.WriteString("input and command output each get their own window, and piped text\n")
	help.WriteString("keeps arriving while you read.\n")

	for _, s := range r.sections {
		help.WriteString("\n" + s.title + "\n")
		for _, b := range s.bindings {
			h := b.Help()
			fmt.Fprintf(&help, "  %-10s  %s\n", h.Key, h.Desc)
		}
	}

	help.WriteString("\n" + readmeFooter + "\n")
	return help.String()
}

const license = `aqualess is free software; you can redistribute it and/or
modify it under the terms of the GNU General Public License
as published by the Free Software Foundation; either version 2
of the License, or (at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.
`

// PagerOps hands documents to ov
type PagerOps struct {
	program *tea.Program // reference to Bubble Tea program for terminal management
}

func NewPagerOps() *PagerOps {
	return &PagerOps{}
}

// SetProgram sets the program reference for terminal management
func (p *PagerOps) SetProgram(program *tea.Program) {
	p.program = program
}

// ShowInPager runs ov on content until the user quits it
func (p *PagerOps) ShowInPager(title string, content io.Reader) error {
	if p.program == nil {
		return fmt.Errorf("program not set")
	}

	// Release terminal control to run ov
	if err := p.program.ReleaseTerminal(); err != nil {
		return err
	}

	defer func() {
		// Small delay to ensure ov has fully exited before restoring terminal
		time.Sleep(100 * time.Millisecond)
		_ = p.program.RestoreTerminal()
	}()

	root, err := oviewer.NewRoot(content)
	if err != nil {
		return fmt.Errorf("ov %s: %w", title, err)
	}

	config := oviewer.NewConfig()
	config.IsWriteOnExit = false
	config.IsWriteOriginal = false
	root.SetConfig(config)

	return root.Run()
}
