package ui

import "github.com/charmbracelet/lipgloss"

// Styles contains all the style definitions for the UI
type Styles struct {
	Title       lipgloss.Style
	Tab         lipgloss.Style
	ActiveTab   lipgloss.Style
	Status      lipgloss.Style
	StatusError lipgloss.Style
	StatusEnd   lipgloss.Style
	Highlight   lipgloss.Style
	LineNumber  lipgloss.Style
	Control     lipgloss.Style
	Section     lipgloss.Style
	Key         lipgloss.Style
	Dim         lipgloss.Style
}

// NewStyles creates a new Styles instance with default values
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")),
		Tab: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1),
		ActiveTab: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Padding(0, 1),
		Status:      lipgloss.NewStyle().Reverse(true),
		StatusError: lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true), // red
		StatusEnd:   lipgloss.NewStyle().Foreground(lipgloss.Color("78")),             // green
		Highlight:   lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("226")),
		LineNumber:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Control:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Section:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Key:         lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		Dim:         lipgloss.NewStyle().Faint(true),
	}
}
