package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit          key.Binding
	Down          key.Binding
	Up            key.Binding
	PageDown      key.Binding
	PageUp        key.Binding
	HalfDown      key.Binding
	HalfUp        key.Binding
	Top           key.Binding
	Bottom        key.Binding
	Tail          key.Binding
	SearchForward key.Binding
	SearchBack    key.Binding
	Next          key.Binding
	Prev          key.Binding
	NextForward   key.Binding
	NextBackward  key.Binding
	IgnoreCase    key.Binding
	Format        key.Binding
	NextWindow    key.Binding
	PrevWindow    key.Binding
	CloseWindow   key.Binding
	Exec          key.Binding
	OpenPager     key.Binding
	Readme        key.Binding
	License       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Down:          key.NewBinding(key.WithKeys("j", "down", "enter"), key.WithHelp("j/↓", "down")),
		Up:            key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		PageDown:      key.NewBinding(key.WithKeys(" ", "pgdown", "ctrl+f"), key.WithHelp("space", "page down")),
		PageUp:        key.NewBinding(key.WithKeys("b", "pgup", "ctrl+b"), key.WithHelp("b", "page up")),
		HalfDown:      key.NewBinding(key.WithKeys("d", "ctrl+d"), key.WithHelp("d", "half page down")),
		HalfUp:        key.NewBinding(key.WithKeys("u", "ctrl+u"), key.WithHelp("u", "half page up")),
		Top:           key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:        key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		Tail:          key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "follow end")),
		SearchForward: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search forward")),
		SearchBack:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "search backward")),
		Next:          key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "repeat search")),
		Prev:          key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "repeat reversed")),
		NextForward:   key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "repeat forward")),
		NextBackward:  key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "repeat backward")),
		IgnoreCase:    key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "toggle ignore case")),
		Format:        key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "text, numbered or raw")),
		NextWindow:    key.NewBinding(key.WithKeys("tab", "]"), key.WithHelp("tab", "next window")),
		PrevWindow:    key.NewBinding(key.WithKeys("shift+tab", "["), key.WithHelp("shift+tab", "previous window")),
		CloseWindow:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "close window")),
		Exec:          key.NewBinding(key.WithKeys("!"), key.WithHelp("!", "run command")),
		OpenPager:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open in ov")),
		Readme:        key.NewBinding(key.WithKeys("H", "f1"), key.WithHelp("H", "readme")),
		License:       key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "license")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.SearchForward, k.Next, k.NextWindow, k.CloseWindow, k.Readme, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Down, k.Up, k.PageDown, k.PageUp, k.HalfDown, k.HalfUp, k.Top, k.Bottom, k.Tail},
		{k.SearchForward, k.SearchBack, k.Next, k.Prev, k.NextForward, k.NextBackward, k.IgnoreCase},
		{k.NextWindow, k.PrevWindow, k.CloseWindow, k.Exec, k.OpenPager, k.Format},
		{k.Readme, k.License, k.Quit},
	}
}
