package ui

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

type displayFormat int

const (
	formatText     displayFormat = iota // SGR colour sequences applied
	formatNumbered                      // same, with line numbers
	formatRaw                           // escape sequences shown in caret notation
)

func (f displayFormat) String() string {
	switch f {
	case formatNumbered:
		return "numbered"
	case formatRaw:
		return "raw"
	default:
		return "text"
	}
}

func (f displayFormat) next() displayFormat {
	return (f + 1) % 3
}

const sgrReset = "\x1b[0m"

// View renders the UI
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.inPagerMode {
		return ""
	}

	var b strings.Builder
	if len(m.docs) > 1 {
		b.WriteString(m.renderTabs())
		b.WriteString("\n")
	}

	height := m.bodyHeight()
	d := m.current()
	for row := 0; row < height; row++ {
		if d != nil && d.top+row < d.lineCount() {
			b.WriteString(m.renderLine(d, d.top+row))
		} else {
			b.WriteString(m.styles.Dim.Render("~"))
		}
		b.WriteString("\n")
	}

	if m.mode != promptNone {
		b.WriteString(m.prompt.View())
	} else {
		b.WriteString(m.renderStatus(d))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// bodyHeight is the number of text rows on screen
func (m *Model) bodyHeight() int {
	h := m.height - 2 // status and help lines
	if len(m.docs) > 1 {
		h--
	}
	return max(h, 1)
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, len(m.docs))
	for i, d := range m.docs {
		title := d.title
		if utf8.RuneCountInString(title) > 24 {
			title = string([]rune(title)[:23]) + "…"
		}
		if i == m.active {
			tabs = append(tabs, m.styles.ActiveTab.Render(title))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(title))
		}
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

func (m *Model) renderStatus(d *document) string {
	var status string
	if d == nil {
		status = m.styles.Status.Render(" no documents ")
	} else {
		parts := []string{
			d.title,
			humanize.Comma(int64(d.lineCount())) + " lines",
			humanize.Bytes(uint64(d.sink.Len())),
			fmt.Sprintf("%d%%", d.percent(m.bodyHeight())),
		}
		if d.tail {
			parts = append(parts, "following")
		}
		status = m.styles.Status.Render(" " + strings.Join(parts, " · ") + " ")
		if d.closed && d.top >= d.maxTop(m.bodyHeight()) {
			status += " " + m.styles.StatusEnd.Render("(END)")
		}
	}

	if m.message != "" {
		if m.messageErr {
			status += " " + m.styles.StatusError.Render(m.message)
		} else {
			status += " " + m.message
		}
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(status)
}

// renderLine draws line i of d clipped to the screen width
func (m *Model) renderLine(d *document, i int) string {
	start, end := d.span(i)
	text := d.sink.Bytes()[start:end]

	w := &lineWriter{
		width:  m.width,
		tab:    m.config.UI.TabWidth,
		raw:    m.format == formatRaw,
		styles: m.styles,
	}
	if w.tab <= 0 {
		w.tab = 8
	}

	if m.format == formatNumbered {
		digits := len(fmt.Sprint(d.lineCount()))
		num := fmt.Sprintf("%*d ", digits, i+1)
		w.sb.WriteString(m.styles.LineNumber.Render(num))
		w.col = len(num)
		w.origin = w.col
	}

	hlStart, hlEnd := len(text), len(text)
	if d.match != nil {
		ms, me := d.match.Offset, d.match.Offset+d.match.Length
		if ms < end && me > start {
			hlStart = max(ms, start) - start
			hlEnd = min(me, end) - start
		}
	}

	if d.aux != "" {
		if style, ok := m.helpText.LineStyle(d.aux, text); ok {
			w.style = &style
		}
	}

	w.write(text[:hlStart], false)
	w.write(text[hlStart:hlEnd], true)
	w.write(text[hlEnd:], false)
	return w.String()
}

type lineWriter struct {
	sb     strings.Builder
	col    int
	origin int // column where the text starts, after any line number
	width  int
	tab    int
	raw    bool
	sgr    bool // an SGR sequence was passed through
	styles *Styles
	style  *lipgloss.Style // applied to plain text, if set
}

func (w *lineWriter) write(text []byte, highlight bool) {
	var seg strings.Builder
	flush := func() {
		if seg.Len() == 0 {
			return
		}
		switch {
		case highlight:
			w.sb.WriteString(w.styles.Highlight.Render(seg.String()))
		case w.style != nil:
			w.sb.WriteString(w.style.Render(seg.String()))
		default:
			w.sb.WriteString(seg.String())
		}
		seg.Reset()
	}

	for len(text) > 0 && w.col < w.width {
		if !w.raw && text[0] == 0x1b {
			if n := sgrLen(text); n > 0 {
				if !highlight {
					seg.Write(text[:n])
					w.sgr = true
				}
				text = text[n:]
				continue
			}
		}

		r, size := utf8.DecodeRune(text)
		raw := text[:size]
		text = text[size:]

		switch {
		case r == '\t':
			n := w.tab - (w.col-w.origin)%w.tab
			n = min(n, w.width-w.col)
			seg.WriteString(strings.Repeat(" ", n))
			w.col += n
		case r == utf8.RuneError && size == 1, unicode.IsControl(r):
			flush()
			c := caret(r, raw)
			if len(c) > w.width-w.col {
				c = c[:w.width-w.col]
			}
			if highlight {
				w.sb.WriteString(w.styles.Highlight.Render(c))
			} else {
				w.sb.WriteString(w.styles.Control.Render(c))
			}
			w.col += len(c)
		default:
			rw := runewidth.RuneWidth(r)
			if w.col+rw > w.width {
				// a wide rune never straddles the right edge
				w.col = w.width
				break
			}
			seg.WriteRune(r)
			w.col += rw
		}
	}
	flush()
}

func (w *lineWriter) String() string {
	if w.sgr {
		w.sb.WriteString(sgrReset)
	}
	return w.sb.String()
}

// sgrLen returns the length of the Select Graphic Rendition sequence at the
// start of b, or 0 if there is none
func sgrLen(b []byte) int {
	if len(b) < 3 || b[0] != 0x1b || b[1] != '[' {
		return 0
	}
	for i := 2; i < len(b); i++ {
		switch c := b[i]; {
		case c == 'm':
			return i + 1
		case c == ';' || ('0' <= c && c <= '9'):
		default:
			return 0
		}
	}
	return 0
}

// caret renders a control character the way less does
func caret(r rune, raw []byte) string {
	switch {
	case r == utf8.RuneError && len(raw) == 1:
		return fmt.Sprintf("<%02X>", raw[0])
	case r < 0x20:
		return "^" + string(r+'@')
	case r == 0x7f:
		return "^?"
	default:
		return fmt.Sprintf("<U+%04X>", r)
	}
}
