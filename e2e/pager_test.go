//go:build e2e && unix

package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShowsFile(t *testing.T) {
	t.Parallel()
	dir := Workspace(t)
	p := StartPager(t, dir, WriteDocument(t, dir, "fox.txt", "the quick fox\njumps over\nthe quick dog\n"))

	p.Expect("jumps over")
	p.Expect("fox.txt")
	p.Expect("(END)")
}

func TestSearchMovesToMatch(t *testing.T) {
	t.Parallel()
	dir := Workspace(t)
	p := StartPager(t, dir, WriteDocument(t, dir, "long.txt", NumberedLines(500, 0)))
	p.Expect("line 001")

	mark := p.Mark()
	p.Search("line 321")
	p.ExpectSince(mark, "line 321")

	p.Search("no such text")
	p.ExpectSince(mark, "Pattern not found")
}

func TestBackwardSearchAndRepeats(t *testing.T) {
	t.Parallel()
	dir := Workspace(t)
	p := StartPager(t, dir, WriteDocument(t, dir, "needles.txt", NumberedLines(300, 50)))
	p.Expect("line 001")

	p.Search("needle")
	p.Expect("needle at 050")
	mark := p.Mark()
	p.Keys("n")
	p.ExpectSince(mark, "needle at 100")

	mark = p.Mark()
	p.SearchBack("needle")
	p.ExpectSince(mark, "needle at 050")

	mark = p.Mark()
	p.Keys("n")
	p.ExpectSince(mark, "Pattern not found")

	mark = p.Mark()
	p.Keys("N")
	p.ExpectSince(mark, "needle at 100")
}

func TestPagingAndLineScrolling(t *testing.T) {
	t.Parallel()
	dir := Workspace(t)
	p := StartPager(t, dir, WriteDocument(t, dir, "long.txt", NumberedLines(500, 0)))
	p.Expect("line 001")

	mark := p.Mark()
	p.PageDown()
	p.ExpectSince(mark, "line 060")

	mark = p.Mark()
	for range 5 {
		p.Down()
	}
	p.ExpectSince(mark, "line 081")
}

func TestRepeatWithoutPattern(t *testing.T) {
	t.Parallel()
	dir := Workspace(t)
	p := StartPager(t, dir, WriteDocument(t, dir, "a.txt", "alpha\n"))

	p.Keys("n")
	p.Expect("No previous search pattern")
}

func TestTabSwitchesBetweenFileAndCommand(t *testing.T) {
	t.Parallel()
	dir := Workspace(t)
	file := WriteDocument(t, dir, "a.txt", "alpha\n")
	p := StartPager(t, dir, "--exec", `printf 'shell%s\n' -output`, file)

	// a new pipe takes focus
	p.Expect("shell-output")
	p.Expect("a.txt")

	mark := p.Mark()
	p.NextWindow()
	p.ExpectSince(mark, "alpha")

	mark = p.Mark()
	p.NextWindow()
	p.ExpectSince(mark, "shell-output")

	mark = p.Mark()
	p.CloseWindow()
	p.ExpectSince(mark, "alpha")
}

func TestPipedStandardInput(t *testing.T) {
	t.Parallel()
	dir := Workspace(t)
	p := StartPiped(t, dir, "first piped line\nsecond piped line\n", "--title", "feed")

	p.Expect("second piped line")
	p.Expect("feed")
	p.Expect("(END)")

	// keys come from the terminal while stdin is a pipe
	mark := p.Mark()
	p.Search("zebra")
	p.ExpectSince(mark, "Pattern not found")

	require.NoError(t, p.Quit())
}

func TestReadmeWindow(t *testing.T) {
	t.Parallel()
	dir := Workspace(t)
	p := StartPager(t, dir, WriteDocument(t, dir, "a.txt", "alpha\n"))

	p.Keys("H")
	p.Expect("less-like pager")

	mark := p.Mark()
	p.CloseWindow()
	p.ExpectSince(mark, "alpha")
}

func TestQuitExits(t *testing.T) {
	t.Parallel()
	dir := Workspace(t)
	p := StartPager(t, dir, WriteDocument(t, dir, "a.txt", "alpha\n"))
	p.Expect("alpha")

	require.NoError(t, p.Quit())
}
