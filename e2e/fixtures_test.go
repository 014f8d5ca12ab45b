//go:build e2e && unix

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteDocument writes content to name inside dir and returns its path
func WriteDocument(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// NumberedLines returns n lines "line 001" .. "line n". Every line whose
// number is a multiple of mark reads "needle at NNN" instead; mark 0 adds
// none.
func NumberedLines(n, mark int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if mark > 0 && i%mark == 0 {
			fmt.Fprintf(&b, "needle at %03d\n", i)
		} else {
			fmt.Fprintf(&b, "line %03d\n", i)
		}
	}
	return b.String()
}
