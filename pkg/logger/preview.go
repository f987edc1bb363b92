package logger

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Preview flattens s to one line and cuts it to at most maxLen cells,
// ending with "..." when cut. It never splits a rune.
func Preview(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return ansi.Truncate(s, maxLen, "...")
}
