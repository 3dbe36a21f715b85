package utils

import (
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// Oneline collapses whitespace and cuts s down to width runes so it fits in a table cell.
func Oneline(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return text.Trim(s, width)
}
