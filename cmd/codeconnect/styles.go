package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	badgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(10)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	ruleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const ruleWidth = 72

func rule() string {
	return ruleStyle.Render(strings.Repeat("─", ruleWidth))
}

// field prints one aligned "key value" row. Empty values are skipped.
func field(w io.Writer, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "  %s%s\n", keyStyle.Render(key), value)
}

// highlight writes code with terminal syntax highlighting. An empty
// style writes the code as is.
func highlight(w io.Writer, code, lang, style string) error {
	if style == "" {
		_, err := io.WriteString(w, code)
		return err
	}
	return quick.Highlight(w, code, lang, "terminal256", style)
}
