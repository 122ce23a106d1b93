package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

var (
	accentColor = lipgloss.Color("#2196F3")
	mutedColor  = lipgloss.Color("#A0A0A0")
	errorColor  = lipgloss.Color("#FF6B6B")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(mutedColor)
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)

var useColor = true

// ShouldUseColor respects NO_COLOR and falls back to TTY detection.
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func render(style lipgloss.Style, s string) string {
	if !useColor {
		return s
	}
	return style.Render(s)
}

// PrintTable writes rows in aligned columns; footers is optional.
func PrintTable(w io.Writer, headers []string, rows [][]string, footers []string) {
	colWidths := make([]int, len(headers))
	for i, header := range headers {
		colWidths[i] = runewidth.StringWidth(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if width := runewidth.StringWidth(cell); width > colWidths[i] {
				colWidths[i] = width
			}
		}
	}

	printRow := func(cells []string, style *lipgloss.Style) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			padded := runewidth.FillRight(cell, colWidths[i])
			if style != nil {
				padded = render(*style, padded)
			}
			parts[i] = padded
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	// print header
	printRow(headers, &headerStyle)

	// print rows
	for _, row := range rows {
		printRow(row, nil)
	}

	// print footer
	if len(footers) > 0 {
		printRow(footers, &mutedStyle)
	}
}

// PrintCard renders a titled box of label/value lines.
func PrintCard(w io.Writer, title string, lines [][2]string) {
	var b strings.Builder
	b.WriteString(render(titleStyle, title))
	for _, l := range lines {
		if l[1] == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(render(mutedStyle, l[0]+": "))
		b.WriteString(l[1])
	}
	if useColor {
		fmt.Fprintln(w, cardStyle.Render(b.String()))
		return
	}
	fmt.Fprintln(w, b.String())
}

// PrintError writes a user-facing error message.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, render(errorStyle, "Błąd: ")+err.Error())
}

func FormatTimestamp(ms int64) string {
	return JournalEntry{Timestamp: ms}.CreatedAt().Format("15:04")
}
