package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	outputStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	fieldStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Underline(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const progressWidth = 30

// progressBar draws pct (0 to 100) as a fixed width bar.
func progressBar(pct int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * progressWidth / 100
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", progressWidth-filled) + "]" + fmt.Sprintf(" %3d%%", pct)
}
