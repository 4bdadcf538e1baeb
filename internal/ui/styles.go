// Package ui holds the terminal styles shared by scout commands.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Accent renders headings and identifiers.
func Accent(s string) string { return accentStyle.Render(s) }

// Pass renders success messages.
func Pass(s string) string { return passStyle.Render(s) }

// Warn renders cautionary messages.
func Warn(s string) string { return warnStyle.Render(s) }

// Fail renders failure messages.
func Fail(s string) string { return failStyle.Render(s) }

// Dim renders secondary detail.
func Dim(s string) string { return dimStyle.Render(s) }
