package cli

import "github.com/charmbracelet/lipgloss"

var (
	primaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00A8E8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4040"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD000"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3DDC84"))
	silentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

func Primary(text string) string { return primaryStyle.Render(text) }
func Error(text string) string   { return errorStyle.Render(text) }
func Warning(text string) string { return warningStyle.Render(text) }
func Success(text string) string { return successStyle.Render(text) }
func Silent(text string) string  { return silentStyle.Render(text) }
func Header(text string) string  { return headerStyle.Render(text) }
