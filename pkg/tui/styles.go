package tui

import "github.com/charmbracelet/lipgloss"

var (
	Green = lipgloss.Color("#16a34a")
	Red   = lipgloss.Color("#dc2626")
	Gray  = lipgloss.Color("#6b7280")
	Amber = lipgloss.Color("#d97706")
)

type Styles struct {
	Title     lipgloss.Style
	Label     lipgloss.Style
	Focused   lipgloss.Style
	FieldErr  lipgloss.Style
	Banner    lipgloss.Style
	Muted     lipgloss.Style
	Card      lipgloss.Style
	Price     lipgloss.Style
	StoreName lipgloss.Style
	Help      lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(Green).MarginBottom(1),
		Label:     lipgloss.NewStyle().Width(14),
		Focused:   lipgloss.NewStyle().Width(14).Bold(true).Foreground(Green),
		FieldErr:  lipgloss.NewStyle().Foreground(Red).PaddingLeft(14),
		Banner:    lipgloss.NewStyle().Foreground(Red).Border(lipgloss.RoundedBorder()).BorderForeground(Red).Padding(0, 1),
		Muted:     lipgloss.NewStyle().Foreground(Gray),
		Card:      lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(Gray).Padding(0, 1).Width(34),
		Price:     lipgloss.NewStyle().Bold(true).Foreground(Green),
		StoreName: lipgloss.NewStyle().Bold(true),
		Help:      lipgloss.NewStyle().Foreground(Gray).MarginTop(1),
	}
}
