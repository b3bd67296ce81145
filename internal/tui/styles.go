package tui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/portalwatch/internal/model"
)

var (
	// Colors
	Primary   = lipgloss.Color("205")
	Secondary = lipgloss.Color("86")
	Subtle    = lipgloss.Color("241")
	Success   = lipgloss.Color("46")
	Warning   = lipgloss.Color("214")
	Error     = lipgloss.Color("196")

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(Primary).
			Padding(0, 2).
			Align(lipgloss.Center)

	SectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Subtle).
			Padding(1, 2).
			MarginBottom(1)

	SectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Primary).
				MarginBottom(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Subtle).
			Width(14)

	ValueStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(Subtle).
			Italic(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Subtle).
			MarginTop(1)

	LoadingStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Padding(2, 4)
)

// RenderStatus returns a styled portal status.
func RenderStatus(state model.PortalState) string {
	text := state.Status.String()
	if state.ResponseCode != model.InvalidResponseCode {
		text += " (HTTP " + strconv.Itoa(state.ResponseCode) + ")"
	}

	switch state.Status {
	case model.StatusOnline:
		return SuccessStyle.Render("✓ " + text)
	case model.StatusPortal, model.StatusProxyAuthRequired:
		return WarningStyle.Render("! " + text)
	case model.StatusOffline:
		return ErrorStyle.Render("✗ " + text)
	default:
		return DimStyle.Render("? " + text)
	}
}

// RenderEnabled returns a styled on/off indicator.
func RenderEnabled(ok bool) string {
	if ok {
		return SuccessStyle.Render("✓ enabled")
	}
	return ErrorStyle.Render("✗ disabled")
}
