package app

import "github.com/charmbracelet/lipgloss/v2"

var (
	headerStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	busyStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	paramTwigStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	paramValueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	constrainedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	adjustableStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))
	selectedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236"))
	paneBorderStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238"))
	paneFocusedStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("69"))
	dialogBorderStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("208")).Padding(0, 1)
	fieldLabelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	fieldDoneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	plotDataStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	plotModelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))
	sessionOwnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	sessionActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
)
