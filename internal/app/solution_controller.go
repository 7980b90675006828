package app

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/aprsa/phoebe-lab/internal/client"
)

type solutionHost interface {
	adoptSolution(fit *client.FitResult) error
	setStatus(status string)
	setErrorStatus(status string)
}

// SolutionController presents a finished fit. Enter adopts the fitted
// values, esc discards them leaving the model untouched.
type SolutionController struct {
	fit    *client.FitResult
	active bool
}

func NewSolutionController() *SolutionController {
	return &SolutionController{}
}

func (c *SolutionController) Active() bool {
	return c.active
}

func (c *SolutionController) Open(fit *client.FitResult) {
	c.fit = fit
	c.active = true
}

func (c *SolutionController) Close() {
	c.fit = nil
	c.active = false
}

func (c *SolutionController) HandleKey(msg tea.KeyMsg, host solutionHost) bool {
	switch msg.String() {
	case "enter":
		if err := host.adoptSolution(c.fit); err != nil {
			host.setErrorStatus(err.Error())
		} else {
			host.setStatus("solution adopted")
		}
		c.Close()
		return true
	case "esc", "q":
		host.setStatus("solution discarded")
		c.Close()
		return true
	}
	return true
}

func (c *SolutionController) View() string {
	if c.fit == nil {
		return ""
	}
	width := 12
	for _, twig := range c.fit.Twigs {
		if len(twig) > width {
			width = len(twig)
		}
	}
	lines := []string{headerStyle.Render("Solver solution"), ""}
	lines = append(lines, statusStyle.Render(fmt.Sprintf("%-*s  %14s  %14s", width, "parameter", "initial", "fitted")))
	for i, twig := range c.fit.Twigs {
		initial, fitted := 0.0, 0.0
		if i < len(c.fit.Initial) {
			initial = c.fit.Initial[i]
		}
		if i < len(c.fit.Fitted) {
			fitted = c.fit.Fitted[i]
		}
		lines = append(lines, fmt.Sprintf("%-*s  %14.6g  %14.6g", width, twig, initial, fitted))
	}
	lines = append(lines, "", helpStyle.Render("enter adopt · esc discard"))
	return strings.Join(lines, "\n")
}
