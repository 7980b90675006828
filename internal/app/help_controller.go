package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/glamour"
	xansi "github.com/charmbracelet/x/ansi"
)

const helpMarkdown = `# PHOEBE Lab

## Panels

| Key | Action |
| --- | ------ |
| tab | switch between parameters and datasets |
| enter | edit the selected entry |
| a | toggle adjustable (parameters) / add (datasets) |
| s | edit the adjustment step |
| e | redefine the selected dataset |
| x | remove the selected dataset |
| d / m | toggle data / model display |

## Session

| Key | Action |
| --- | ------ |
| C | compute model curves |
| S | run the solver over adjustable parameters |
| W | save the bundle to disk |
| L | load the bundle from disk |
| N | reset to a pristine bundle |
| M | change the system morphology |
| R | resynchronize with the worker |
| c | copy the session id |
| Q | end the session |
| q | quit, leaving the session running |

A parameter marked *constrained* is derived by the model and cannot be set
directly. Change the morphology to release or impose constraints.
`

// HelpController shows the key reference as rendered markdown inside a
// scrollable viewport.
type HelpController struct {
	viewport viewport.Model
	active   bool
	width    int
}

func NewHelpController() *HelpController {
	vp := viewport.New(viewport.WithWidth(60), viewport.WithHeight(20))
	return &HelpController{viewport: vp}
}

func (c *HelpController) Active() bool {
	return c.active
}

func (c *HelpController) Open(width, height int) {
	c.active = true
	c.SetSize(width, height)
}

func (c *HelpController) Close() {
	c.active = false
}

func (c *HelpController) SetSize(width, height int) {
	if width < 20 {
		width = 20
	}
	if height < 4 {
		height = 4
	}
	c.viewport.SetWidth(width)
	c.viewport.SetHeight(height)
	if width != c.width {
		c.width = width
		c.viewport.SetContent(renderHelp(width))
	}
}

func (c *HelpController) HandleKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "esc", "q", "?":
		c.Close()
		return true
	case "up", "k":
		c.viewport.LineUp(1)
		return true
	case "down", "j":
		c.viewport.LineDown(1)
		return true
	case "pgup":
		c.viewport.HalfViewUp()
		return true
	case "pgdown":
		c.viewport.HalfViewDown()
		return true
	}
	return true
}

func (c *HelpController) View() string {
	return c.viewport.View() + "\n" + helpStyle.Render("↑/↓ scroll · esc close")
}

func renderHelp(width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	out = strings.TrimRight(out, "\n")
	return xansi.Hardwrap(out, width, true)
}
