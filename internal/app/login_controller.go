package app

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/aprsa/phoebe-lab/internal/types"
)

const (
	loginStepFirst = iota
	loginStepLast
	loginStepEmail
	loginStepProject
	loginStepCount
)

// LoginController collects the user identity and project name one field at
// a time. Enter advances, esc steps back, and the final enter reports the
// form as submitted.
type LoginController struct {
	input  *TextInput
	step   int
	values [loginStepCount]string
	notice string
}

func NewLoginController() *LoginController {
	return &LoginController{input: NewTextInput("")}
}

// Enter resets the form, optionally prefilled from a previously stored
// identity so a returning user only has to confirm.
func (c *LoginController) Enter(user types.User, projectName, notice string) {
	c.step = loginStepFirst
	c.values = [loginStepCount]string{user.FirstName, user.LastName, user.Email, projectName}
	c.notice = notice
	c.prepareInput()
	c.input.Focus()
}

func (c *LoginController) Exit() {
	c.input.Clear()
	c.input.Blur()
}

// HandleKey returns whether the key was consumed and whether the form is
// now complete.
func (c *LoginController) HandleKey(msg tea.KeyMsg) (handled, submitted bool, cmd tea.Cmd) {
	switch msg.String() {
	case "enter":
		c.values[c.step] = strings.TrimSpace(c.input.Value())
		if c.step == loginStepProject {
			if !c.User().Valid() {
				c.notice = "first and last name are required"
				c.step = loginStepFirst
				c.prepareInput()
				return true, false, nil
			}
			return true, true, nil
		}
		c.step++
		c.prepareInput()
		return true, false, nil
	case "esc":
		if c.step == loginStepFirst {
			return false, false, nil
		}
		c.values[c.step] = strings.TrimSpace(c.input.Value())
		c.step--
		c.prepareInput()
		return true, false, nil
	}
	return true, false, c.input.Update(msg)
}

func (c *LoginController) User() types.User {
	return types.NewUser(c.values[loginStepFirst], c.values[loginStepLast], c.values[loginStepEmail])
}

func (c *LoginController) ProjectName() string {
	return c.values[loginStepProject]
}

func (c *LoginController) prepareInput() {
	placeholders := [loginStepCount]string{"First name", "Last name", "Email (optional)", "Project name"}
	c.input.SetPlaceholder(placeholders[c.step])
	c.input.SetValue(c.values[c.step])
}

func (c *LoginController) View() string {
	labels := [loginStepCount]string{"First name", "Last name", "Email", "Project"}
	lines := []string{headerStyle.Render("PHOEBE Lab"), ""}
	if c.notice != "" {
		lines = append(lines, errorStyle.Render(c.notice), "")
	}
	for i := 0; i < loginStepCount; i++ {
		switch {
		case i < c.step:
			lines = append(lines, fieldDoneStyle.Render(labels[i]+": "+c.values[i]))
		case i == c.step:
			lines = append(lines, fieldLabelStyle.Render(labels[i])+"\n"+c.input.View())
		}
	}
	lines = append(lines, "", helpStyle.Render("enter next · esc back"))
	return strings.Join(lines, "\n")
}
