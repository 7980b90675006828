package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/aprsa/phoebe-lab/internal/types"
)

type paramItem struct {
	param types.Parameter
}

func (i paramItem) Title() string {
	title := paramTwigStyle.Render(i.param.Twig)
	if i.param.Constrained {
		title += constrainedStyle.Render(" (constrained)")
	}
	return title
}

func (i paramItem) Description() string {
	desc := paramValueStyle.Render(formatParamValue(i.param))
	if bounds := formatLimits(i.param.Limits); bounds != "" {
		desc += statusStyle.Render(" " + bounds)
	}
	if i.param.Adjustable {
		desc += adjustableStyle.Render(fmt.Sprintf(" adjust step %g", i.param.Step))
	}
	return desc
}

func (i paramItem) FilterValue() string {
	return i.param.Twig
}

type paramHost interface {
	writeParameter(twig string, value any) error
	setAdjustable(twig string, adjustable bool, step float64) error
	setStatus(status string)
	setErrorStatus(status string)
}

type paramEditKind int

const (
	paramEditNone paramEditKind = iota
	paramEditText
	paramEditChoice
	paramEditStep
)

// ParameterPanel renders the mirror contents and edits one parameter at a
// time. The widget follows the value kind: free text for numeric and string
// values, left/right cycling for enumerated ones, an immediate toggle for
// booleans.
type ParameterPanel struct {
	list      list.Model
	input     *TextInput
	edit      paramEditKind
	editTwig  string
	choices   []string
	choiceIdx int
}

func NewParameterPanel() *ParameterPanel {
	delegate := list.NewDefaultDelegate()
	mlist := list.New([]list.Item{}, delegate, 48, 16)
	mlist.Title = "Parameters"
	mlist.SetShowHelp(false)
	mlist.SetShowStatusBar(false)
	mlist.SetFilteringEnabled(false)
	mlist.Styles.Title = headerStyle
	return &ParameterPanel{list: mlist, input: NewTextInput("")}
}

func (c *ParameterPanel) SetSize(width, height int) {
	c.list.SetSize(width, height)
}

// SetEntries replaces the listing while keeping the cursor on the same twig
// when it survives the refresh.
func (c *ParameterPanel) SetEntries(params []types.Parameter) {
	selected := c.SelectedTwig()
	items := make([]list.Item, 0, len(params))
	idx := 0
	for i, param := range params {
		if param.Twig == selected {
			idx = i
		}
		items = append(items, paramItem{param: param})
	}
	c.list.SetItems(items)
	if len(items) > 0 {
		c.list.Select(idx)
	}
}

func (c *ParameterPanel) SelectedTwig() string {
	item, ok := c.list.SelectedItem().(paramItem)
	if !ok {
		return ""
	}
	return item.param.Twig
}

func (c *ParameterPanel) selectedParam() (types.Parameter, bool) {
	item, ok := c.list.SelectedItem().(paramItem)
	if !ok {
		return types.Parameter{}, false
	}
	return item.param, true
}

func (c *ParameterPanel) Editing() bool {
	return c.edit != paramEditNone
}

func (c *ParameterPanel) HandleKey(msg tea.KeyMsg, host paramHost) (bool, tea.Cmd) {
	if c.edit != paramEditNone {
		return c.handleEditKey(msg, host)
	}
	switch msg.String() {
	case "enter":
		c.beginEdit(host)
		return true, nil
	case "a":
		param, ok := c.selectedParam()
		if !ok {
			return true, nil
		}
		step := param.Step
		if step == 0 {
			step = defaultStep(param)
		}
		if err := host.setAdjustable(param.Twig, !param.Adjustable, step); err != nil {
			host.setErrorStatus(err.Error())
		}
		return true, nil
	case "s":
		param, ok := c.selectedParam()
		if !ok || param.Kind != types.KindNumeric {
			return true, nil
		}
		c.edit = paramEditStep
		c.editTwig = param.Twig
		c.input.SetPlaceholder("step")
		c.input.SetValue(strconv.FormatFloat(param.Step, 'g', -1, 64))
		c.input.Focus()
		return true, nil
	case "up", "k":
		c.list.CursorUp()
		return true, nil
	case "down", "j":
		c.list.CursorDown()
		return true, nil
	}
	return false, nil
}

func (c *ParameterPanel) beginEdit(host paramHost) {
	param, ok := c.selectedParam()
	if !ok {
		return
	}
	if param.Constrained {
		host.setErrorStatus(param.Twig + " is constrained and cannot be set directly")
		return
	}
	switch param.Kind {
	case types.KindBoolean:
		current, _ := param.Value.(bool)
		if err := host.writeParameter(param.Twig, !current); err != nil {
			host.setErrorStatus(err.Error())
		}
	case types.KindEnumerated:
		if len(param.Choices) == 0 {
			host.setErrorStatus(param.Twig + " has no choices")
			return
		}
		c.edit = paramEditChoice
		c.editTwig = param.Twig
		c.choices = param.Choices
		c.choiceIdx = 0
		current, _ := param.Value.(string)
		for i, choice := range param.Choices {
			if choice == current {
				c.choiceIdx = i
			}
		}
	default:
		c.edit = paramEditText
		c.editTwig = param.Twig
		c.input.SetPlaceholder("value")
		c.input.SetValue(formatParamValue(param))
		c.input.Focus()
	}
}

func (c *ParameterPanel) handleEditKey(msg tea.KeyMsg, host paramHost) (bool, tea.Cmd) {
	switch msg.String() {
	case "esc":
		c.exitEdit()
		return true, nil
	case "enter":
		c.commitEdit(host)
		return true, nil
	}
	switch c.edit {
	case paramEditChoice:
		switch msg.String() {
		case "left", "h":
			c.choiceIdx = (c.choiceIdx + len(c.choices) - 1) % len(c.choices)
		case "right", "l":
			c.choiceIdx = (c.choiceIdx + 1) % len(c.choices)
		}
		return true, nil
	default:
		return true, c.input.Update(msg)
	}
}

func (c *ParameterPanel) commitEdit(host paramHost) {
	param, ok := c.paramByTwig(c.editTwig)
	if !ok {
		c.exitEdit()
		return
	}
	switch c.edit {
	case paramEditChoice:
		if err := host.writeParameter(param.Twig, c.choices[c.choiceIdx]); err != nil {
			host.setErrorStatus(err.Error())
		}
	case paramEditStep:
		step, err := strconv.ParseFloat(strings.TrimSpace(c.input.Value()), 64)
		if err != nil || step <= 0 {
			host.setErrorStatus("step must be a positive number")
			return
		}
		if err := host.setAdjustable(param.Twig, true, step); err != nil {
			host.setErrorStatus(err.Error())
		}
	case paramEditText:
		raw := strings.TrimSpace(c.input.Value())
		var value any = raw
		if param.Kind == types.KindNumeric {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				host.setErrorStatus("not a number: " + raw)
				return
			}
			value = parsed
		}
		if err := host.writeParameter(param.Twig, value); err != nil {
			host.setErrorStatus(err.Error())
		}
	}
	c.exitEdit()
}

func (c *ParameterPanel) exitEdit() {
	c.edit = paramEditNone
	c.editTwig = ""
	c.choices = nil
	c.input.Clear()
	c.input.Blur()
}

func (c *ParameterPanel) paramByTwig(twig string) (types.Parameter, bool) {
	for _, item := range c.list.Items() {
		entry, ok := item.(paramItem)
		if ok && entry.param.Twig == twig {
			return entry.param, true
		}
	}
	return types.Parameter{}, false
}

func (c *ParameterPanel) View() string {
	view := c.list.View()
	switch c.edit {
	case paramEditChoice:
		line := fieldLabelStyle.Render(c.editTwig) + " " + selectedStyle.Render(" "+c.choices[c.choiceIdx]+" ") + helpStyle.Render(" ←/→ enter")
		return view + "\n" + line
	case paramEditText, paramEditStep:
		label := c.editTwig
		if c.edit == paramEditStep {
			label += " step"
		}
		return view + "\n" + fieldLabelStyle.Render(label) + " " + c.input.View()
	}
	return view
}

func formatParamValue(p types.Parameter) string {
	switch v := p.Value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatLimits(l types.Limits) string {
	if l.Min == nil && l.Max == nil {
		return ""
	}
	lo, hi := "-inf", "+inf"
	if l.Min != nil {
		lo = strconv.FormatFloat(*l.Min, 'g', -1, 64)
	}
	if l.Max != nil {
		hi = strconv.FormatFloat(*l.Max, 'g', -1, 64)
	}
	return "[" + lo + ", " + hi + "]"
}

func defaultStep(p types.Parameter) float64 {
	if v, ok := p.NumericValue(); ok && v != 0 {
		step := v * 0.01
		if step < 0 {
			step = -step
		}
		return step
	}
	return 0.01
}
