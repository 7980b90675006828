package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/aprsa/phoebe-lab/internal/types"
)

type datasetItem struct {
	ds *types.Dataset
}

func (i datasetItem) Title() string {
	title := paramTwigStyle.Render(i.ds.Label)
	title += statusStyle.Render(" " + string(i.ds.Kind))
	if i.ds.Passband != "" {
		title += statusStyle.Render(" " + i.ds.Passband)
	}
	return title
}

func (i datasetItem) Description() string {
	desc := fmt.Sprintf("phase [%g, %g] n=%d", i.ds.PhaseMin, i.ds.PhaseMax, i.ds.NPoints)
	if n := i.ds.DataPoints(); n > 0 {
		desc += fmt.Sprintf(" obs=%d", n)
	}
	flags := ""
	if i.ds.ShowData {
		flags += " data"
	}
	if i.ds.ShowModel {
		flags += " model"
	}
	if flags == "" {
		flags = " hidden"
	}
	return statusStyle.Render(desc) + adjustableStyle.Render(flags)
}

func (i datasetItem) FilterValue() string {
	return i.ds.Label
}

type datasetHost interface {
	addDataset(label string, spec types.DatasetSpec) error
	redefineDataset(label string, spec types.DatasetSpec) error
	removeDataset(label string) error
	toggleDisplayFlag(label string, flag types.DisplayFlag) error
	setStatus(status string)
	setErrorStatus(status string)
}

const (
	dsStepLabel = iota
	dsStepKind
	dsStepPassband
	dsStepPhaseMin
	dsStepPhaseMax
	dsStepNPoints
	dsStepCount
)

// DatasetPanel lists registry entries and runs the add/redefine form. A
// redefine reuses the form prefilled from the existing definition; the
// label field is frozen in that case.
type DatasetPanel struct {
	list      list.Model
	input     *TextInput
	forming   bool
	redefine  bool
	step      int
	label     string
	spec      types.DatasetSpec
	kindIdx   int
	formError string
}

var datasetKinds = []types.DatasetKind{types.DatasetLC, types.DatasetRV}

func NewDatasetPanel() *DatasetPanel {
	delegate := list.NewDefaultDelegate()
	mlist := list.New([]list.Item{}, delegate, 48, 16)
	mlist.Title = "Datasets"
	mlist.SetShowHelp(false)
	mlist.SetShowStatusBar(false)
	mlist.SetFilteringEnabled(false)
	mlist.Styles.Title = headerStyle
	return &DatasetPanel{list: mlist, input: NewTextInput("")}
}

func (c *DatasetPanel) SetSize(width, height int) {
	c.list.SetSize(width, height)
}

func (c *DatasetPanel) SetDatasets(datasets []*types.Dataset) {
	selected := c.SelectedLabel()
	items := make([]list.Item, 0, len(datasets))
	idx := 0
	for i, ds := range datasets {
		if ds.Label == selected {
			idx = i
		}
		items = append(items, datasetItem{ds: ds})
	}
	c.list.SetItems(items)
	if len(items) > 0 {
		c.list.Select(idx)
	}
}

func (c *DatasetPanel) SelectedLabel() string {
	item, ok := c.list.SelectedItem().(datasetItem)
	if !ok {
		return ""
	}
	return item.ds.Label
}

func (c *DatasetPanel) Forming() bool {
	return c.forming
}

func (c *DatasetPanel) HandleKey(msg tea.KeyMsg, host datasetHost) (bool, tea.Cmd) {
	if c.forming {
		return c.handleFormKey(msg, host)
	}
	switch msg.String() {
	case "a":
		c.enterForm("", types.DefaultDatasetSpec(), false)
		return true, nil
	case "e":
		item, ok := c.list.SelectedItem().(datasetItem)
		if !ok {
			return true, nil
		}
		c.enterForm(item.ds.Label, item.ds.Spec(), true)
		return true, nil
	case "x":
		label := c.SelectedLabel()
		if label == "" {
			return true, nil
		}
		if err := host.removeDataset(label); err != nil {
			host.setErrorStatus(err.Error())
		} else {
			host.setStatus("removed " + label)
		}
		return true, nil
	case "d":
		return c.toggle(host, types.ShowData)
	case "m":
		return c.toggle(host, types.ShowModel)
	case "up", "k":
		c.list.CursorUp()
		return true, nil
	case "down", "j":
		c.list.CursorDown()
		return true, nil
	}
	return false, nil
}

func (c *DatasetPanel) toggle(host datasetHost, flag types.DisplayFlag) (bool, tea.Cmd) {
	label := c.SelectedLabel()
	if label == "" {
		return true, nil
	}
	if err := host.toggleDisplayFlag(label, flag); err != nil {
		host.setErrorStatus(err.Error())
	}
	return true, nil
}

func (c *DatasetPanel) enterForm(label string, spec types.DatasetSpec, redefine bool) {
	c.forming = true
	c.redefine = redefine
	c.label = label
	c.spec = spec
	c.formError = ""
	c.kindIdx = 0
	for i, kind := range datasetKinds {
		if kind == spec.Kind {
			c.kindIdx = i
		}
	}
	if redefine {
		c.step = dsStepKind
	} else {
		c.step = dsStepLabel
	}
	c.prepareFormInput()
}

func (c *DatasetPanel) exitForm() {
	c.forming = false
	c.redefine = false
	c.label = ""
	c.formError = ""
	c.input.Clear()
	c.input.Blur()
}

func (c *DatasetPanel) handleFormKey(msg tea.KeyMsg, host datasetHost) (bool, tea.Cmd) {
	switch msg.String() {
	case "esc":
		c.exitForm()
		return true, nil
	case "enter":
		if !c.commitStep() {
			return true, nil
		}
		if c.step == dsStepNPoints {
			c.submitForm(host)
			return true, nil
		}
		c.step++
		c.prepareFormInput()
		return true, nil
	}
	if c.step == dsStepKind {
		switch msg.String() {
		case "left", "h":
			c.kindIdx = (c.kindIdx + len(datasetKinds) - 1) % len(datasetKinds)
		case "right", "l":
			c.kindIdx = (c.kindIdx + 1) % len(datasetKinds)
		}
		return true, nil
	}
	return true, c.input.Update(msg)
}

func (c *DatasetPanel) commitStep() bool {
	raw := strings.TrimSpace(c.input.Value())
	switch c.step {
	case dsStepLabel:
		if raw == "" {
			c.formError = "label is required"
			return false
		}
		c.label = raw
	case dsStepKind:
		c.spec.Kind = datasetKinds[c.kindIdx]
	case dsStepPassband:
		c.spec.Passband = raw
	case dsStepPhaseMin:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.formError = "not a number: " + raw
			return false
		}
		c.spec.PhaseMin = v
	case dsStepPhaseMax:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.formError = "not a number: " + raw
			return false
		}
		if v <= c.spec.PhaseMin {
			c.formError = "phase max must exceed phase min"
			return false
		}
		c.spec.PhaseMax = v
	case dsStepNPoints:
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.formError = "points must be a positive integer"
			return false
		}
		c.spec.NPoints = n
	}
	c.formError = ""
	return true
}

func (c *DatasetPanel) submitForm(host datasetHost) {
	var err error
	if c.redefine {
		err = host.redefineDataset(c.label, c.spec)
	} else {
		err = host.addDataset(c.label, c.spec)
	}
	if err != nil {
		host.setErrorStatus(err.Error())
	} else if c.redefine {
		host.setStatus("redefined " + c.label)
	} else {
		host.setStatus("added " + c.label)
	}
	c.exitForm()
}

func (c *DatasetPanel) prepareFormInput() {
	switch c.step {
	case dsStepLabel:
		c.input.SetPlaceholder("label, e.g. lc01")
		c.input.SetValue(c.label)
	case dsStepKind:
		c.input.Blur()
		return
	case dsStepPassband:
		c.input.SetPlaceholder("passband")
		c.input.SetValue(c.spec.Passband)
	case dsStepPhaseMin:
		c.input.SetPlaceholder("phase min")
		c.input.SetValue(strconv.FormatFloat(c.spec.PhaseMin, 'g', -1, 64))
	case dsStepPhaseMax:
		c.input.SetPlaceholder("phase max")
		c.input.SetValue(strconv.FormatFloat(c.spec.PhaseMax, 'g', -1, 64))
	case dsStepNPoints:
		c.input.SetPlaceholder("points")
		c.input.SetValue(strconv.Itoa(c.spec.NPoints))
	}
	c.input.Focus()
}

func (c *DatasetPanel) View() string {
	if !c.forming {
		return c.list.View()
	}
	title := "Add dataset"
	if c.redefine {
		title = "Redefine " + c.label
	}
	lines := []string{headerStyle.Render(title)}
	if c.formError != "" {
		lines = append(lines, errorStyle.Render(c.formError))
	}
	labels := [dsStepCount]string{"Label", "Kind", "Passband", "Phase min", "Phase max", "Points"}
	for i := 0; i < dsStepCount; i++ {
		if c.redefine && i == dsStepLabel {
			continue
		}
		switch {
		case i < c.step:
			lines = append(lines, fieldDoneStyle.Render(labels[i]+": "+c.stepValue(i)))
		case i == c.step && i == dsStepKind:
			lines = append(lines, fieldLabelStyle.Render(labels[i])+" "+selectedStyle.Render(" "+string(datasetKinds[c.kindIdx])+" ")+helpStyle.Render(" ←/→"))
		case i == c.step:
			lines = append(lines, fieldLabelStyle.Render(labels[i])+"\n"+c.input.View())
		}
	}
	lines = append(lines, "", helpStyle.Render("enter next · esc cancel"))
	return strings.Join(lines, "\n")
}

func (c *DatasetPanel) stepValue(step int) string {
	switch step {
	case dsStepLabel:
		return c.label
	case dsStepKind:
		return string(c.spec.Kind)
	case dsStepPassband:
		return c.spec.Passband
	case dsStepPhaseMin:
		return strconv.FormatFloat(c.spec.PhaseMin, 'g', -1, 64)
	case dsStepPhaseMax:
		return strconv.FormatFloat(c.spec.PhaseMax, 'g', -1, 64)
	default:
		return strconv.Itoa(c.spec.NPoints)
	}
}
