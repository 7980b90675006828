package app

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/aprsa/phoebe-lab/internal/types"
)

type fakeHost struct {
	writes []struct {
		twig  string
		value any
	}
	adjustables []struct {
		twig       string
		adjustable bool
		step       float64
	}
	statuses []string
	errs     []string
	writeErr error
}

func (h *fakeHost) writeParameter(twig string, value any) error {
	if h.writeErr != nil {
		return h.writeErr
	}
	h.writes = append(h.writes, struct {
		twig  string
		value any
	}{twig, value})
	return nil
}

func (h *fakeHost) setAdjustable(twig string, adjustable bool, step float64) error {
	h.adjustables = append(h.adjustables, struct {
		twig       string
		adjustable bool
		step       float64
	}{twig, adjustable, step})
	return nil
}

func (h *fakeHost) setStatus(status string) {
	h.statuses = append(h.statuses, status)
}

func (h *fakeHost) setErrorStatus(status string) {
	h.errs = append(h.errs, status)
}

func f(v float64) *float64 { return &v }

func testParams() []types.Parameter {
	return []types.Parameter{
		{Twig: "period@binary@component", Kind: types.KindNumeric, Value: 2.5, Limits: types.Limits{Min: f(0.01)}},
		{Twig: "sma@binary@component", Kind: types.KindNumeric, Value: 5.3, Constrained: true},
		{Twig: "atm@primary@component", Kind: types.KindEnumerated, Value: "ck2004", Choices: []string{"ck2004", "blackbody"}},
		{Twig: "ltte@binary@compute", Kind: types.KindBoolean, Value: false},
	}
}

func keyEnter() tea.KeyMsg { return tea.KeyPressMsg{Code: tea.KeyEnter} }

func keyRune(r rune) tea.KeyMsg { return tea.KeyPressMsg{Code: r, Text: string(r)} }

func TestParameterPanelBooleanToggleWritesImmediately(t *testing.T) {
	panel := NewParameterPanel()
	panel.SetEntries(testParams())
	host := &fakeHost{}

	for i := 0; i < 3; i++ {
		panel.HandleKey(tea.KeyPressMsg{Code: tea.KeyDown}, host)
	}
	panel.HandleKey(keyEnter(), host)

	if len(host.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(host.writes))
	}
	if host.writes[0].twig != "ltte@binary@compute" || host.writes[0].value != true {
		t.Fatalf("unexpected write %+v", host.writes[0])
	}
	if panel.Editing() {
		t.Fatal("boolean toggle must not enter edit mode")
	}
}

func TestParameterPanelConstrainedRejectsEdit(t *testing.T) {
	panel := NewParameterPanel()
	panel.SetEntries(testParams())
	host := &fakeHost{}

	panel.HandleKey(tea.KeyPressMsg{Code: tea.KeyDown}, host)
	panel.HandleKey(keyEnter(), host)

	if panel.Editing() {
		t.Fatal("constrained parameter must not be editable")
	}
	if len(host.writes) != 0 {
		t.Fatalf("writes = %d, want 0", len(host.writes))
	}
	if len(host.errs) == 0 || !strings.Contains(host.errs[0], "constrained") {
		t.Fatalf("errs = %v, want constrained notice", host.errs)
	}
}

func TestParameterPanelEnumeratedCycleCommit(t *testing.T) {
	panel := NewParameterPanel()
	panel.SetEntries(testParams())
	host := &fakeHost{}

	panel.HandleKey(tea.KeyPressMsg{Code: tea.KeyDown}, host)
	panel.HandleKey(tea.KeyPressMsg{Code: tea.KeyDown}, host)
	panel.HandleKey(keyEnter(), host)
	if !panel.Editing() {
		t.Fatal("expected choice edit mode")
	}
	panel.HandleKey(tea.KeyPressMsg{Code: tea.KeyRight}, host)
	panel.HandleKey(keyEnter(), host)

	if len(host.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(host.writes))
	}
	if host.writes[0].value != "blackbody" {
		t.Fatalf("value = %v, want blackbody", host.writes[0].value)
	}
	if panel.Editing() {
		t.Fatal("commit must leave edit mode")
	}
}

func TestParameterPanelNumericParseFailureStaysEditing(t *testing.T) {
	panel := NewParameterPanel()
	panel.SetEntries(testParams())
	host := &fakeHost{}

	panel.HandleKey(keyEnter(), host)
	if !panel.Editing() {
		t.Fatal("expected text edit mode")
	}
	panel.input.SetValue("not-a-number")
	panel.HandleKey(keyEnter(), host)

	if len(host.writes) != 0 {
		t.Fatalf("writes = %d, want 0", len(host.writes))
	}
	if len(host.errs) == 0 || !strings.Contains(host.errs[0], "not a number") {
		t.Fatalf("errs = %v, want parse failure", host.errs)
	}
	if !panel.Editing() {
		t.Fatal("parse failure must keep edit mode open")
	}
}

func TestParameterPanelNumericCommit(t *testing.T) {
	panel := NewParameterPanel()
	panel.SetEntries(testParams())
	host := &fakeHost{}

	panel.HandleKey(keyEnter(), host)
	panel.input.SetValue("3.75")
	panel.HandleKey(keyEnter(), host)

	if len(host.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(host.writes))
	}
	if host.writes[0].twig != "period@binary@component" || host.writes[0].value != 3.75 {
		t.Fatalf("unexpected write %+v", host.writes[0])
	}
}

func TestParameterPanelAdjustableToggle(t *testing.T) {
	panel := NewParameterPanel()
	panel.SetEntries(testParams())
	host := &fakeHost{}

	panel.HandleKey(keyRune('a'), host)

	if len(host.adjustables) != 1 {
		t.Fatalf("adjustable calls = %d, want 1", len(host.adjustables))
	}
	call := host.adjustables[0]
	if call.twig != "period@binary@component" || !call.adjustable {
		t.Fatalf("unexpected call %+v", call)
	}
	if call.step <= 0 {
		t.Fatalf("step = %g, want a positive default", call.step)
	}
}

func TestParameterPanelKeepsCursorAcrossRefresh(t *testing.T) {
	panel := NewParameterPanel()
	panel.SetEntries(testParams())
	host := &fakeHost{}

	panel.HandleKey(tea.KeyPressMsg{Code: tea.KeyDown}, host)
	panel.HandleKey(tea.KeyPressMsg{Code: tea.KeyDown}, host)
	selected := panel.SelectedTwig()

	panel.SetEntries(testParams())
	if panel.SelectedTwig() != selected {
		t.Fatalf("selection moved from %q to %q on refresh", selected, panel.SelectedTwig())
	}
}
