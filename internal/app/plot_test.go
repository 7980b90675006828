package app

import (
	"strings"
	"testing"

	xansi "github.com/charmbracelet/x/ansi"

	"github.com/aprsa/phoebe-lab/internal/types"
)

func TestRenderPlotHiddenDatasetsContributeNothing(t *testing.T) {
	ds := &types.Dataset{
		Label:       "lc01",
		PhaseMin:    -0.5,
		PhaseMax:    0.5,
		ModelValues: []float64{1, 0.8, 1},
	}
	out := renderPlot([]*types.Dataset{ds}, 40, 6)
	if !strings.Contains(xansi.Strip(out), "no curves") {
		t.Fatalf("hidden dataset should render the empty notice, got %q", out)
	}

	ds.ShowModel = true
	out = renderPlot([]*types.Dataset{ds}, 40, 6)
	if !strings.Contains(out, "·") {
		t.Fatalf("visible model should render samples, got %q", out)
	}
}

func TestRenderPlotMarksDataAndModel(t *testing.T) {
	ds := &types.Dataset{
		Label:       "rv01",
		PhaseMin:    -0.5,
		PhaseMax:    0.5,
		Times:       []float64{-0.4, 0, 0.4},
		Values:      []float64{-80, 0, 80},
		ShowData:    true,
		ShowModel:   true,
		ModelValues: []float64{-75, 0, 75},
	}
	out := renderPlot([]*types.Dataset{ds}, 40, 8)
	if !strings.Contains(out, "+") {
		t.Fatal("observational points missing")
	}
	if !strings.Contains(out, "·") {
		t.Fatal("model samples missing")
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 8 {
		t.Fatalf("height = %d, want 8", len(lines))
	}
}

func TestRenderPlotDegenerateSize(t *testing.T) {
	if out := renderPlot(nil, 4, 2); out != "" {
		t.Fatalf("tiny plot should render nothing, got %q", out)
	}
}
