package app

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/aprsa/phoebe-lab/internal/types"
)

type plotSeries struct {
	xs    []float64
	ys    []float64
	glyph rune
	model bool
}

// renderPlot draws the visible dataset curves as a character grid. Each
// series is normalized to the shared y-range; observational points render
// as '+', model samples as '·'. Datasets with both display flags off do
// not contribute.
func renderPlot(datasets []*types.Dataset, width, height int) string {
	if width < 8 || height < 3 {
		return ""
	}
	series := collectSeries(datasets)
	if len(series) == 0 {
		return helpStyle.Render(padRight("no curves to display", width))
	}

	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for i := range s.xs {
			xmin = math.Min(xmin, s.xs[i])
			xmax = math.Max(xmax, s.xs[i])
			ymin = math.Min(ymin, s.ys[i])
			ymax = math.Max(ymax, s.ys[i])
		}
	}
	if xmax == xmin {
		xmax = xmin + 1
	}
	if ymax == ymin {
		ymax = ymin + 1
	}

	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", width))
	}
	styled := make([][]bool, height)
	for r := range styled {
		styled[r] = make([]bool, width)
	}
	for _, s := range series {
		for i := range s.xs {
			col := int(math.Round((s.xs[i] - xmin) / (xmax - xmin) * float64(width-1)))
			row := height - 1 - int(math.Round((s.ys[i]-ymin)/(ymax-ymin)*float64(height-1)))
			if col < 0 || col >= width || row < 0 || row >= height {
				continue
			}
			grid[row][col] = s.glyph
			styled[row][col] = s.model
		}
	}

	var b strings.Builder
	for r := 0; r < height; r++ {
		line := string(grid[r])
		b.WriteString(styleRow(line, styled[r]))
		if r < height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func collectSeries(datasets []*types.Dataset) []plotSeries {
	var out []plotSeries
	for _, ds := range datasets {
		if ds.ShowModel && len(ds.ModelValues) > 0 {
			out = append(out, plotSeries{
				xs:    phaseGrid(ds.PhaseMin, ds.PhaseMax, len(ds.ModelValues)),
				ys:    ds.ModelValues,
				glyph: '·',
				model: true,
			})
		}
		if ds.ShowData && len(ds.Times) > 0 && len(ds.Times) == len(ds.Values) {
			out = append(out, plotSeries{xs: ds.Times, ys: ds.Values, glyph: '+'})
		}
	}
	return out
}

func phaseGrid(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	grid := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range grid {
		grid[i] = lo + float64(i)*step
	}
	return grid
}

func styleRow(line string, model []bool) string {
	runes := []rune(line)
	var b strings.Builder
	for i, r := range runes {
		if r == ' ' {
			b.WriteRune(r)
			continue
		}
		if model[i] {
			b.WriteString(plotModelStyle.Render(string(r)))
		} else {
			b.WriteString(plotDataStyle.Render(string(r)))
		}
	}
	return b.String()
}

func padRight(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}
