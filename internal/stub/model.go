package stub

import (
	"math"

	"github.com/aprsa/phoebe-lab/internal/types"
)

// seedParameters builds the default binary-system parameter table for a new
// session. Values and bounds track what a freshly created detached bundle
// exposes; sma is derived from Kepler's third law and therefore constrained.
func seedParameters(morphology string) (map[string]*types.Parameter, []string) {
	f := func(v float64) *float64 { return &v }

	params := []*types.Parameter{
		{
			Twig: "period@binary@component", Kind: types.KindNumeric, Value: 1.0,
			Limits:      types.Limits{Min: f(0.01)},
			Description: "Orbital period (d)",
		},
		{
			Twig: "sma@binary@component", Kind: types.KindNumeric, Value: 5.3,
			Constrained: true,
			Description: "Semi-major axis (solRad)",
		},
		{
			Twig: "incl@binary@component", Kind: types.KindNumeric, Value: 90.0,
			Limits:      types.Limits{Min: f(0), Max: f(180)},
			Description: "Orbital inclination (deg)",
		},
		{
			Twig: "q@binary@component", Kind: types.KindNumeric, Value: 1.0,
			Limits:      types.Limits{Min: f(0.01), Max: f(10)},
			Description: "Mass ratio",
		},
		{
			Twig: "ecc@binary@component", Kind: types.KindNumeric, Value: 0.0,
			Limits:      types.Limits{Min: f(0), Max: f(0.999)},
			Description: "Eccentricity",
		},
		{
			Twig: "per0@binary@component", Kind: types.KindNumeric, Value: 0.0,
			Limits:      types.Limits{Min: f(0), Max: f(360)},
			Description: "Argument of periastron (deg)",
		},
		{
			Twig: "t0_supconj@binary@component", Kind: types.KindNumeric, Value: 0.0,
			Description: "Time of superior conjunction (d)",
		},
		{
			Twig: "teff@primary@component", Kind: types.KindNumeric, Value: 6000.0,
			Limits:      types.Limits{Min: f(300), Max: f(500000)},
			Description: "Primary effective temperature (K)",
		},
		{
			Twig: "teff@secondary@component", Kind: types.KindNumeric, Value: 6000.0,
			Limits:      types.Limits{Min: f(300), Max: f(500000)},
			Description: "Secondary effective temperature (K)",
		},
		{
			Twig: "requiv@primary@component", Kind: types.KindNumeric, Value: 1.0,
			Limits:      types.Limits{Min: f(0.5), Max: f(8)},
			Description: "Primary equivalent radius (solRad)",
		},
		{
			Twig: "requiv@secondary@component", Kind: types.KindNumeric, Value: 1.0,
			Limits:      types.Limits{Min: f(0.5), Max: f(8)},
			Description: "Secondary equivalent radius (solRad)",
		},
		{
			Twig: "atm@primary@compute", Kind: types.KindEnumerated, Value: "ck2004",
			Choices:     []string{"ck2004", "blackbody"},
			Description: "Primary atmosphere table",
		},
		{
			Twig: "atm@secondary@compute", Kind: types.KindEnumerated, Value: "ck2004",
			Choices:     []string{"ck2004", "blackbody"},
			Description: "Secondary atmosphere table",
		},
		{
			Twig: "irrad_method@phoebe@compute", Kind: types.KindEnumerated, Value: "horvat",
			Choices:     []string{"none", "wilson", "horvat"},
			Description: "Irradiation method",
		},
		{
			Twig: "ltte@phoebe@compute", Kind: types.KindBoolean, Value: false,
			Description: "Light travel time correction",
		},
	}

	table := make(map[string]*types.Parameter, len(params))
	order := make([]string, 0, len(params))
	for i, p := range params {
		p.UniqueID = uniqueID(p.Twig, i)
		table[p.Twig] = p
		order = append(order, p.Twig)
	}
	applyMorphology(table, morphology)
	return table, order
}

// applyMorphology re-derives the constrained flags for a morphology regime.
// Contact systems share a common envelope, so the secondary geometry follows
// from the primary and the envelope potential.
func applyMorphology(table map[string]*types.Parameter, morphology string) {
	secondary := table["requiv@secondary@component"]
	ecc := table["ecc@binary@component"]
	switch morphology {
	case "contact":
		secondary.Constrained = true
		ecc.Constrained = true
		ecc.Value = 0.0
	case "semi-detached":
		secondary.Constrained = true
		ecc.Constrained = false
	default:
		secondary.Constrained = false
		ecc.Constrained = false
	}
}

// syntheticCurve produces the model samples for one dataset on its phase
// grid. Light curves get eclipse dips at conjunctions, radial velocity
// curves a sine with an amplitude set by the mass ratio. Deterministic in
// the parameter values so repeated computes agree.
func syntheticCurve(params map[string]*types.Parameter, kind types.DatasetKind, phaseMin, phaseMax float64, nPoints int) []float64 {
	if nPoints <= 0 {
		return nil
	}
	incl := numericValue(params, "incl@binary@component", 90)
	q := numericValue(params, "q@binary@component", 1)
	r1 := numericValue(params, "requiv@primary@component", 1)
	r2 := numericValue(params, "requiv@secondary@component", 1)
	sma := numericValue(params, "sma@binary@component", 5.3)
	t1 := numericValue(params, "teff@primary@component", 6000)
	t2 := numericValue(params, "teff@secondary@component", 6000)

	out := make([]float64, nPoints)
	step := 0.0
	if nPoints > 1 {
		step = (phaseMax - phaseMin) / float64(nPoints-1)
	}
	switch kind {
	case types.DatasetRV:
		k := 100.0 * q / (1 + q) * math.Sin(incl*math.Pi/180)
		for i := range out {
			phase := phaseMin + float64(i)*step
			out[i] = k * math.Sin(2*math.Pi*phase)
		}
	default:
		// Eclipse geometry: grazing above the critical inclination, no
		// eclipses below it.
		grazing := math.Cos(incl*math.Pi/180) * sma
		width := (r1 + r2) / sma * 0.25
		depth1 := 0.0
		depth2 := 0.0
		if grazing < r1+r2 {
			ratio := (t2 / t1) * (t2 / t1)
			depth1 = 0.4 * math.Min(1, ratio)
			depth2 = 0.4 * math.Min(1, 1/ratio) * (r2 * r2) / (r1 * r1)
			if depth2 > depth1 {
				depth1, depth2 = depth2, depth1
			}
		}
		for i := range out {
			phase := phaseMin + float64(i)*step
			out[i] = 1 - dip(phase, 0, width, depth1) - dip(phase, 0.5, width, depth2) - dip(phase, -0.5, width, depth2)
		}
	}
	return out
}

func dip(phase, center, width, depth float64) float64 {
	if width <= 0 || depth <= 0 {
		return 0
	}
	d := phase - center
	return depth * math.Exp(-(d*d)/(2*width*width))
}

func numericValue(params map[string]*types.Parameter, twig string, fallback float64) float64 {
	p, ok := params[twig]
	if !ok {
		return fallback
	}
	if v, ok := p.NumericValue(); ok {
		return v
	}
	return fallback
}

// fitValues is the deterministic differential-corrections stand-in: each
// adjusted value moves a fixed fraction of its step toward the bound
// midpoint, so repeated runs converge without randomness.
func fitValues(params map[string]*types.Parameter, twigs []string, steps []float64) (initial, fitted []float64) {
	initial = make([]float64, len(twigs))
	fitted = make([]float64, len(twigs))
	for i, twig := range twigs {
		v := numericValue(params, twig, 0)
		initial[i] = v
		step := 0.01
		if i < len(steps) && steps[i] > 0 {
			step = steps[i]
		}
		target := v
		if p, ok := params[twig]; ok && p.Limits.Min != nil && p.Limits.Max != nil {
			target = (*p.Limits.Min + *p.Limits.Max) / 2
		}
		delta := target - v
		if math.Abs(delta) > step {
			delta = math.Copysign(step, delta)
		}
		fitted[i] = v + delta
	}
	return initial, fitted
}
