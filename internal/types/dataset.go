package types

// DatasetKind distinguishes light curves from radial velocity curves.
type DatasetKind string

const (
	DatasetLC DatasetKind = "lc"
	DatasetRV DatasetKind = "rv"
)

// DatasetSpec is the user-supplied definition of a dataset. Observational
// columns are optional; a spec without them describes a synthetic dataset
// that only carries a model sampling window.
type DatasetSpec struct {
	Label    string      `json:"label"`
	Kind     DatasetKind `json:"kind"`
	Passband string      `json:"passband,omitempty"`
	Times    []float64   `json:"times,omitempty"`
	Values   []float64   `json:"values,omitempty"`
	Sigmas   []float64   `json:"sigmas,omitempty"`
	PhaseMin float64     `json:"phase_min"`
	PhaseMax float64     `json:"phase_max"`
	NPoints  int         `json:"n_points"`
	Source   string      `json:"source,omitempty"`
}

// DefaultDatasetSpec returns the template the edit dialog starts from.
func DefaultDatasetSpec() DatasetSpec {
	return DatasetSpec{
		Kind:     DatasetLC,
		Passband: "Johnson:V",
		PhaseMin: -0.5,
		PhaseMax: 0.5,
		NPoints:  201,
		Source:   "Synthetic",
	}
}

// DisplayFlag selects one of the per-dataset plot toggles.
type DisplayFlag int

const (
	ShowData DisplayFlag = iota
	ShowModel
)

// Dataset is one registry entry: the definition as confirmed by the remote
// session, the remote-issued id, any computed model arrays, and the purely
// local display flags driving plot inclusion.
type Dataset struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	Kind        DatasetKind `json:"kind"`
	Passband    string      `json:"passband,omitempty"`
	Times       []float64   `json:"times,omitempty"`
	Values      []float64   `json:"values,omitempty"`
	Sigmas      []float64   `json:"sigmas,omitempty"`
	ModelValues []float64   `json:"model_values,omitempty"`
	PhaseMin    float64     `json:"phase_min"`
	PhaseMax    float64     `json:"phase_max"`
	NPoints     int         `json:"n_points"`
	Source      string      `json:"source,omitempty"`
	ShowData    bool        `json:"show_data"`
	ShowModel   bool        `json:"show_model"`
}

// DataPoints is the number of observational samples.
func (d *Dataset) DataPoints() int {
	return len(d.Times)
}

// Spec rebuilds the defining spec from the entry, used when a dataset has
// to be removed and re-added remotely.
func (d *Dataset) Spec() DatasetSpec {
	return DatasetSpec{
		Label:    d.Label,
		Kind:     d.Kind,
		Passband: d.Passband,
		Times:    d.Times,
		Values:   d.Values,
		Sigmas:   d.Sigmas,
		PhaseMin: d.PhaseMin,
		PhaseMax: d.PhaseMax,
		NPoints:  d.NPoints,
		Source:   d.Source,
	}
}
