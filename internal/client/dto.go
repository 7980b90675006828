package client

import "github.com/aprsa/phoebe-lab/internal/types"

type HealthResult struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}

type StartSessionRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	ProjectName string `json:"project_name"`
}

type SessionsResult struct {
	Sessions map[string]types.SessionInfo `json:"sessions"`
}

// ParameterMeta is the remote description of one model quantity.
type ParameterMeta struct {
	Twig        string       `json:"twig"`
	UniqueID    string       `json:"uniqueid"`
	Kind        string       `json:"kind"`
	Value       any          `json:"value"`
	Limits      types.Limits `json:"limits,omitempty"`
	Choices     []string     `json:"choices,omitempty"`
	Constrained bool         `json:"constrained"`
	Description string       `json:"description,omitempty"`
}

// ParameterSpec registers a UI-only parameter for server-side bookkeeping.
type ParameterSpec struct {
	Twig        string       `json:"twig"`
	Kind        string       `json:"kind"`
	Value       any          `json:"value"`
	Choices     []string     `json:"choices,omitempty"`
	Limits      types.Limits `json:"limits,omitempty"`
	Description string       `json:"description,omitempty"`
}

type AttachParamsRequest struct {
	Parameters []ParameterSpec `json:"parameters"`
}

type SetValueRequest struct {
	Twig  string `json:"twig"`
	Value any    `json:"value"`
}

type UniqueIDResult struct {
	UniqueID string `json:"uniqueid"`
}

type ConstrainedResult struct {
	Constrained bool `json:"constrained"`
}

type ValueResult struct {
	Value any `json:"value"`
}

type AddDatasetResult struct {
	DatasetID string `json:"dataset_id"`
}

type DatasetsResult struct {
	Datasets []DatasetInfo `json:"datasets"`
}

// DatasetInfo is the remote view of one dataset definition.
type DatasetInfo struct {
	ID       string            `json:"id"`
	Label    string            `json:"label"`
	Kind     types.DatasetKind `json:"kind"`
	Passband string            `json:"passband,omitempty"`
	Times    []float64         `json:"times,omitempty"`
	Values   []float64         `json:"values,omitempty"`
	Sigmas   []float64         `json:"sigmas,omitempty"`
	PhaseMin float64           `json:"phase_min"`
	PhaseMax float64           `json:"phase_max"`
	NPoints  int               `json:"n_points"`
	Source   string            `json:"source,omitempty"`
}

type ChangeMorphologyRequest struct {
	Morphology string `json:"morphology"`
}

type ComputeOptions struct {
	// Solution selects a stored solver solution to compute from, for
	// previewing a fit before adopting it. Empty means current values.
	Solution string `json:"solution,omitempty"`
}

type ComputeRequest struct {
	Options ComputeOptions `json:"options"`
}

// ModelCurve holds the synthetic samples the worker produced for one
// dataset, sampled on the dataset's compute-phase grid.
type ModelCurve struct {
	Values []float64 `json:"values"`
}

type ComputeResult struct {
	Model map[string]ModelCurve `json:"model"`
}

type SolverOptions struct {
	DerivMethod           string `json:"deriv_method,omitempty"`
	ExposeLnProbabilities bool   `json:"expose_lnprobabilities,omitempty"`
}

type SolverRequest struct {
	Twigs   []string      `json:"fit_parameters"`
	Steps   []float64     `json:"steps"`
	Options SolverOptions `json:"options"`
}

// FitResult is the differential-corrections outcome: parallel slices keyed
// by twig order as submitted.
type FitResult struct {
	Twigs   []string  `json:"fit_parameters"`
	Initial []float64 `json:"initial_values"`
	Fitted  []float64 `json:"fitted_values"`
}

type BundleResult struct {
	Bundle []byte `json:"bundle"`
}

type LoadBundleRequest struct {
	Bundle []byte `json:"bundle"`
}
