package bundle

import (
	"context"
	"fmt"
	"iter"

	"github.com/aprsa/phoebe-lab/internal/client"
	"github.com/aprsa/phoebe-lab/internal/logging"
	"github.com/aprsa/phoebe-lab/internal/types"
)

// DatasetService is the slice of the worker-service client the registry
// needs.
type DatasetService interface {
	AddDataset(ctx context.Context, sessionID string, spec types.DatasetSpec) (string, error)
	RemoveDataset(ctx context.Context, sessionID, datasetID string) error
	GetDatasets(ctx context.Context, sessionID string) ([]client.DatasetInfo, error)
}

// Registry tracks the datasets attached to the remote session, keyed by
// internal label. Display flags (show data, show model) are local
// presentation state and never leave the client. Datasets are kept in
// insertion order.
type Registry struct {
	svc       DatasetService
	sessionID string
	order     []string
	datasets  map[string]*types.Dataset
	logger    logging.Logger
}

func NewRegistry(svc DatasetService, sessionID string, logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Registry{
		svc:       svc,
		sessionID: sessionID,
		datasets:  map[string]*types.Dataset{},
		logger:    logger,
	}
}

// Add attaches a dataset to the remote session and records it locally
// under label. New datasets start hidden: both display flags are false
// until the user opts in. The local record is only created once the
// remote add succeeded.
func (r *Registry) Add(ctx context.Context, label string, spec types.DatasetSpec) (*types.Dataset, error) {
	if label == "" {
		return nil, fmt.Errorf("%w: dataset label is required", ErrInvalidValue)
	}
	if _, ok := r.datasets[label]; ok {
		return nil, fmt.Errorf("%w: dataset %s already registered", ErrInvalidValue, label)
	}
	spec.Label = label
	id, err := r.svc.AddDataset(ctx, r.sessionID, spec)
	if err != nil {
		return nil, err
	}
	ds := datasetFromSpec(id, spec)
	r.order = append(r.order, label)
	r.datasets[label] = ds
	return ds, nil
}

func datasetFromSpec(id string, spec types.DatasetSpec) *types.Dataset {
	return &types.Dataset{
		ID:       id,
		Label:    spec.Label,
		Kind:     spec.Kind,
		Passband: spec.Passband,
		Times:    spec.Times,
		Values:   spec.Values,
		Sigmas:   spec.Sigmas,
		PhaseMin: spec.PhaseMin,
		PhaseMax: spec.PhaseMax,
		NPoints:  spec.NPoints,
		Source:   spec.Source,
	}
}

// Remove detaches a dataset remote-first: the local record survives a
// failed remote removal so the registry never claims a dataset is gone
// while the server still has it.
func (r *Registry) Remove(ctx context.Context, label string) error {
	ds, ok := r.datasets[label]
	if !ok {
		return fmt.Errorf("%w: dataset %s", ErrNotFound, label)
	}
	if err := r.svc.RemoveDataset(ctx, r.sessionID, ds.ID); err != nil {
		return err
	}
	delete(r.datasets, label)
	for i, l := range r.order {
		if l == label {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// SetDisplayFlag flips a local presentation flag. Setting a flag to its
// current value is a no-op; neither case touches the remote session.
func (r *Registry) SetDisplayFlag(label string, flag types.DisplayFlag, on bool) error {
	ds, ok := r.datasets[label]
	if !ok {
		return fmt.Errorf("%w: dataset %s", ErrNotFound, label)
	}
	switch flag {
	case types.ShowData:
		ds.ShowData = on
	case types.ShowModel:
		ds.ShowModel = on
	default:
		return fmt.Errorf("%w: unknown display flag %d", ErrInvalidValue, flag)
	}
	return nil
}

// Redefine replaces a dataset in place: remove the old remote dataset,
// add one with the new spec under the same label, carrying the display
// flags over. If the add fails after the remove succeeded, the label is
// dropped locally and a PartialFailureError reports which remote dataset
// was lost, so the registry ends up holding either the new dataset or
// none, never a stale one.
func (r *Registry) Redefine(ctx context.Context, label string, spec types.DatasetSpec) (*types.Dataset, error) {
	old, ok := r.datasets[label]
	if !ok {
		return nil, fmt.Errorf("%w: dataset %s", ErrNotFound, label)
	}
	showData, showModel := old.ShowData, old.ShowModel

	if err := r.svc.RemoveDataset(ctx, r.sessionID, old.ID); err != nil {
		return nil, err
	}
	spec.Label = label
	id, err := r.svc.AddDataset(ctx, r.sessionID, spec)
	if err != nil {
		delete(r.datasets, label)
		for i, l := range r.order {
			if l == label {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
		return nil, &PartialFailureError{Label: label, RemovedID: old.ID, Err: err}
	}
	ds := datasetFromSpec(id, spec)
	ds.ShowData = showData
	ds.ShowModel = showModel
	r.datasets[label] = ds
	return ds, nil
}

// ReaddAll re-attaches every registered dataset to the remote session with
// fresh remote ids, preserving specs and display flags. Used after a
// morphology change invalidates the server-side datasets.
func (r *Registry) ReaddAll(ctx context.Context) error {
	for _, label := range r.order {
		ds := r.datasets[label]
		id, err := r.svc.AddDataset(ctx, r.sessionID, ds.Spec())
		if err != nil {
			return fmt.Errorf("re-add dataset %s: %w", label, err)
		}
		ds.ID = id
		ds.ModelValues = nil
	}
	return nil
}

// SyncFromServer rebuilds the table from the server's dataset list after
// a resume or reconnect. Local records whose remote id the server still
// reports keep their slot, display flags and model values; server
// datasets unknown locally are adopted under their remote label, hidden;
// records the server no longer holds are dropped.
func (r *Registry) SyncFromServer(ctx context.Context) error {
	infos, err := r.svc.GetDatasets(ctx, r.sessionID)
	if err != nil {
		return err
	}
	byID := make(map[string]client.DatasetInfo, len(infos))
	for _, info := range infos {
		byID[info.ID] = info
	}

	kept := r.order[:0]
	for _, label := range r.order {
		ds := r.datasets[label]
		info, ok := byID[ds.ID]
		if !ok {
			r.logger.Warn("dataset_gone", logging.F("label", label), logging.F("id", ds.ID))
			delete(r.datasets, label)
			continue
		}
		delete(byID, ds.ID)
		refreshed := datasetFromInfo(info)
		refreshed.Label = label
		refreshed.ShowData = ds.ShowData
		refreshed.ShowModel = ds.ShowModel
		refreshed.ModelValues = ds.ModelValues
		r.datasets[label] = refreshed
		kept = append(kept, label)
	}
	r.order = kept

	for _, info := range infos {
		if _, pending := byID[info.ID]; !pending {
			continue
		}
		label := info.Label
		if label == "" {
			label = info.ID
		}
		if _, taken := r.datasets[label]; taken {
			label = info.ID
		}
		adopted := datasetFromInfo(info)
		adopted.Label = label
		r.datasets[label] = adopted
		r.order = append(r.order, label)
		r.logger.Info("dataset_adopted", logging.F("label", label), logging.F("id", info.ID))
	}
	return nil
}

func datasetFromInfo(info client.DatasetInfo) *types.Dataset {
	return &types.Dataset{
		ID:       info.ID,
		Label:    info.Label,
		Kind:     info.Kind,
		Passband: info.Passband,
		Times:    info.Times,
		Values:   info.Values,
		Sigmas:   info.Sigmas,
		PhaseMin: info.PhaseMin,
		PhaseMax: info.PhaseMax,
		NPoints:  info.NPoints,
		Source:   info.Source,
	}
}

// SetModel attaches computed model values to a dataset.
func (r *Registry) SetModel(label string, values []float64) error {
	ds, ok := r.datasets[label]
	if !ok {
		return fmt.Errorf("%w: dataset %s", ErrNotFound, label)
	}
	ds.ModelValues = values
	return nil
}

// ClearModels drops computed model values from every dataset.
func (r *Registry) ClearModels() {
	for _, ds := range r.datasets {
		ds.ModelValues = nil
	}
}

// Get returns the dataset registered under label.
func (r *Registry) Get(label string) (*types.Dataset, error) {
	ds, ok := r.datasets[label]
	if !ok {
		return nil, fmt.Errorf("%w: dataset %s", ErrNotFound, label)
	}
	return ds, nil
}

// List yields the registered datasets lazily, in insertion order. The
// sequence may be restarted.
func (r *Registry) List() iter.Seq[*types.Dataset] {
	return func(yield func(*types.Dataset) bool) {
		for _, label := range r.order {
			if !yield(r.datasets[label]) {
				return
			}
		}
	}
}

// Len reports the number of registered datasets.
func (r *Registry) Len() int {
	return len(r.datasets)
}

// Reset drops every record. Used when the session expires.
func (r *Registry) Reset(sessionID string) {
	r.sessionID = sessionID
	r.order = nil
	r.datasets = map[string]*types.Dataset{}
}
