package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/aprsa/phoebe-lab/internal/client"
	"github.com/aprsa/phoebe-lab/internal/store"
	"github.com/aprsa/phoebe-lab/internal/types"
)

type fakeService struct {
	sessions map[string]*types.SessionInfo
	params   map[string]client.ParameterMeta
	datasets map[string]types.DatasetSpec
	nextDS   int

	healthErr     error
	healthFailFor int
	attached      []client.ParameterSpec
	morphologies  []string
}

func newFakeService() *fakeService {
	return &fakeService{
		sessions: map[string]*types.SessionInfo{},
		params: map[string]client.ParameterMeta{
			"period@binary@component": {Twig: "period@binary@component", Kind: "numeric", Value: 2.5},
		},
		datasets: map[string]types.DatasetSpec{},
	}
}

func (s *fakeService) Health(context.Context) (*client.HealthResult, error) {
	if s.healthFailFor > 0 {
		s.healthFailFor--
		return nil, fmt.Errorf("%w: connection refused", client.ErrDisconnected)
	}
	if s.healthErr != nil {
		return nil, s.healthErr
	}
	return &client.HealthResult{OK: true}, nil
}

func (s *fakeService) StartSession(_ context.Context, user types.User, projectName string) (*types.SessionInfo, error) {
	info := &types.SessionInfo{
		SessionID:   fmt.Sprintf("sess-%d", len(s.sessions)+1),
		ProjectName: projectName,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
	}
	s.sessions[info.SessionID] = info
	return info, nil
}

func (s *fakeService) GetSession(_ context.Context, sessionID string) (*types.SessionInfo, error) {
	info, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown session", client.ErrSessionExpired)
	}
	return info, nil
}

func (s *fakeService) EndSession(_ context.Context, sessionID string) error {
	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("%w: unknown session", client.ErrSessionExpired)
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *fakeService) AttachParams(_ context.Context, _ string, specs []client.ParameterSpec) error {
	s.attached = append(s.attached, specs...)
	return nil
}

func (s *fakeService) ChangeMorphology(_ context.Context, _, morphology string) error {
	s.morphologies = append(s.morphologies, morphology)
	// The rebuilt system invalidates every dataset.
	s.datasets = map[string]types.DatasetSpec{}
	return nil
}

func (s *fakeService) GetParameter(_ context.Context, _, twig string) (*client.ParameterMeta, error) {
	meta, ok := s.params[twig]
	if !ok {
		return nil, &client.RemoteError{Status: 200, Message: "no such twig"}
	}
	return &meta, nil
}

func (s *fakeService) GetValue(_ context.Context, _, twig string) (any, error) {
	meta, ok := s.params[twig]
	if !ok {
		return nil, &client.RemoteError{Status: 200, Message: "no such twig"}
	}
	return meta.Value, nil
}

func (s *fakeService) SetValue(_ context.Context, _, twig string, value any) error {
	meta, ok := s.params[twig]
	if !ok {
		return &client.RemoteError{Status: 200, Message: "no such twig"}
	}
	meta.Value = value
	s.params[twig] = meta
	return nil
}

func (s *fakeService) IsParameterConstrained(_ context.Context, _, twig string) (bool, error) {
	meta, ok := s.params[twig]
	if !ok {
		return false, &client.RemoteError{Status: 200, Message: "no such twig"}
	}
	return meta.Constrained, nil
}

func (s *fakeService) AddDataset(_ context.Context, _ string, spec types.DatasetSpec) (string, error) {
	s.nextDS++
	id := fmt.Sprintf("ds-%d", s.nextDS)
	s.datasets[id] = spec
	return id, nil
}

func (s *fakeService) RemoveDataset(_ context.Context, _, datasetID string) error {
	if _, ok := s.datasets[datasetID]; !ok {
		return &client.RemoteError{Status: 200, Message: "no such dataset"}
	}
	delete(s.datasets, datasetID)
	return nil
}

func (s *fakeService) GetDatasets(_ context.Context, _ string) ([]client.DatasetInfo, error) {
	var out []client.DatasetInfo
	for id, spec := range s.datasets {
		out = append(out, client.DatasetInfo{ID: id, Label: spec.Label, Kind: spec.Kind})
	}
	return out, nil
}

func newTestManager(t *testing.T, svc Service) (*Manager, store.StateStore) {
	t.Helper()
	st := store.NewFileStateStore(filepath.Join(t.TempDir(), "state.json"))
	return NewManager(svc, st, []string{"phoebe2", "ellc"}, nil), st
}

func TestManagerStart(t *testing.T) {
	svc := newFakeService()
	m, st := newTestManager(t, svc)
	ctx := context.Background()

	user := types.User{FirstName: "Andrej", LastName: "P"}
	if err := m.Start(ctx, user, "V505 Per"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if m.State() != StateActive {
		t.Fatalf("state = %v", m.State())
	}
	if m.Info() == nil || m.Info().ProjectName != "V505 Per" {
		t.Fatalf("info = %+v", m.Info())
	}

	// UI-only parameters are attached locally and announced remotely.
	p, err := m.Mirror().Fetch(ctx, TwigProjectName)
	if err != nil {
		t.Fatalf("fetch project name: %v", err)
	}
	if p.Value != "V505 Per" || !p.UIOnly {
		t.Fatalf("project name param = %+v", p)
	}
	if len(svc.attached) != 5 {
		t.Fatalf("attached = %d specs, want 5", len(svc.attached))
	}

	// Client state is persisted for resumption.
	state, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.SessionID != m.Info().SessionID {
		t.Fatalf("persisted session id = %q", state.SessionID)
	}
}

func TestManagerStartRequiresName(t *testing.T) {
	m, _ := newTestManager(t, newFakeService())
	if err := m.Start(context.Background(), types.User{}, "p"); err == nil {
		t.Fatal("start accepted empty user")
	}
}

func TestManagerResume(t *testing.T) {
	svc := newFakeService()
	ctx := context.Background()

	first, _ := newTestManager(t, svc)
	user := types.User{FirstName: "Kelly", LastName: "H"}
	if err := first.Start(ctx, user, "demo"); err != nil {
		t.Fatal(err)
	}
	id := first.Info().SessionID

	second, _ := newTestManager(t, svc)
	if err := second.Resume(ctx, id, user); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if second.State() != StateActive {
		t.Fatalf("state = %v", second.State())
	}
	if second.Info().SessionID != id {
		t.Fatalf("session id = %q", second.Info().SessionID)
	}
}

func TestManagerResumeRecoversDatasets(t *testing.T) {
	svc := newFakeService()
	ctx := context.Background()

	first, _ := newTestManager(t, svc)
	user := types.User{FirstName: "Kelly", LastName: "H"}
	if err := first.Start(ctx, user, "demo"); err != nil {
		t.Fatal(err)
	}
	if _, err := first.Registry().Add(ctx, "lc01", types.DefaultDatasetSpec()); err != nil {
		t.Fatal(err)
	}
	id := first.Info().SessionID

	second, _ := newTestManager(t, svc)
	if err := second.Resume(ctx, id, user); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if second.Registry().Len() != 1 {
		t.Fatalf("registry holds %d datasets after resume, want 1", second.Registry().Len())
	}
	ds, err := second.Registry().Get("lc01")
	if err != nil {
		t.Fatalf("resumed dataset missing: %v", err)
	}
	if ds.ShowData || ds.ShowModel {
		t.Fatalf("resumed dataset not hidden: %+v", ds)
	}
}

func TestManagerResumeExpiredClearsState(t *testing.T) {
	svc := newFakeService()
	m, st := newTestManager(t, svc)
	ctx := context.Background()

	if err := st.Save(ctx, &types.ClientState{SessionID: "sess-123", ProjectName: "stale"}); err != nil {
		t.Fatal(err)
	}
	err := m.Resume(ctx, "sess-123", types.User{FirstName: "A", LastName: "B"})
	if !errors.Is(err, client.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if m.State() != StateExpired {
		t.Fatalf("state = %v", m.State())
	}
	state, loadErr := st.Load(ctx)
	if loadErr != nil {
		t.Fatal(loadErr)
	}
	if !state.Empty() {
		t.Fatalf("persisted state survived expiry: %+v", state)
	}
}

func TestManagerExpiryMidSession(t *testing.T) {
	svc := newFakeService()
	m, st := newTestManager(t, svc)
	ctx := context.Background()

	if err := m.Start(ctx, types.User{FirstName: "A", LastName: "B"}, "demo"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Mirror().Fetch(ctx, "period@binary@component"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Registry().Add(ctx, "lc01", types.DefaultDatasetSpec()); err != nil {
		t.Fatal(err)
	}

	state := m.ObserveError(ctx, fmt.Errorf("wrap: %w", client.ErrSessionExpired))
	if state != StateExpired {
		t.Fatalf("state = %v", state)
	}
	if m.Mirror().Len() != 0 || m.Registry().Len() != 0 {
		t.Fatalf("local caches not cleared: mirror=%d registry=%d", m.Mirror().Len(), m.Registry().Len())
	}
	persisted, err := st.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !persisted.Empty() {
		t.Fatalf("persisted state survived expiry: %+v", persisted)
	}
}

func TestManagerObserveDisconnect(t *testing.T) {
	svc := newFakeService()
	m, _ := newTestManager(t, svc)
	ctx := context.Background()

	if err := m.Start(ctx, types.User{FirstName: "A", LastName: "B"}, "demo"); err != nil {
		t.Fatal(err)
	}
	state := m.ObserveError(ctx, fmt.Errorf("%w: connection reset", client.ErrDisconnected))
	if state != StateDisconnected {
		t.Fatalf("state = %v", state)
	}
	// Session info survives a disconnect so reconnection can resume it.
	if m.Info() == nil {
		t.Fatal("session info cleared on disconnect")
	}
}

func TestManagerReconnect(t *testing.T) {
	svc := newFakeService()
	m, _ := newTestManager(t, svc)
	ctx := context.Background()

	if err := m.Start(ctx, types.User{FirstName: "A", LastName: "B"}, "demo"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Mirror().Fetch(ctx, "period@binary@component"); err != nil {
		t.Fatal(err)
	}
	m.ObserveError(ctx, fmt.Errorf("%w: broken pipe", client.ErrDisconnected))

	// Remote moved while we were away.
	meta := svc.params["period@binary@component"]
	meta.Value = 2.75
	svc.params["period@binary@component"] = meta
	svc.healthFailFor = 1

	if err := m.Reconnect(ctx); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if m.State() != StateActive {
		t.Fatalf("state = %v", m.State())
	}
	p, err := m.Mirror().Fetch(ctx, "period@binary@component")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := p.NumericValue(); v != 2.75 {
		t.Fatalf("value after resync = %v, want 2.75", p.Value)
	}
}

func TestManagerChangeMorphology(t *testing.T) {
	svc := newFakeService()
	m, _ := newTestManager(t, svc)
	ctx := context.Background()

	if err := m.Start(ctx, types.User{FirstName: "A", LastName: "B"}, "demo"); err != nil {
		t.Fatal(err)
	}
	ds, err := m.Registry().Add(ctx, "lc01", types.DefaultDatasetSpec())
	if err != nil {
		t.Fatal(err)
	}
	oldID := ds.ID

	if err := m.ChangeMorphology(ctx, "contact"); err != nil {
		t.Fatalf("change morphology: %v", err)
	}
	if len(svc.morphologies) != 1 || svc.morphologies[0] != "contact" {
		t.Fatalf("morphologies = %v", svc.morphologies)
	}
	ds, err = m.Registry().Get("lc01")
	if err != nil {
		t.Fatal(err)
	}
	if ds.ID == oldID {
		t.Fatal("dataset not re-added after morphology change")
	}
	p, err := m.Mirror().Fetch(ctx, TwigMorphology)
	if err != nil {
		t.Fatal(err)
	}
	if p.Value != "contact" {
		t.Fatalf("morphology param = %v", p.Value)
	}
}

func TestManagerEnd(t *testing.T) {
	svc := newFakeService()
	m, st := newTestManager(t, svc)
	ctx := context.Background()

	if err := m.Start(ctx, types.User{FirstName: "A", LastName: "B"}, "demo"); err != nil {
		t.Fatal(err)
	}
	id := m.Info().SessionID
	if err := m.End(ctx); err != nil {
		t.Fatalf("end: %v", err)
	}
	if m.State() != StateUnauthenticated {
		t.Fatalf("state = %v", m.State())
	}
	if _, ok := svc.sessions[id]; ok {
		t.Fatal("remote session survived end")
	}
	state, err := st.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !state.Empty() {
		t.Fatalf("persisted state survived end: %+v", state)
	}
}
