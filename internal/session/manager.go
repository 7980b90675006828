package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aprsa/phoebe-lab/internal/bundle"
	"github.com/aprsa/phoebe-lab/internal/client"
	"github.com/aprsa/phoebe-lab/internal/logging"
	"github.com/aprsa/phoebe-lab/internal/store"
	"github.com/aprsa/phoebe-lab/internal/types"
)

// State tracks where the client is in the session lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateActive
	StateExpired
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Service is the slice of the worker-service client the manager needs,
// plus the parameter and dataset operations handed down to the mirror
// and registry it owns.
type Service interface {
	Health(ctx context.Context) (*client.HealthResult, error)
	StartSession(ctx context.Context, user types.User, projectName string) (*types.SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*types.SessionInfo, error)
	EndSession(ctx context.Context, sessionID string) error
	AttachParams(ctx context.Context, sessionID string, specs []client.ParameterSpec) error
	ChangeMorphology(ctx context.Context, sessionID, morphology string) error
	bundle.ParameterService
	bundle.DatasetService
}

// Morphology choices offered by the front end. Changing morphology
// rebuilds the remote system, so the datasets have to be re-added
// afterwards.
var Morphologies = []string{"detached", "semi-detached", "contact"}

// UI-only parameter twigs. These live in the mirror for uniform widget
// handling but never reach the remote parameter set via value writes.
const (
	TwigProjectName = "project_name@ui"
	TwigBackend     = "backend@ui"
	TwigMorphology  = "morphology@ui"
	TwigPhaseMin    = "phase_min@ui"
	TwigPhaseMax    = "phase_max@ui"
)

// Manager drives the session lifecycle and owns the mirror and registry
// bound to the current session. All methods are called from the UI event
// loop; the manager itself is not goroutine-safe.
type Manager struct {
	svc      Service
	store    store.StateStore
	logger   logging.Logger
	backends []string

	state    State
	info     *types.SessionInfo
	user     types.User
	mirror   *bundle.Mirror
	registry *bundle.Registry
}

func NewManager(svc Service, st store.StateStore, backends []string, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Manager{
		svc:      svc,
		store:    st,
		logger:   logger,
		backends: backends,
		state:    StateUnauthenticated,
	}
}

func (m *Manager) State() State {
	return m.state
}

func (m *Manager) Info() *types.SessionInfo {
	return m.info
}

func (m *Manager) User() types.User {
	return m.user
}

// Mirror returns the parameter mirror for the active session, nil before
// the first successful start or resume.
func (m *Manager) Mirror() *bundle.Mirror {
	return m.mirror
}

func (m *Manager) Registry() *bundle.Registry {
	return m.registry
}

// Start authenticates against the worker service, opens a fresh session and
// binds a new mirror and registry to it. The client state is persisted so
// the session can be offered for resumption on the next run.
func (m *Manager) Start(ctx context.Context, user types.User, projectName string) error {
	if !user.Valid() {
		return errors.New("first and last name are required")
	}
	projectName = strings.TrimSpace(projectName)
	if projectName == "" {
		projectName = "untitled"
	}
	m.state = StateAuthenticating

	info, err := m.svc.StartSession(ctx, user, projectName)
	if err != nil {
		m.state = m.failureState(err)
		return err
	}

	m.info = info
	m.user = user
	m.mirror = bundle.NewMirror(m.svc, info.SessionID, m.logger)
	m.registry = bundle.NewRegistry(m.svc, info.SessionID, m.logger)

	if err := m.attachUIParameters(ctx, projectName); err != nil {
		m.state = m.failureState(err)
		return err
	}
	if err := m.persist(ctx); err != nil {
		m.logger.Warn("state_persist_failed", logging.F("error", err.Error()))
	}
	m.state = StateActive
	m.logger.Info("session_started",
		logging.F("session_id", info.SessionID),
		logging.F("project", projectName),
	)
	return nil
}

// Resume reattaches to a previously started session. Only a
// server-confirmed session id transitions to active; an expired id clears
// all local state so the user starts from a clean login.
func (m *Manager) Resume(ctx context.Context, sessionID string, user types.User) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("session id is required")
	}
	m.state = StateAuthenticating

	info, err := m.svc.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, client.ErrSessionExpired) {
			m.expire(ctx)
			return err
		}
		m.state = m.failureState(err)
		return err
	}

	m.info = info
	m.user = user
	m.mirror = bundle.NewMirror(m.svc, info.SessionID, m.logger)
	m.registry = bundle.NewRegistry(m.svc, info.SessionID, m.logger)

	if err := m.attachUIParameters(ctx, info.ProjectName); err != nil {
		m.state = m.failureState(err)
		return err
	}
	if err := m.registry.SyncFromServer(ctx); err != nil {
		m.state = m.failureState(err)
		return err
	}
	if err := m.persist(ctx); err != nil {
		m.logger.Warn("state_persist_failed", logging.F("error", err.Error()))
	}
	m.state = StateActive
	m.logger.Info("session_resumed", logging.F("session_id", info.SessionID))
	return nil
}

// End closes the remote session and clears all local state.
func (m *Manager) End(ctx context.Context) error {
	if m.info == nil {
		return errors.New("no active session")
	}
	err := m.svc.EndSession(ctx, m.info.SessionID)
	if err != nil && !errors.Is(err, client.ErrSessionExpired) {
		return err
	}
	m.clear(ctx)
	m.state = StateUnauthenticated
	return nil
}

// ObserveError folds a remote-call failure into the lifecycle: an expired
// session clears local state, a transport failure parks the manager in the
// disconnected state until Reconnect succeeds. Other errors leave the
// state alone.
func (m *Manager) ObserveError(ctx context.Context, err error) State {
	switch {
	case errors.Is(err, client.ErrSessionExpired):
		m.expire(ctx)
	case errors.Is(err, client.ErrDisconnected):
		m.state = StateDisconnected
	}
	return m.state
}

const (
	reconnectInitialDelay = 200 * time.Millisecond
	reconnectMaxDelay     = 5 * time.Second
	reconnectTimeout      = 30 * time.Second
)

// Reconnect probes the service with capped backoff until it answers, then
// confirms the session still exists and resynchronizes the mirror and
// registry before going active again. Local unconfirmed edits are
// discarded: after a reconnect the remote session wins.
func (m *Manager) Reconnect(ctx context.Context) error {
	if m.info == nil {
		return errors.New("no session to reconnect")
	}

	deadline := time.Now().Add(reconnectTimeout)
	delay := reconnectInitialDelay
	var lastErr error
	for time.Now().Before(deadline) {
		if _, err := m.svc.Health(ctx); err == nil {
			lastErr = nil
			break
		} else {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay < reconnectMaxDelay {
			delay *= 2
		}
	}
	if lastErr != nil {
		return fmt.Errorf("service unreachable: %w", lastErr)
	}

	if _, err := m.svc.GetSession(ctx, m.info.SessionID); err != nil {
		if errors.Is(err, client.ErrSessionExpired) {
			m.expire(ctx)
		}
		return err
	}
	if err := m.mirror.Resync(ctx); err != nil {
		return err
	}
	if err := m.registry.SyncFromServer(ctx); err != nil {
		return err
	}
	m.state = StateActive
	m.logger.Info("session_reconnected", logging.F("session_id", m.info.SessionID))
	return nil
}

// ChangeMorphology switches the remote system between morphology regimes.
// The server rebuilds its parameter set and drops all datasets, so the
// registry re-adds every dataset under a fresh remote id and the mirror is
// resynchronized to pick up re-derived constraints.
func (m *Manager) ChangeMorphology(ctx context.Context, morphology string) error {
	if m.state != StateActive {
		return errors.New("no active session")
	}
	if err := m.svc.ChangeMorphology(ctx, m.info.SessionID, morphology); err != nil {
		return err
	}
	if err := m.registry.ReaddAll(ctx); err != nil {
		return err
	}
	if err := m.mirror.Resync(ctx); err != nil {
		return err
	}
	if err := m.mirror.Write(ctx, TwigMorphology, morphology); err != nil {
		return err
	}
	return nil
}

func (m *Manager) expire(ctx context.Context) {
	m.logger.Warn("session_expired")
	m.clear(ctx)
	m.state = StateExpired
}

func (m *Manager) clear(ctx context.Context) {
	if m.mirror != nil {
		m.mirror.Reset("")
	}
	if m.registry != nil {
		m.registry.Reset("")
	}
	m.info = nil
	if m.store != nil {
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Warn("state_clear_failed", logging.F("error", err.Error()))
		}
	}
}

func (m *Manager) persist(ctx context.Context) error {
	if m.store == nil || m.info == nil {
		return nil
	}
	return m.store.Save(ctx, &types.ClientState{
		SessionID:   m.info.SessionID,
		ProjectName: m.info.ProjectName,
		User:        m.user,
	})
}

// attachUIParameters registers the front-end bookkeeping quantities: they
// render through the same widget dispatch as model parameters but writes
// stay local. The server is told about them so they survive in saved
// bundles.
func (m *Manager) attachUIParameters(ctx context.Context, projectName string) error {
	backends := m.backends
	if len(backends) == 0 {
		backends = []string{"phoebe2"}
	}
	phaseLo, phaseHi := -1.0, 1.0
	phaseLimits := types.Limits{Min: &phaseLo, Max: &phaseHi}
	locals := []types.Parameter{
		{Twig: TwigProjectName, Kind: types.KindString, Value: projectName, Description: "Project name"},
		{Twig: TwigBackend, Kind: types.KindEnumerated, Value: backends[0], Choices: backends, Description: "Compute backend"},
		{Twig: TwigMorphology, Kind: types.KindEnumerated, Value: Morphologies[0], Choices: Morphologies, Description: "System morphology"},
		{Twig: TwigPhaseMin, Kind: types.KindNumeric, Value: -0.5, Limits: phaseLimits, Description: "Plot phase lower bound"},
		{Twig: TwigPhaseMax, Kind: types.KindNumeric, Value: 0.5, Limits: phaseLimits, Description: "Plot phase upper bound"},
	}
	specs := make([]client.ParameterSpec, 0, len(locals))
	for _, p := range locals {
		if err := m.mirror.AttachLocal(p); err != nil {
			return err
		}
		specs = append(specs, client.ParameterSpec{
			Twig:        p.Twig,
			Kind:        string(p.Kind),
			Value:       p.Value,
			Choices:     p.Choices,
			Limits:      p.Limits,
			Description: p.Description,
		})
	}
	return m.svc.AttachParams(ctx, m.info.SessionID, specs)
}

func (m *Manager) failureState(err error) State {
	if errors.Is(err, client.ErrDisconnected) {
		return StateDisconnected
	}
	return StateUnauthenticated
}
