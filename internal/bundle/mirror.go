package bundle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aprsa/phoebe-lab/internal/client"
	"github.com/aprsa/phoebe-lab/internal/logging"
	"github.com/aprsa/phoebe-lab/internal/types"
)

// ParameterService is the slice of the worker-service client the mirror
// needs. All calls are session-scoped.
type ParameterService interface {
	GetParameter(ctx context.Context, sessionID, twig string) (*client.ParameterMeta, error)
	GetValue(ctx context.Context, sessionID, twig string) (any, error)
	SetValue(ctx context.Context, sessionID, twig string, value any) error
	IsParameterConstrained(ctx context.Context, sessionID, twig string) (bool, error)
}

type mirrorEntry struct {
	param     types.Parameter
	confirmed any             // last server-acknowledged value
	validate  func(any) error // resolved once per kind at entry creation
}

// Mirror caches one local entry per remote model quantity, keyed by twig.
// Entries are created on first fetch (or attached locally for UI-only
// quantities), mutated optimistically on successful writes, overwritten on
// resync, and removed only by explicit detach.
type Mirror struct {
	svc       ParameterService
	sessionID string
	order     []string
	entries   map[string]*mirrorEntry
	logger    logging.Logger
}

func NewMirror(svc ParameterService, sessionID string, logger logging.Logger) *Mirror {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Mirror{
		svc:       svc,
		sessionID: sessionID,
		entries:   map[string]*mirrorEntry{},
		logger:    logger,
	}
}

// SessionID is the remote session the mirror is bound to.
func (m *Mirror) SessionID() string {
	return m.sessionID
}

// Fetch returns the entry for twig, creating it from remote metadata on
// first use. An already-mirrored twig is served from the cache so that a
// successful write stays visible until the next resync.
func (m *Mirror) Fetch(ctx context.Context, twig string) (types.Parameter, error) {
	if entry, ok := m.entries[twig]; ok {
		return entry.param, nil
	}

	meta, err := m.svc.GetParameter(ctx, m.sessionID, twig)
	if err != nil {
		if remote := client.AsRemoteError(err); remote != nil && unknownTwig(remote) {
			return types.Parameter{}, fmt.Errorf("%w: %s", ErrNotFound, remote.Message)
		}
		return types.Parameter{}, err
	}

	kind, err := types.ParseValueKind(meta.Kind)
	if err != nil {
		return types.Parameter{}, err
	}
	param := types.Parameter{
		Twig:        twig,
		UniqueID:    meta.UniqueID,
		Kind:        kind,
		Value:       meta.Value,
		Limits:      meta.Limits,
		Choices:     meta.Choices,
		Constrained: meta.Constrained,
		Description: meta.Description,
	}
	m.insert(param)
	return param, nil
}

// unknownTwig reports whether a remote rejection is a twig lookup miss.
// The worker phrases those as "no parameter matching twig ..."; any other
// rejection is a genuine protocol error and passes through unchanged.
func unknownTwig(remote *client.RemoteError) bool {
	msg := strings.ToLower(remote.Message)
	return strings.Contains(msg, "no parameter") || strings.Contains(msg, "no such twig")
}

// AttachLocal registers a UI-only parameter with no remote counterpart.
// It is never written to the remote session and is excluded from solver
// payloads.
func (m *Mirror) AttachLocal(param types.Parameter) error {
	if param.Twig == "" {
		return errors.New("twig is required")
	}
	if _, ok := m.entries[param.Twig]; ok {
		return fmt.Errorf("parameter %s already attached", param.Twig)
	}
	param.UIOnly = true
	param.Constrained = false
	m.insert(param)
	return nil
}

func (m *Mirror) insert(param types.Parameter) {
	m.order = append(m.order, param.Twig)
	m.entries[param.Twig] = &mirrorEntry{
		param:     param,
		confirmed: param.Value,
		validate:  validatorFor(param),
	}
}

// IsConstrained mirrors the remote constrained flag without a round trip.
func (m *Mirror) IsConstrained(twig string) (bool, error) {
	entry, ok := m.entries[twig]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, twig)
	}
	return entry.param.Constrained, nil
}

// Write validates value locally, pushes it to the remote session, and
// updates the cached entry. Constrained entries and values outside the
// cached bounds are rejected before any remote call. A remote rejection
// reverts the entry to the last confirmed value and surfaces the server
// reason unchanged.
func (m *Mirror) Write(ctx context.Context, twig string, value any) error {
	entry, ok := m.entries[twig]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, twig)
	}
	if entry.param.Constrained {
		return fmt.Errorf("%w: %s", ErrConstrained, twig)
	}
	if err := entry.validate(value); err != nil {
		return err
	}

	if entry.param.UIOnly {
		entry.param.Value = value
		entry.confirmed = value
		return nil
	}

	entry.param.Value = value
	if err := m.svc.SetValue(ctx, m.sessionID, twig, value); err != nil {
		entry.param.Value = entry.confirmed
		return err
	}
	entry.confirmed = value
	return nil
}

// SetAdjustable toggles solver adjustment for a twig, with the given step
// size. This is local bookkeeping only.
func (m *Mirror) SetAdjustable(twig string, adjustable bool, step float64) error {
	entry, ok := m.entries[twig]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, twig)
	}
	if adjustable && entry.param.Constrained {
		return fmt.Errorf("%w: %s", ErrConstrained, twig)
	}
	entry.param.Adjustable = adjustable
	if step > 0 {
		entry.param.Step = step
	}
	return nil
}

// Adjustable returns the solver payload: twigs flagged for adjustment and
// their step sizes, in insertion order. UI-only entries never appear.
func (m *Mirror) Adjustable() (twigs []string, steps []float64) {
	for _, twig := range m.order {
		entry := m.entries[twig]
		if entry.param.UIOnly || !entry.param.Adjustable {
			continue
		}
		twigs = append(twigs, twig)
		steps = append(steps, entry.param.Step)
	}
	return twigs, steps
}

// Resync refetches every non-UI-only entry and overwrites local values.
// Unconfirmed local edits are discarded: the remote session wins after a
// reconnect. Calling it twice without intervening remote changes yields
// identical contents.
func (m *Mirror) Resync(ctx context.Context) error {
	for _, twig := range m.order {
		entry := m.entries[twig]
		if entry.param.UIOnly {
			continue
		}
		meta, err := m.svc.GetParameter(ctx, m.sessionID, twig)
		if err != nil {
			if remote := client.AsRemoteError(err); remote != nil {
				// Entries are never dropped implicitly; a twig the server
				// no longer reports stays attached until detached.
				m.logger.Warn("resync_skip", logging.F("twig", twig), logging.F("reason", remote.Message))
				continue
			}
			return err
		}
		entry.param.UniqueID = meta.UniqueID
		entry.param.Value = meta.Value
		entry.param.Limits = meta.Limits
		entry.param.Choices = meta.Choices
		entry.param.Constrained = meta.Constrained
		entry.confirmed = meta.Value
	}
	return nil
}

// Detach removes an entry. This is the only way an entry leaves the mirror.
func (m *Mirror) Detach(twig string) error {
	if _, ok := m.entries[twig]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, twig)
	}
	delete(m.entries, twig)
	for i, t := range m.order {
		if t == twig {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Entries returns a snapshot of all entries in insertion order.
func (m *Mirror) Entries() []types.Parameter {
	out := make([]types.Parameter, 0, len(m.order))
	for _, twig := range m.order {
		out = append(out, m.entries[twig].param)
	}
	return out
}

// Len reports the number of mirrored entries.
func (m *Mirror) Len() int {
	return len(m.entries)
}

// Reset drops every entry. Used when the session expires and all local
// state is stale.
func (m *Mirror) Reset(sessionID string) {
	m.sessionID = sessionID
	m.order = nil
	m.entries = map[string]*mirrorEntry{}
}

func validatorFor(param types.Parameter) func(any) error {
	switch param.Kind {
	case types.KindNumeric:
		limits := param.Limits
		return func(value any) error {
			v, ok := toFloat(value)
			if !ok {
				return fmt.Errorf("%w: %s expects a number", ErrInvalidValue, param.Twig)
			}
			if !limits.Contains(v) {
				return fmt.Errorf("%w: %s=%v outside limits", ErrInvalidValue, param.Twig, v)
			}
			return nil
		}
	case types.KindEnumerated:
		choices := param.Choices
		return func(value any) error {
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("%w: %s expects a choice", ErrInvalidValue, param.Twig)
			}
			for _, choice := range choices {
				if s == choice {
					return nil
				}
			}
			return fmt.Errorf("%w: %q is not a valid choice for %s", ErrInvalidValue, s, param.Twig)
		}
	case types.KindBoolean:
		return func(value any) error {
			if _, ok := value.(bool); !ok {
				return fmt.Errorf("%w: %s expects a boolean", ErrInvalidValue, param.Twig)
			}
			return nil
		}
	default:
		return func(value any) error {
			if _, ok := value.(string); !ok {
				return fmt.Errorf("%w: %s expects a string", ErrInvalidValue, param.Twig)
			}
			return nil
		}
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
