package stub

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aprsa/phoebe-lab/internal/client"
	"github.com/aprsa/phoebe-lab/internal/types"
)

func uniqueID(twig string, _ int) string {
	return "uid-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(twig)).String()[:8] + "-" + sanitize(twig)
}

func sanitize(twig string) string {
	if i := strings.IndexByte(twig, '@'); i > 0 {
		return twig[:i]
	}
	return twig
}

// session is one server-side modeling bundle: the parameter table, the
// attached datasets and the morphology regime they were built under.
type session struct {
	info         types.SessionInfo
	morphology   string
	params       map[string]*types.Parameter
	paramOrder   []string
	datasets     map[string]types.DatasetSpec
	datasetOrder []string
	lastActivity time.Time
}

func newSession(firstName, lastName, email, projectName string) *session {
	s := &session{
		morphology:   "detached",
		datasets:     map[string]types.DatasetSpec{},
		lastActivity: time.Now(),
	}
	s.params, s.paramOrder = seedParameters(s.morphology)
	now := float64(time.Now().Unix())
	s.info = types.SessionInfo{
		SessionID:    uuid.NewString(),
		ProjectName:  projectName,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		CreatedAt:    now,
		LastActivity: now,
		Morphology:   s.morphology,
	}
	return s
}

func (s *session) touch() {
	s.lastActivity = time.Now()
	s.info.LastActivity = float64(s.lastActivity.Unix())
}

func (s *session) parameter(twig string) (*types.Parameter, error) {
	p, ok := s.params[twig]
	if !ok {
		return nil, fmt.Errorf("no parameter matching twig %q", twig)
	}
	return p, nil
}

func (s *session) setValue(twig string, value any) error {
	p, ok := s.params[twig]
	if !ok {
		return fmt.Errorf("no parameter matching twig %q", twig)
	}
	if p.Constrained {
		return fmt.Errorf("parameter %s is constrained", twig)
	}
	switch p.Kind {
	case types.KindNumeric:
		v, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("parameter %s expects a number", twig)
		}
		if !p.Limits.Contains(v) {
			return fmt.Errorf("value %v outside limits for %s", v, twig)
		}
		p.Value = v
	case types.KindEnumerated:
		sv, ok := value.(string)
		if !ok {
			return fmt.Errorf("parameter %s expects a choice", twig)
		}
		valid := false
		for _, choice := range p.Choices {
			if sv == choice {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("%q is not a valid choice for %s", sv, twig)
		}
		p.Value = sv
	case types.KindBoolean:
		bv, ok := value.(bool)
		if !ok {
			return fmt.Errorf("parameter %s expects a boolean", twig)
		}
		p.Value = bv
	default:
		sv, ok := value.(string)
		if !ok {
			return fmt.Errorf("parameter %s expects a string", twig)
		}
		p.Value = sv
	}
	return nil
}

// attachParams registers client-defined parameters so they round-trip
// through saved bundles. Attached parameters are freely writable.
func (s *session) attachParams(specs []client.ParameterSpec) error {
	for _, spec := range specs {
		twig := strings.TrimSpace(spec.Twig)
		if twig == "" {
			return errors.New("parameter twig is required")
		}
		if _, ok := s.params[twig]; ok {
			return fmt.Errorf("parameter %s already attached", twig)
		}
		kind, err := types.ParseValueKind(spec.Kind)
		if err != nil {
			return err
		}
		s.params[twig] = &types.Parameter{
			Twig:        twig,
			UniqueID:    uniqueID(twig, len(s.paramOrder)),
			Kind:        kind,
			Value:       spec.Value,
			Limits:      spec.Limits,
			Choices:     spec.Choices,
			Description: spec.Description,
		}
		s.paramOrder = append(s.paramOrder, twig)
	}
	return nil
}

// changeMorphology rebuilds the system in a new regime. Parameter values
// survive where they are still free; constraints are re-derived and all
// datasets are dropped, exactly as a bundle rebuild does.
func (s *session) changeMorphology(morphology string) error {
	switch morphology {
	case "detached", "semi-detached", "contact":
	default:
		return fmt.Errorf("unknown morphology %q", morphology)
	}
	s.morphology = morphology
	s.info.Morphology = morphology
	applyMorphology(s.params, morphology)
	s.datasets = map[string]types.DatasetSpec{}
	s.datasetOrder = nil
	return nil
}

func (s *session) addDataset(spec types.DatasetSpec) (string, error) {
	switch spec.Kind {
	case types.DatasetLC, types.DatasetRV:
	default:
		return "", fmt.Errorf("unknown dataset kind %q", spec.Kind)
	}
	if spec.NPoints <= 0 {
		return "", errors.New("n_points must be positive")
	}
	if spec.PhaseMax <= spec.PhaseMin {
		return "", errors.New("phase_max must exceed phase_min")
	}
	id := "ds-" + uuid.NewString()[:8]
	s.datasets[id] = spec
	s.datasetOrder = append(s.datasetOrder, id)
	return id, nil
}

func (s *session) removeDataset(id string) error {
	if _, ok := s.datasets[id]; !ok {
		return fmt.Errorf("no dataset %q", id)
	}
	delete(s.datasets, id)
	for i, d := range s.datasetOrder {
		if d == id {
			s.datasetOrder = append(s.datasetOrder[:i], s.datasetOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *session) datasetInfos() []client.DatasetInfo {
	out := make([]client.DatasetInfo, 0, len(s.datasetOrder))
	for _, id := range s.datasetOrder {
		spec := s.datasets[id]
		out = append(out, client.DatasetInfo{
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
		})
	}
	return out
}

func (s *session) compute() client.ComputeResult {
	model := make(map[string]client.ModelCurve, len(s.datasets))
	for id, spec := range s.datasets {
		model[id] = client.ModelCurve{
			Values: syntheticCurve(s.params, spec.Kind, spec.PhaseMin, spec.PhaseMax, spec.NPoints),
		}
	}
	return client.ComputeResult{Model: model}
}

func (s *session) solve(twigs []string, steps []float64) (client.FitResult, error) {
	if len(twigs) == 0 {
		return client.FitResult{}, errors.New("no parameters marked for adjustment")
	}
	for _, twig := range twigs {
		p, ok := s.params[twig]
		if !ok {
			return client.FitResult{}, fmt.Errorf("no parameter matching twig %q", twig)
		}
		if p.Constrained {
			return client.FitResult{}, fmt.Errorf("parameter %s is constrained", twig)
		}
	}
	initial, fitted := fitValues(s.params, twigs, steps)
	return client.FitResult{Twigs: twigs, Initial: initial, Fitted: fitted}, nil
}

// bundlePayload is the serialized session model.
type bundlePayload struct {
	ProjectName  string              `json:"project_name"`
	Morphology   string              `json:"morphology"`
	Parameters   []*types.Parameter  `json:"parameters"`
	DatasetIDs   []string            `json:"dataset_ids"`
	DatasetSpecs []types.DatasetSpec `json:"dataset_specs"`
}

func (s *session) saveBundle() ([]byte, error) {
	payload := bundlePayload{
		ProjectName: s.info.ProjectName,
		Morphology:  s.morphology,
	}
	for _, twig := range s.paramOrder {
		payload.Parameters = append(payload.Parameters, s.params[twig])
	}
	for _, id := range s.datasetOrder {
		payload.DatasetIDs = append(payload.DatasetIDs, id)
		payload.DatasetSpecs = append(payload.DatasetSpecs, s.datasets[id])
	}
	return json.Marshal(payload)
}

func (s *session) loadBundle(raw []byte) error {
	var payload bundlePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("malformed bundle: %w", err)
	}
	if len(payload.DatasetIDs) != len(payload.DatasetSpecs) {
		return errors.New("malformed bundle: dataset ids and specs disagree")
	}
	params := make(map[string]*types.Parameter, len(payload.Parameters))
	order := make([]string, 0, len(payload.Parameters))
	for _, p := range payload.Parameters {
		if p == nil || p.Twig == "" {
			return errors.New("malformed bundle: empty parameter twig")
		}
		params[p.Twig] = p
		order = append(order, p.Twig)
	}
	s.morphology = payload.Morphology
	if s.morphology == "" {
		s.morphology = "detached"
	}
	s.info.Morphology = s.morphology
	if payload.ProjectName != "" {
		s.info.ProjectName = payload.ProjectName
	}
	s.params = params
	s.paramOrder = order
	s.datasets = map[string]types.DatasetSpec{}
	s.datasetOrder = nil
	for i, id := range payload.DatasetIDs {
		s.datasets[id] = payload.DatasetSpecs[i]
		s.datasetOrder = append(s.datasetOrder, id)
	}
	return nil
}

// resetBundle reinitializes the session to the default detached model.
func (s *session) resetBundle() {
	s.morphology = "detached"
	s.info.Morphology = s.morphology
	s.params, s.paramOrder = seedParameters(s.morphology)
	s.datasets = map[string]types.DatasetSpec{}
	s.datasetOrder = nil
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
