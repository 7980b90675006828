package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/v2/spinner"
	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/aprsa/phoebe-lab/internal/client"
	"github.com/aprsa/phoebe-lab/internal/config"
	"github.com/aprsa/phoebe-lab/internal/logging"
	"github.com/aprsa/phoebe-lab/internal/session"
	"github.com/aprsa/phoebe-lab/internal/store"
	"github.com/aprsa/phoebe-lab/internal/types"
	"github.com/aprsa/phoebe-lab/internal/worker"
)

const (
	taskTimeout      = 2 * time.Minute
	minPanelWidth    = 30
	minPanelHeight   = 6
	plotHeight       = 8
	chromeLineHeight = 4
)

// RemoteAPI is the full worker surface the front end needs. *client.Client
// satisfies it.
type RemoteAPI interface {
	session.Service
	GetSessions(ctx context.Context) (map[string]types.SessionInfo, error)
	RunCompute(ctx context.Context, sessionID string, opts client.ComputeOptions) (*client.ComputeResult, error)
	RunSolver(ctx context.Context, sessionID string, twigs []string, steps []float64, opts client.SolverOptions) (*client.FitResult, error)
	SaveBundle(ctx context.Context, sessionID string) ([]byte, error)
	LoadBundle(ctx context.Context, sessionID string, bundle []byte) error
	NewBundle(ctx context.Context, sessionID string) error
}

type uiMode int

const (
	uiModeLogin uiMode = iota
	uiModeSessions
	uiModeMain
)

type paneFocus int

const (
	focusParams paneFocus = iota
	focusDatasets
)

type Model struct {
	api     RemoteAPI
	manager *session.Manager
	pool    *worker.Pool
	cfg     config.Config
	logger  logging.Logger

	mode   uiMode
	focus  paneFocus
	width  int
	height int

	login    *LoginController
	picker   *SessionPicker
	params   *ParameterPanel
	datasets *DatasetPanel
	solution *SolutionController
	help     *HelpController

	morphPicking bool
	morphIdx     int

	loader       spinner.Model
	reconnecting bool
	status       string
	statusError  bool

	storedSessionID string
}

func NewModel(api RemoteAPI, st store.StateStore, cfg config.Config, logger logging.Logger) Model {
	loader := spinner.New()
	loader.Spinner = spinner.Line
	loader.Style = busyStyle
	return Model{
		api:      api,
		manager:  session.NewManager(api, st, cfg.ComputeBackends(), logger),
		pool:     worker.NewPool(cfg.WorkerCount(), logger),
		cfg:      cfg,
		logger:   logger,
		login:    NewLoginController(),
		picker:   NewSessionPicker(),
		params:   NewParameterPanel(),
		datasets: NewDatasetPanel(),
		solution: NewSolutionController(),
		help:     NewHelpController(),
		loader:   loader,
	}
}

// Run resumes the stored session when the worker still holds it and drops
// into the login flow otherwise.
func Run(api *client.Client, st store.StateStore, cfg config.Config, logger logging.Logger) error {
	model := NewModel(api, st, cfg, logger)

	ctx, cancel := requestContext()
	stored, err := st.Load(ctx)
	cancel()
	if err == nil && !stored.Empty() {
		model.storedSessionID = stored.SessionID
		ctx, cancel := requestContext()
		err = model.manager.Resume(ctx, stored.SessionID, stored.User)
		cancel()
		if err == nil {
			model.mode = uiModeMain
			model.refreshPanels()
		} else if errors.Is(err, client.ErrSessionExpired) {
			model.login.Enter(stored.User, stored.ProjectName, "previous session expired on the worker")
		} else {
			model.login.Enter(stored.User, stored.ProjectName, "")
		}
	} else {
		model.login.Enter(types.User{}, "", "")
	}

	p := tea.NewProgram(&model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, runErr := p.Run()
	model.pool.Close()
	return runErr
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(waitForTaskCmd(m.pool.Results()), fetchSessionsCmd(m.api))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case spinner.TickMsg:
		if !m.busy() && !m.reconnecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.loader, cmd = m.loader.Update(msg)
		return m, cmd
	case taskResultMsg:
		cmd := m.handleTaskResult(msg.result)
		return m, tea.Batch(waitForTaskCmd(m.pool.Results()), cmd)
	case sessionsLoadedMsg:
		if msg.err == nil {
			m.picker.SetSessions(msg.sessions, m.storedSessionID)
		}
		return m, nil
	case reconnectedMsg:
		m.reconnecting = false
		if msg.err != nil {
			if m.manager.State() == session.StateExpired {
				m.storedSessionID = ""
				m.enterLogin("session expired on the worker")
				return m, nil
			}
			m.setErrorStatus("reconnect failed: " + msg.err.Error())
			return m, nil
		}
		m.refreshPanels()
		m.setStatus("reconnected")
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	if m.reconnecting {
		return nil
	}
	if m.help.Active() {
		m.help.HandleKey(msg)
		return nil
	}
	if m.solution.Active() {
		m.solution.HandleKey(msg, m)
		m.refreshPanels()
		return nil
	}
	switch m.mode {
	case uiModeLogin:
		return m.handleLoginKey(msg)
	case uiModeSessions:
		return m.handleSessionsKey(msg)
	default:
		return m.handleMainKey(msg)
	}
}

func (m *Model) handleLoginKey(msg tea.KeyMsg) tea.Cmd {
	handled, submitted, cmd := m.login.HandleKey(msg)
	if !handled && msg.String() == "esc" {
		return tea.Quit
	}
	if !submitted {
		return cmd
	}
	if !m.picker.Empty() {
		m.mode = uiModeSessions
		m.resize()
		return nil
	}
	return m.startSession()
}

func (m *Model) handleSessionsKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		info := m.picker.Selected()
		if info == nil {
			return nil
		}
		ctx, cancel := requestContext()
		defer cancel()
		if err := m.manager.Resume(ctx, info.SessionID, m.login.User()); err != nil {
			if errors.Is(err, client.ErrSessionExpired) {
				m.setErrorStatus("that session is gone; refresh with r")
			} else {
				m.observe(err)
				m.setErrorStatus(err.Error())
			}
			return fetchSessionsCmd(m.api)
		}
		m.enterMain("resumed " + info.ProjectName)
		return nil
	case "n":
		return m.startSession()
	case "r":
		return fetchSessionsCmd(m.api)
	case "esc":
		m.mode = uiModeLogin
		m.login.Enter(m.login.User(), m.login.ProjectName(), "")
		return nil
	case "q":
		return tea.Quit
	}
	return m.picker.Update(msg)
}

func (m *Model) startSession() tea.Cmd {
	ctx, cancel := requestContext()
	defer cancel()
	if err := m.manager.Start(ctx, m.login.User(), m.login.ProjectName()); err != nil {
		m.observe(err)
		m.login.Enter(m.login.User(), m.login.ProjectName(), err.Error())
		m.mode = uiModeLogin
		return nil
	}
	m.enterMain("session started")
	return nil
}

func (m *Model) enterMain(status string) {
	m.mode = uiModeMain
	m.login.Exit()
	if info := m.manager.Info(); info != nil {
		m.storedSessionID = info.SessionID
	}
	m.refreshPanels()
	m.resize()
	m.setStatus(status)
}

func (m *Model) enterLogin(notice string) {
	m.mode = uiModeLogin
	m.morphPicking = false
	m.solution.Close()
	m.login.Enter(m.manager.User(), m.login.ProjectName(), notice)
}

func (m *Model) handleMainKey(msg tea.KeyMsg) tea.Cmd {
	if m.morphPicking {
		m.handleMorphologyKey(msg)
		return nil
	}
	if m.params.Editing() || m.datasets.Forming() {
		return m.dispatchPaneKey(msg)
	}
	switch msg.String() {
	case "q":
		return tea.Quit
	case "Q":
		ctx, cancel := requestContext()
		defer cancel()
		if err := m.manager.End(ctx); err != nil {
			m.setErrorStatus(err.Error())
			return nil
		}
		m.storedSessionID = ""
		m.enterLogin("session ended")
		return nil
	case "tab":
		if m.focus == focusParams {
			m.focus = focusDatasets
		} else {
			m.focus = focusParams
		}
		return nil
	case "?":
		m.help.Open(m.contentWidth(), m.contentHeight())
		return nil
	case "c":
		if info := m.manager.Info(); info != nil {
			if err := copyTextToClipboard(info.SessionID); err != nil {
				m.setErrorStatus(err.Error())
			} else {
				m.setStatus("session id copied")
			}
		}
		return nil
	case "M":
		m.morphPicking = true
		m.morphIdx = 0
		current := ""
		if info := m.manager.Info(); info != nil {
			current = info.Morphology
		}
		for i, name := range session.Morphologies {
			if name == current {
				m.morphIdx = i
			}
		}
		return nil
	case "R":
		if m.manager.State() == session.StateDisconnected {
			m.reconnecting = true
			m.setStatus("reconnecting")
			return tea.Batch(m.loader.Tick, m.reconnectCmd())
		}
		m.resync()
		return nil
	case "C":
		return m.submitCompute()
	case "S":
		return m.submitSolve()
	case "W":
		return m.submitSave()
	case "L":
		return m.submitLoad()
	case "N":
		return m.submitNew()
	}
	return m.dispatchPaneKey(msg)
}

func (m *Model) dispatchPaneKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	if m.focus == focusParams {
		_, cmd = m.params.HandleKey(msg, m)
	} else {
		_, cmd = m.datasets.HandleKey(msg, m)
	}
	return cmd
}

func (m *Model) handleMorphologyKey(msg tea.KeyMsg) {
	switch msg.String() {
	case "esc":
		m.morphPicking = false
	case "left", "h":
		m.morphIdx = (m.morphIdx + len(session.Morphologies) - 1) % len(session.Morphologies)
	case "right", "l":
		m.morphIdx = (m.morphIdx + 1) % len(session.Morphologies)
	case "enter":
		m.morphPicking = false
		name := session.Morphologies[m.morphIdx]
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()
		if err := m.manager.ChangeMorphology(ctx, name); err != nil {
			m.observe(err)
			m.setErrorStatus(err.Error())
			return
		}
		m.refreshPanels()
		m.setStatus("morphology changed to " + name)
	}
}

// observe routes an operation error through the session state machine and
// reflects the resulting state in the UI.
func (m *Model) observe(err error) {
	if err == nil {
		return
	}
	ctx, cancel := requestContext()
	defer cancel()
	switch m.manager.ObserveError(ctx, err) {
	case session.StateExpired:
		m.storedSessionID = ""
		m.enterLogin("session expired on the worker")
	case session.StateDisconnected:
		m.setErrorStatus("worker unreachable; press R to reconnect")
	}
}

func (m *Model) resync() {
	mirror, registry := m.manager.Mirror(), m.manager.Registry()
	if mirror == nil || registry == nil {
		return
	}
	ctx, cancel := requestContext()
	defer cancel()
	if err := mirror.Resync(ctx); err != nil {
		m.observe(err)
		m.setErrorStatus(err.Error())
		return
	}
	if err := registry.SyncFromServer(ctx); err != nil {
		m.observe(err)
		m.setErrorStatus(err.Error())
		return
	}
	m.refreshPanels()
	m.setStatus("synchronized")
}

// reconnectCmd runs the manager's backoff loop off the UI thread. The
// reconnecting flag blocks every other key until reconnectedMsg arrives,
// so nothing else touches the manager while it runs.
func (m *Model) reconnectCmd() tea.Cmd {
	manager := m.manager
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()
		return reconnectedMsg{err: manager.Reconnect(ctx)}
	}
}

// Background tasks. Each key admits a single outstanding run; a second
// request while one is in flight reports busy instead of queueing.

func (m *Model) submitTask(key string, fn func(ctx context.Context, sessionID string) (any, error)) tea.Cmd {
	info := m.manager.Info()
	if m.manager.State() != session.StateActive || info == nil {
		m.setErrorStatus("no active session")
		return nil
	}
	sessionID := info.SessionID
	err := m.pool.TrySubmit(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()
		return fn(ctx, sessionID)
	})
	if errors.Is(err, worker.ErrBusy) {
		m.setErrorStatus(key + " is already running")
		return nil
	}
	if err != nil {
		m.setErrorStatus(err.Error())
		return nil
	}
	m.setStatus(key + " running")
	return m.loader.Tick
}

func (m *Model) submitCompute() tea.Cmd {
	api := m.api
	return m.submitTask(taskCompute, func(ctx context.Context, sessionID string) (any, error) {
		return api.RunCompute(ctx, sessionID, client.ComputeOptions{})
	})
}

func (m *Model) submitSolve() tea.Cmd {
	mirror := m.manager.Mirror()
	if mirror == nil {
		m.setErrorStatus("no active session")
		return nil
	}
	twigs, steps := mirror.Adjustable()
	if len(twigs) == 0 {
		m.setErrorStatus("no adjustable parameters; mark some with a")
		return nil
	}
	api := m.api
	return m.submitTask(taskSolve, func(ctx context.Context, sessionID string) (any, error) {
		return api.RunSolver(ctx, sessionID, twigs, steps, client.SolverOptions{})
	})
}

func (m *Model) submitSave() tea.Cmd {
	api := m.api
	path, err := m.bundlePath()
	if err != nil {
		m.setErrorStatus(err.Error())
		return nil
	}
	return m.submitTask(taskSave, func(ctx context.Context, sessionID string) (any, error) {
		data, err := api.SaveBundle(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, err
		}
		return path, nil
	})
}

func (m *Model) submitLoad() tea.Cmd {
	api := m.api
	path, err := m.bundlePath()
	if err != nil {
		m.setErrorStatus(err.Error())
		return nil
	}
	return m.submitTask(taskLoad, func(ctx context.Context, sessionID string) (any, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return path, api.LoadBundle(ctx, sessionID, data)
	})
}

func (m *Model) submitNew() tea.Cmd {
	api := m.api
	return m.submitTask(taskNew, func(ctx context.Context, sessionID string) (any, error) {
		return nil, api.NewBundle(ctx, sessionID)
	})
}

func (m *Model) bundlePath() (string, error) {
	dir, err := config.BundlesDir()
	if err != nil {
		return "", err
	}
	name := "untitled"
	if info := m.manager.Info(); info != nil && strings.TrimSpace(info.ProjectName) != "" {
		name = strings.TrimSpace(info.ProjectName)
	}
	return filepath.Join(dir, name+".bundle.json"), nil
}

func (m *Model) handleTaskResult(res worker.Result) tea.Cmd {
	if res.Err != nil {
		m.observe(res.Err)
		m.setErrorStatus(res.Key + " failed: " + res.Err.Error())
		return nil
	}
	switch res.Key {
	case taskCompute:
		result, ok := res.Value.(*client.ComputeResult)
		if !ok || result == nil {
			return nil
		}
		m.applyComputeResult(result)
		m.setStatus("compute finished")
	case taskSolve:
		fit, ok := res.Value.(*client.FitResult)
		if !ok || fit == nil {
			return nil
		}
		m.solution.Open(fit)
		m.setStatus("solver finished")
	case taskSave:
		if path, ok := res.Value.(string); ok {
			m.setStatus("bundle saved to " + path)
		}
	case taskLoad:
		m.resync()
		if path, ok := res.Value.(string); ok {
			m.setStatus("bundle loaded from " + path)
		}
	case taskNew:
		m.resync()
		m.setStatus("pristine bundle ready")
	}
	m.refreshPanels()
	return nil
}

func (m *Model) applyComputeResult(result *client.ComputeResult) {
	registry := m.manager.Registry()
	if registry == nil {
		return
	}
	for ds := range registry.List() {
		curve, ok := result.Model[ds.ID]
		if !ok {
			continue
		}
		if err := registry.SetModel(ds.Label, curve.Values); err != nil {
			m.logger.Warn("model_apply_failed", logging.F("label", ds.Label), logging.F("error", err.Error()))
		}
	}
}

// Host interface implementations used by the panels.

func (m *Model) writeParameter(twig string, value any) error {
	mirror := m.manager.Mirror()
	if mirror == nil {
		return errors.New("no active session")
	}
	ctx, cancel := requestContext()
	defer cancel()
	if err := mirror.Write(ctx, twig, value); err != nil {
		m.observe(err)
		return err
	}
	m.refreshPanels()
	m.setStatus(twig + " updated")
	return nil
}

func (m *Model) setAdjustable(twig string, adjustable bool, step float64) error {
	mirror := m.manager.Mirror()
	if mirror == nil {
		return errors.New("no active session")
	}
	if err := mirror.SetAdjustable(twig, adjustable, step); err != nil {
		return err
	}
	m.refreshPanels()
	return nil
}

func (m *Model) addDataset(label string, spec types.DatasetSpec) error {
	registry := m.manager.Registry()
	if registry == nil {
		return errors.New("no active session")
	}
	ctx, cancel := requestContext()
	defer cancel()
	if _, err := registry.Add(ctx, label, spec); err != nil {
		m.observe(err)
		return err
	}
	m.refreshPanels()
	return nil
}

func (m *Model) redefineDataset(label string, spec types.DatasetSpec) error {
	registry := m.manager.Registry()
	if registry == nil {
		return errors.New("no active session")
	}
	ctx, cancel := requestContext()
	defer cancel()
	_, err := registry.Redefine(ctx, label, spec)
	m.refreshPanels()
	if err != nil {
		m.observe(err)
		return err
	}
	return nil
}

func (m *Model) removeDataset(label string) error {
	registry := m.manager.Registry()
	if registry == nil {
		return errors.New("no active session")
	}
	ctx, cancel := requestContext()
	defer cancel()
	if err := registry.Remove(ctx, label); err != nil {
		m.observe(err)
		return err
	}
	m.refreshPanels()
	return nil
}

func (m *Model) toggleDisplayFlag(label string, flag types.DisplayFlag) error {
	registry := m.manager.Registry()
	if registry == nil {
		return errors.New("no active session")
	}
	ds, err := registry.Get(label)
	if err != nil {
		return err
	}
	current := ds.ShowData
	if flag == types.ShowModel {
		current = ds.ShowModel
	}
	if err := registry.SetDisplayFlag(label, flag, !current); err != nil {
		return err
	}
	m.refreshPanels()
	return nil
}

func (m *Model) adoptSolution(fit *client.FitResult) error {
	mirror := m.manager.Mirror()
	if mirror == nil || fit == nil {
		return errors.New("no active session")
	}
	ctx, cancel := requestContext()
	defer cancel()
	for i, twig := range fit.Twigs {
		if i >= len(fit.Fitted) {
			break
		}
		if err := mirror.Write(ctx, twig, fit.Fitted[i]); err != nil {
			m.observe(err)
			return err
		}
	}
	m.refreshPanels()
	return nil
}

func (m *Model) setStatus(status string) {
	m.status = status
	m.statusError = false
}

func (m *Model) setErrorStatus(status string) {
	m.status = status
	m.statusError = true
}

func (m *Model) refreshPanels() {
	if mirror := m.manager.Mirror(); mirror != nil {
		m.params.SetEntries(mirror.Entries())
	} else {
		m.params.SetEntries(nil)
	}
	if registry := m.manager.Registry(); registry != nil {
		var datasets []*types.Dataset
		for ds := range registry.List() {
			datasets = append(datasets, ds)
		}
		m.datasets.SetDatasets(datasets)
	} else {
		m.datasets.SetDatasets(nil)
	}
}

func (m *Model) busy() bool {
	for _, key := range []string{taskCompute, taskSolve, taskSave, taskLoad, taskNew} {
		if m.pool.Busy(key) {
			return true
		}
	}
	return false
}

func (m *Model) contentWidth() int {
	if m.width < minPanelWidth {
		return minPanelWidth
	}
	return m.width
}

func (m *Model) contentHeight() int {
	if m.height < minPanelHeight+chromeLineHeight {
		return minPanelHeight
	}
	return m.height - chromeLineHeight
}

func (m *Model) resize() {
	paneWidth := m.contentWidth()/2 - 2
	if paneWidth < minPanelWidth {
		paneWidth = minPanelWidth
	}
	paneHeight := m.contentHeight()
	if m.plotVisible() {
		paneHeight -= plotHeight + 1
	}
	if paneHeight < minPanelHeight {
		paneHeight = minPanelHeight
	}
	m.params.SetSize(paneWidth, paneHeight)
	m.datasets.SetSize(paneWidth, paneHeight)
	m.picker.SetSize(m.contentWidth(), m.contentHeight())
	if m.help.Active() {
		m.help.SetSize(m.contentWidth(), m.contentHeight())
	}
}

func (m *Model) plotVisible() bool {
	return m.contentHeight() >= minPanelHeight+plotHeight+1
}
