package stub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aprsa/phoebe-lab/internal/client"
	"github.com/aprsa/phoebe-lab/internal/logging"
	"github.com/aprsa/phoebe-lab/internal/types"
)

const defaultIdleTTL = 30 * time.Minute

// Server is a stand-in worker service. It speaks the same envelope
// protocol as the real PHOEBE worker, backed by a deterministic model
// generator instead of a physics engine, so the front end can be exercised
// without a worker deployment.
type Server struct {
	version string
	idleTTL time.Duration
	logger  logging.Logger

	mu       sync.Mutex
	sessions map[string]*session

	server *http.Server
}

func NewServer(version string, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{
		version:  version,
		idleTTL:  defaultIdleTTL,
		logger:   logger,
		sessions: map[string]*session{},
	}
}

// SetIdleTTL overrides how long a session may sit untouched before it is
// expired. Zero disables expiry.
func (s *Server) SetIdleTTL(ttl time.Duration) {
	s.idleTTL = ttl
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/sessions", s.handleSessions)
	mux.HandleFunc("/v1/sessions/", s.handleSessionByID)
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("stub_listening", logging.F("addr", addr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeResult(w, http.StatusOK, client.HealthResult{OK: true, Version: s.version})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		s.expireIdleLocked()
		out := make(map[string]types.SessionInfo, len(s.sessions))
		for id, sess := range s.sessions {
			out[id] = sess.info
		}
		s.mu.Unlock()
		writeResult(w, http.StatusOK, client.SessionsResult{Sessions: out})
	case http.MethodPost:
		var req client.StartSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
			writeError(w, http.StatusOK, "first and last name are required")
			return
		}
		sess := newSession(req.FirstName, req.LastName, req.Email, req.ProjectName)
		s.mu.Lock()
		s.sessions[sess.info.SessionID] = sess
		s.mu.Unlock()
		s.logger.Info("session_created", logging.F("session_id", sess.info.SessionID))
		writeResult(w, http.StatusCreated, sess.info)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id := parts[0]

	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireIdleLocked()
	sess, ok := s.sessions[id]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session "+id)
		return
	}
	sess.touch()

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			writeResult(w, http.StatusOK, sess.info)
		case http.MethodDelete:
			delete(s.sessions, id)
			s.logger.Info("session_ended", logging.F("session_id", id))
			writeResult(w, http.StatusOK, nil)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	suffix := strings.Join(parts[1:], "/")
	switch {
	case suffix == "parameters":
		s.handleParameters(w, r, sess)
	case suffix == "parameters/uniqueid":
		s.handleParameterField(w, r, sess, func(p *types.Parameter) any {
			return client.UniqueIDResult{UniqueID: p.UniqueID}
		})
	case suffix == "parameters/constrained":
		s.handleParameterField(w, r, sess, func(p *types.Parameter) any {
			return client.ConstrainedResult{Constrained: p.Constrained}
		})
	case suffix == "parameters/value":
		s.handleParameterValue(w, r, sess)
	case suffix == "parameters/attach":
		s.handleAttach(w, r, sess)
	case suffix == "morphology":
		s.handleMorphology(w, r, sess)
	case suffix == "datasets":
		s.handleDatasets(w, r, sess)
	case strings.HasPrefix(suffix, "datasets/"):
		s.handleDatasetByID(w, r, sess, strings.TrimPrefix(suffix, "datasets/"))
	case suffix == "compute":
		s.handleCompute(w, r, sess)
	case suffix == "solver":
		s.handleSolver(w, r, sess)
	case suffix == "bundle":
		s.handleBundle(w, r, sess)
	case suffix == "bundle/new":
		s.handleBundleNew(w, r, sess)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) expireIdleLocked() {
	if s.idleTTL <= 0 {
		return
	}
	now := time.Now()
	for id, sess := range s.sessions {
		if now.Sub(sess.lastActivity) >= s.idleTTL {
			delete(s.sessions, id)
			s.logger.Info("session_expired", logging.F("session_id", id))
		}
	}
}

// The envelope carried by every response. Protocol failures that are not
// about session existence use HTTP 200 with success=false; 404 is reserved
// for unknown sessions.
type envelope struct {
	Success bool    `json:"success"`
	Result  any     `json:"result,omitempty"`
	Error   *string `json:"error,omitempty"`
}

func writeResult(w http.ResponseWriter, status int, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Result: result})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: &message})
}
