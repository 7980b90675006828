package stub

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aprsa/phoebe-lab/internal/client"
	"github.com/aprsa/phoebe-lab/internal/types"
)

func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	p, err := sess.parameter(strings.TrimSpace(r.URL.Query().Get("twig")))
	if err != nil {
		writeError(w, http.StatusOK, err.Error())
		return
	}
	writeResult(w, http.StatusOK, client.ParameterMeta{
		Twig:        p.Twig,
		UniqueID:    p.UniqueID,
		Kind:        string(p.Kind),
		Value:       p.Value,
		Limits:      p.Limits,
		Choices:     p.Choices,
		Constrained: p.Constrained,
		Description: p.Description,
	})
}

func (s *Server) handleParameterField(w http.ResponseWriter, r *http.Request, sess *session, project func(*types.Parameter) any) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	p, err := sess.parameter(strings.TrimSpace(r.URL.Query().Get("twig")))
	if err != nil {
		writeError(w, http.StatusOK, err.Error())
		return
	}
	writeResult(w, http.StatusOK, project(p))
}

func (s *Server) handleParameterValue(w http.ResponseWriter, r *http.Request, sess *session) {
	switch r.Method {
	case http.MethodGet:
		p, err := sess.parameter(strings.TrimSpace(r.URL.Query().Get("twig")))
		if err != nil {
			writeError(w, http.StatusOK, err.Error())
			return
		}
		writeResult(w, http.StatusOK, client.ValueResult{Value: p.Value})
	case http.MethodPut:
		var req client.SetValueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := sess.setValue(req.Twig, req.Value); err != nil {
			writeError(w, http.StatusOK, err.Error())
			return
		}
		writeResult(w, http.StatusOK, nil)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleAttach(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req client.AttachParamsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := sess.attachParams(req.Parameters); err != nil {
		writeError(w, http.StatusOK, err.Error())
		return
	}
	writeResult(w, http.StatusOK, nil)
}

func (s *Server) handleMorphology(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req client.ChangeMorphologyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := sess.changeMorphology(req.Morphology); err != nil {
		writeError(w, http.StatusOK, err.Error())
		return
	}
	writeResult(w, http.StatusOK, nil)
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request, sess *session) {
	switch r.Method {
	case http.MethodGet:
		writeResult(w, http.StatusOK, client.DatasetsResult{Datasets: sess.datasetInfos()})
	case http.MethodPost:
		var spec types.DatasetSpec
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		id, err := sess.addDataset(spec)
		if err != nil {
			writeError(w, http.StatusOK, err.Error())
			return
		}
		writeResult(w, http.StatusCreated, client.AddDatasetResult{DatasetID: id})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleDatasetByID(w http.ResponseWriter, r *http.Request, sess *session, id string) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := sess.removeDataset(id); err != nil {
		writeError(w, http.StatusOK, err.Error())
		return
	}
	writeResult(w, http.StatusOK, nil)
}

func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req client.ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	writeResult(w, http.StatusOK, sess.compute())
}

func (s *Server) handleSolver(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req client.SolverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	fit, err := sess.solve(req.Twigs, req.Steps)
	if err != nil {
		writeError(w, http.StatusOK, err.Error())
		return
	}
	writeResult(w, http.StatusOK, fit)
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request, sess *session) {
	switch r.Method {
	case http.MethodGet:
		raw, err := sess.saveBundle()
		if err != nil {
			writeError(w, http.StatusOK, err.Error())
			return
		}
		writeResult(w, http.StatusOK, client.BundleResult{Bundle: raw})
	case http.MethodPut:
		var req client.LoadBundleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := sess.loadBundle(req.Bundle); err != nil {
			writeError(w, http.StatusOK, err.Error())
			return
		}
		writeResult(w, http.StatusOK, nil)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleBundleNew(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sess.resetBundle()
	writeResult(w, http.StatusOK, nil)
}
