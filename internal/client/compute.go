package client

import (
	"context"
	"net/http"
)

func (c *Client) RunCompute(ctx context.Context, sessionID string, opts ComputeOptions) (*ComputeResult, error) {
	req := ComputeRequest{Options: opts}
	var out ComputeResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "compute"), req, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RunSolver(ctx context.Context, sessionID string, twigs []string, steps []float64, opts SolverOptions) (*FitResult, error) {
	req := SolverRequest{Twigs: twigs, Steps: steps, Options: opts}
	var out FitResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "solver"), req, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SaveBundle(ctx context.Context, sessionID string) ([]byte, error) {
	var out BundleResult
	if err := c.do(ctx, http.MethodGet, c.sessionPath(sessionID, "bundle"), nil, true, &out); err != nil {
		return nil, err
	}
	return out.Bundle, nil
}

func (c *Client) LoadBundle(ctx context.Context, sessionID string, bundle []byte) error {
	req := LoadBundleRequest{Bundle: bundle}
	return c.do(ctx, http.MethodPut, c.sessionPath(sessionID, "bundle"), req, true, nil)
}

// NewBundle resets the session to a fresh default model.
func (c *Client) NewBundle(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "bundle/new"), nil, true, nil)
}
