package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/aprsa/phoebe-lab/internal/types"
)

func (c *Client) AddDataset(ctx context.Context, sessionID string, spec types.DatasetSpec) (string, error) {
	var out AddDatasetResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "datasets"), spec, true, &out); err != nil {
		return "", err
	}
	return out.DatasetID, nil
}

func (c *Client) RemoveDataset(ctx context.Context, sessionID, datasetID string) error {
	path := c.sessionPath(sessionID, "datasets/"+url.PathEscape(datasetID))
	return c.do(ctx, http.MethodDelete, path, nil, true, nil)
}

func (c *Client) GetDatasets(ctx context.Context, sessionID string) ([]DatasetInfo, error) {
	var out DatasetsResult
	if err := c.do(ctx, http.MethodGet, c.sessionPath(sessionID, "datasets"), nil, true, &out); err != nil {
		return nil, err
	}
	return out.Datasets, nil
}
