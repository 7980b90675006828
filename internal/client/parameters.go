package client

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) GetParameter(ctx context.Context, sessionID, twig string) (*ParameterMeta, error) {
	var meta ParameterMeta
	path := c.sessionPath(sessionID, "parameters") + "?twig=" + url.QueryEscape(twig)
	if err := c.do(ctx, http.MethodGet, path, nil, true, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *Client) GetUniqueID(ctx context.Context, sessionID, twig string) (string, error) {
	var out UniqueIDResult
	path := c.sessionPath(sessionID, "parameters/uniqueid") + "?twig=" + url.QueryEscape(twig)
	if err := c.do(ctx, http.MethodGet, path, nil, true, &out); err != nil {
		return "", err
	}
	return out.UniqueID, nil
}

func (c *Client) IsParameterConstrained(ctx context.Context, sessionID, twig string) (bool, error) {
	var out ConstrainedResult
	path := c.sessionPath(sessionID, "parameters/constrained") + "?twig=" + url.QueryEscape(twig)
	if err := c.do(ctx, http.MethodGet, path, nil, true, &out); err != nil {
		return false, err
	}
	return out.Constrained, nil
}

func (c *Client) GetValue(ctx context.Context, sessionID, twig string) (any, error) {
	var out ValueResult
	path := c.sessionPath(sessionID, "parameters/value") + "?twig=" + url.QueryEscape(twig)
	if err := c.do(ctx, http.MethodGet, path, nil, true, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *Client) SetValue(ctx context.Context, sessionID, twig string, value any) error {
	req := SetValueRequest{Twig: twig, Value: value}
	return c.do(ctx, http.MethodPut, c.sessionPath(sessionID, "parameters/value"), req, true, nil)
}

func (c *Client) AttachParams(ctx context.Context, sessionID string, specs []ParameterSpec) error {
	req := AttachParamsRequest{Parameters: specs}
	return c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "parameters/attach"), req, true, nil)
}

func (c *Client) ChangeMorphology(ctx context.Context, sessionID, morphology string) error {
	req := ChangeMorphologyRequest{Morphology: morphology}
	return c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "morphology"), req, true, nil)
}
