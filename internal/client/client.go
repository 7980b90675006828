package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aprsa/phoebe-lab/internal/types"
)

const defaultBaseURL = "http://127.0.0.1:8001"

// Client talks to the remote PHOEBE worker service. Every response arrives
// in the { success, result, error } envelope; success=false is surfaced as
// *RemoteError with the server-provided reason passed through unchanged.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Health(ctx context.Context) (*HealthResult, error) {
	var out HealthResult
	if err := c.do(ctx, http.MethodGet, "/health", nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartSession(ctx context.Context, user types.User, projectName string) (*types.SessionInfo, error) {
	req := StartSessionRequest{
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		Timestamp:   user.Timestamp,
		ProjectName: projectName,
	}
	var session types.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", req, false, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) GetSessions(ctx context.Context) (map[string]types.SessionInfo, error) {
	var out SessionsResult
	if err := c.do(ctx, http.MethodGet, "/v1/sessions", nil, false, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// GetSession looks up one session by id. ErrSessionExpired means the server
// no longer knows the id.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*types.SessionInfo, error) {
	var session types.SessionInfo
	if err := c.do(ctx, http.MethodGet, c.sessionPath(sessionID, ""), nil, true, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, c.sessionPath(sessionID, ""), nil, true, nil)
}

func (c *Client) sessionPath(sessionID, suffix string) string {
	path := "/v1/sessions/" + url.PathEscape(strings.TrimSpace(sessionID))
	if suffix != "" {
		path += "/" + suffix
	}
	return path
}

func (c *Client) do(ctx context.Context, method, path string, body any, sessionScoped bool, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	if sessionScoped && resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrSessionExpired, env.errorText(resp.Status))
	}
	if !env.Success {
		return &RemoteError{Status: resp.StatusCode, Message: env.errorText(resp.Status)}
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	return json.Unmarshal(env.Result, out)
}

// envelope is the wire shape shared by every worker-service response.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *string         `json:"error"`
}

func (e envelope) errorText(fallback string) string {
	if e.Error != nil && *e.Error != "" {
		return *e.Error
	}
	return fallback
}
