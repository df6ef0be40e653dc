package http

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

	"github.com/aretw0/faultline/pkg/domain"
	"github.com/aretw0/faultline/pkg/ports"
)

// Client implements ports.FlagStore against a remote flag admin API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var (
	_ ports.FlagStore   = (*Client)(nil)
	_ ports.FlagToggler = (*Client)(nil)
)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient creates a client for the API served at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches one flag.
func (c *Client) Get(ctx context.Context, id domain.FlagName) (domain.Flag, error) {
	var flag domain.Flag
	err := c.do(ctx, http.MethodGet, "/v1/flags/"+url.PathEscape(id), nil, &flag)
	return flag, err
}

// List fetches every flag.
func (c *Client) List(ctx context.Context) ([]domain.Flag, error) {
	var flags []domain.Flag
	if err := c.do(ctx, http.MethodGet, "/v1/flags", nil, &flags); err != nil {
		return nil, err
	}
	return flags, nil
}

// Put toggles an existing remote flag. Only Enabled is sent: the remote
// service owns every other field and does not create flags.
func (c *Client) Put(ctx context.Context, flag domain.Flag) error {
	body, err := json.Marshal(map[string]bool{"enabled": flag.Enabled})
	if err != nil {
		return fmt.Errorf("failed to marshal flag update: %w", err)
	}
	return c.do(ctx, http.MethodPut, "/v1/flags/"+url.PathEscape(flag.ID), body, nil)
}

// SetEnabled toggles a remote flag in a single request; the remote service
// applies it atomically and answers with the stored flag.
func (c *Client) SetEnabled(ctx context.Context, id domain.FlagName, enabled bool) (domain.Flag, error) {
	body, err := json.Marshal(map[string]bool{"enabled": enabled})
	if err != nil {
		return domain.Flag{}, fmt.Errorf("failed to marshal flag update: %w", err)
	}
	var flag domain.Flag
	if err := c.do(ctx, http.MethodPut, "/v1/flags/"+url.PathEscape(id), body, &flag); err != nil {
		return domain.Flag{}, err
	}
	return flag, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("flag service request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.ErrFlagNotFound
	case http.StatusForbidden:
		return domain.ErrFlagNotModifiable
	default:
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("flag service returned %d: %s", resp.StatusCode, e.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode flag service response: %w", err)
	}
	return nil
}
