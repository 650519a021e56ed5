package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mbd888/botdesk/internal/circuitbreaker"
)

const breakerKey = "botdesk_api"

// Config holds the configuration for connecting to a botdesk server.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
	UserID string // Identity sent as X-User-ID
}

// BotdeskClient is a pure HTTP client for the botdesk session API.
type BotdeskClient struct {
	cfg        Config
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
}

// NewBotdeskClient creates a new client for the botdesk API.
func NewBotdeskClient(cfg Config) *BotdeskClient {
	return &BotdeskClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: circuitbreaker.New(5, 30*time.Second),
	}
}

// APIError is an error response from the server.
type APIError struct {
	Status   int    `json:"-"`
	Code     string `json:"error"`
	Message  string `json:"message"`
	Resource string `json:"resource,omitempty"`
	Used     *int   `json:"used,omitempty"`
	Limit    *int   `json:"limit,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d, %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

// doRequest makes an HTTP request to the server and returns the response body.
// Repeated server-side failures open the circuit so tools fail fast.
func (c *BotdeskClient) doRequest(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.breaker.Do(breakerKey, func() error {
		var err error
		out, err = c.send(ctx, method, path, body)
		return err
	}, isUpstreamFailure)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, fmt.Errorf("botdesk API unavailable, retry later: %w", err)
	}
	return out, err
}

// isUpstreamFailure counts transport errors and 5xx responses. Client
// errors such as quota denials say nothing about server health.
func isUpstreamFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return true
}

func (c *BotdeskClient) send(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("X-User-ID", c.cfg.UserID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
			apiErr.Code = ""
			apiErr.Message = string(respBody)
		}
		return nil, apiErr
	}

	return json.RawMessage(respBody), nil
}

// GetSession returns the caller's full session snapshot.
func (c *BotdeskClient) GetSession(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/session", nil)
}

// ListBots returns every bot the caller owns.
func (c *BotdeskClient) ListBots(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/session/bots", nil)
}

// CreateBot creates a bot and makes it active.
func (c *BotdeskClient) CreateBot(ctx context.Context, name, welcome, tone string) (json.RawMessage, error) {
	body := map[string]string{"name": name}
	if welcome != "" {
		body["welcomeMessage"] = welcome
	}
	if tone != "" {
		body["tone"] = tone
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/session/bots", body)
}

// SwitchBot makes botID the active bot.
func (c *BotdeskClient) SwitchBot(ctx context.Context, botID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/session/bots/"+url.PathEscape(botID)+"/activate", nil)
}

// UpdateBot patches botID, or the active bot when botID is empty.
// Only non-empty fields are sent.
func (c *BotdeskClient) UpdateBot(ctx context.Context, botID, name, welcome, tone string) (json.RawMessage, error) {
	body := map[string]string{}
	if name != "" {
		body["name"] = name
	}
	if welcome != "" {
		body["welcomeMessage"] = welcome
	}
	if tone != "" {
		body["tone"] = tone
	}
	path := "/v1/session/bot"
	if botID != "" {
		path = "/v1/session/bots/" + url.PathEscape(botID)
	}
	return c.doRequest(ctx, http.MethodPatch, path, body)
}

// DeleteBot removes botID.
func (c *BotdeskClient) DeleteBot(ctx context.Context, botID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodDelete, "/v1/session/bots/"+url.PathEscape(botID), nil)
}

// SendMessage sends text to the active bot.
func (c *BotdeskClient) SendMessage(ctx context.Context, text string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/session/messages", map[string]string{"text": text})
}

// AddPages records count newly trained pages.
func (c *BotdeskClient) AddPages(ctx context.Context, count int) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/session/pages", map[string]int{"count": count})
}

// GetUsage returns the used/limit report per resource.
func (c *BotdeskClient) GetUsage(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/session/usage", nil)
}
