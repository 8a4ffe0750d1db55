package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/flowtaskhq/flowtask/core/user"
)

// Client talks to the FlowTask API. It attaches the stored access token to
// every request and transparently refreshes an expired session: a 401
// triggers one refresh (shared by all concurrent callers) and a single retry
// of the original request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	storage    TokenStorage

	refreshGroup     singleflight.Group
	onSessionExpired func()

	mu      sync.RWMutex
	current *user.User
}

type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenStorage overrides the default in-memory token storage.
func WithTokenStorage(s TokenStorage) Option {
	return func(c *Client) { c.storage = s }
}

// WithSessionExpiredHook registers a callback invoked once the session is
// torn down after an irrecoverable refresh failure.
func WithSessionExpiredHook(fn func()) Option {
	return func(c *Client) { c.onSessionExpired = fn }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		storage:    NewMemoryStorage(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tokenPair mirrors the POST /api/token response.
type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type accessResponse struct {
	Access string `json:"access"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if access, ok := c.storage.Get(AccessTokenKey); ok && access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}
	return req, nil
}

// do performs the request and decodes a 2xx JSON response into out.
// On a 401 it refreshes the session and retries the original request once.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	res, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}

	if res.StatusCode == http.StatusUnauthorized {
		_ = res.Body.Close()
		if err = c.refreshSession(ctx); err != nil {
			return err
		}
		if res, err = c.send(ctx, method, path, body); err != nil {
			return err
		}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		return apiError(res)
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err = json.NewDecoder(res.Body).Decode(out); err != nil {
		return &RequestError{Err: errors.Wrap(err, "decoding response")}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		// a canceled context abandons the call entirely
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RequestError{Err: err}
	}
	return res, nil
}

// refreshSession exchanges the stored refresh token for a new access token.
// Concurrent callers share a single refresh request. An irrecoverable
// failure tears the session down.
func (c *Client) refreshSession(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		refresh, ok := c.storage.Get(RefreshTokenKey)
		if !ok || refresh == "" {
			return nil, &AuthError{Reason: "no refresh token"}
		}

		req, err := c.newRequest(ctx, http.MethodPost, "/api/token/refresh", map[string]string{"refresh": refresh})
		if err != nil {
			return nil, &RequestError{Err: err}
		}
		req.Header.Del("Authorization")

		res, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &RequestError{Err: err}
		}
		defer func() { _ = res.Body.Close() }()

		if res.StatusCode != http.StatusOK {
			return nil, &AuthError{Reason: fmt.Sprintf("refresh rejected (status %d)", res.StatusCode)}
		}
		var data accessResponse
		if err = json.NewDecoder(res.Body).Decode(&data); err != nil {
			return nil, &RequestError{Err: errors.Wrap(err, "decoding refresh response")}
		}
		if err = c.storage.Set(AccessTokenKey, data.Access); err != nil {
			return nil, &RequestError{Err: err}
		}
		return nil, nil
	})

	if err != nil {
		if _, ok := err.(*AuthError); ok {
			c.teardown()
		}
		return err
	}
	return nil
}

// teardown clears the session after an irrecoverable auth failure.
func (c *Client) teardown() {
	_ = c.storage.Delete(AccessTokenKey, RefreshTokenKey)
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}

// apiError maps an error response to the client error taxonomy.
func apiError(res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))

	var payload map[string]string
	_ = json.Unmarshal(body, &payload)
	message := payload["error"]
	if message == "" && len(payload) == 0 {
		message = strings.TrimSpace(string(body))
	}

	switch res.StatusCode {
	case http.StatusBadRequest:
		if _, ok := payload["error"]; !ok && len(payload) > 0 {
			return &ValidationError{Fields: payload}
		}
		return &ValidationError{Message: message}
	case http.StatusUnauthorized:
		return &AuthError{Reason: message}
	case http.StatusForbidden:
		return &PermissionError{Reason: message}
	case http.StatusNotFound:
		return &NotFoundError{Resource: message}
	default:
		return &RequestError{StatusCode: res.StatusCode}
	}
}
