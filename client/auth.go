package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/flowtaskhq/flowtask/core/user"
)

// Login authenticates with the API and stores the returned token pair.
// It returns an *AuthError on bad credentials.
func (c *Client) Login(ctx context.Context, username, password string) (user.User, error) {
	res, err := c.send(ctx, http.MethodPost, "/api/token", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return user.User{}, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		if err = apiError(res); err != nil {
			if vErr, ok := err.(*ValidationError); ok {
				return user.User{}, &AuthError{Reason: vErr.Error()}
			}
			return user.User{}, err
		}
		return user.User{}, &AuthError{Reason: "login failed"}
	}

	var pair tokenPair
	if err = json.NewDecoder(res.Body).Decode(&pair); err != nil {
		return user.User{}, &RequestError{Err: errors.Wrap(err, "decoding token pair")}
	}
	if err = c.storage.Set(AccessTokenKey, pair.Access); err != nil {
		return user.User{}, &RequestError{Err: err}
	}
	if err = c.storage.Set(RefreshTokenKey, pair.Refresh); err != nil {
		return user.User{}, &RequestError{Err: err}
	}

	return c.CurrentUser(ctx)
}

// Logout clears the stored tokens and the cached session user.
func (c *Client) Logout(ctx context.Context) error {
	_ = ctx
	if err := c.storage.Delete(AccessTokenKey, RefreshTokenKey); err != nil {
		return &RequestError{Err: err}
	}
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	return nil
}

// CurrentUser returns the session user, fetching it from the API on first
// use and caching it for subsequent calls.
func (c *Client) CurrentUser(ctx context.Context) (user.User, error) {
	c.mu.RLock()
	if c.current != nil {
		usr := *c.current
		c.mu.RUnlock()
		return usr, nil
	}
	c.mu.RUnlock()

	var usr user.User
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &usr); err != nil {
		return user.User{}, err
	}
	c.mu.Lock()
	c.current = &usr
	c.mu.Unlock()
	return usr, nil
}

// IsAuthenticated reports whether a session token is stored.
func (c *Client) IsAuthenticated() bool {
	access, ok := c.storage.Get(AccessTokenKey)
	return ok && access != ""
}
