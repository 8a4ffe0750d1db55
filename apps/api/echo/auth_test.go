package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/flowtaskhq/flowtask/apps/api/echo"
	testutil "github.com/flowtaskhq/flowtask/tests"
)

func Test_authApi_obtainPair(t *testing.T) {
	f := setup(t)

	testutil.CreateUser(t, f.usrRepo, "hero", "hero@flowtask.dev", "LordMwanga123", false, false)
	naughty := testutil.CreateUser(t, f.usrRepo, "ndog", "ndog@flowtask.dev", "LordMwanga123", false, false)
	deactivate(t, f, naughty.ID)

	login := func(uname, pwd string) []byte {
		return marchallObj(t, echoapi.LoginRequest{Username: uname, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "Empty payload", body: login("", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username": "this field is required",
				"password": "this field is required",
			}),
		},
		{
			name: "Unknown user", body: login("whodis", "LordMwanga123"), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Wrong password", body: login("hero", "wr0ngPassw0rd"), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Deactivated account", body: login("ndog", "LordMwanga123"), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/token"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			f.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Token pair obtained", func(t *testing.T) {
		// login is case-insensitive on the username
		req, rec := newRequest(http.MethodPost, "/api/token", login("Hero", "LordMwanga123"))
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var pair echoapi.TokenPair
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
		assert.NotEmpty(t, pair.Access)
		assert.NotEmpty(t, pair.Refresh)
		assert.NotEqual(t, pair.Access, pair.Refresh)

		// the access token works on a protected endpoint
		req, rec = newAuthRequest(http.MethodGet, "/api/users/me", pair.Access)
		f.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Login with email", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/token", login("hero@flowtask.dev", "LordMwanga123"))
		f.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_authApi_refresh(t *testing.T) {
	f := setup(t)

	student := testutil.CreateUser(t, f.usrRepo, "hero", "hero@flowtask.dev", "LordMwanga123", false, false)
	naughty := testutil.CreateUser(t, f.usrRepo, "ndog", "ndog@flowtask.dev", "LordMwanga123", false, false)
	deactivate(t, f, naughty.ID)

	refresh := func(token string) []byte {
		return marchallObj(t, echoapi.RefreshRequest{Refresh: token})
	}

	tests := []httpTest{
		{
			name: "Empty payload", body: refresh(""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"refresh": "this field is required"}),
		},
		{
			name: "Garbage token", body: refresh("n0t.4.jwt"), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired refresh token"}),
		},
		{
			// an access token cannot be used where a refresh token is expected
			name: "Access token rejected", body: refresh(f.getToken(t, student)), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired refresh token"}),
		},
		{
			name: "Deactivated account", body: refresh(f.getRefreshToken(t, naughty)), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/token/refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			f.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Access token refreshed", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/token/refresh", refresh(f.getRefreshToken(t, student)))
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp echoapi.AccessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Access)

		req, rec = newAuthRequest(http.MethodGet, "/api/users/me", resp.Access)
		f.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_authMiddleware(t *testing.T) {
	f := setup(t)

	student := testutil.CreateUser(t, f.usrRepo, "hero", "hero@flowtask.dev", "LordMwanga123", false, false)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Garbage token rejected", token: "n0t.4.jwt", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			// a refresh token never grants access to protected endpoints
			name: "Refresh token rejected", token: f.getRefreshToken(t, student), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errNotAuthorized),
		},
		{name: "Access token accepted", token: f.getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/api/users/me"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			f.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// deactivate flips a user's active flag directly in the repository.
func deactivate(t *testing.T, f *fixture, id int) {
	t.Helper()
	ctx := context.Background()
	usr, err := f.usrRepo.GetUserByID(ctx, id)
	if err != nil {
		t.Fatalf("deactivate() failed: %v", err)
	}
	usr.IsActive = false
	if _, err = f.usrRepo.UpdateUser(ctx, usr); err != nil {
		t.Fatalf("deactivate() failed: %v", err)
	}
}
