package client

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devilmonastery/hrconsole/internal/storage"
	"github.com/devilmonastery/hrconsole/internal/tenant"
)

// testAPI is an API server reachable under any tenant host name
type testAPI struct {
	srv      *httptest.Server
	calls    atomic.Int32
	endpoint Endpoint
	http     *http.Client
}

func newTestAPI(t *testing.T, handler http.HandlerFunc) *testAPI {
	t.Helper()

	api := &testAPI{}
	api.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(api.srv.Close)

	_, port, _ := net.SplitHostPort(api.srv.Listener.Addr().String())
	p, _ := strconv.Atoi(port)
	api.endpoint = Endpoint{Scheme: "http", Host: "api.test", Port: p}
	api.http = dialingTo(api.srv.Listener.Addr().String())
	return api
}

// dialingTo returns a client that sends every connection to addr, so
// tenant host names need no DNS
func dialingTo(addr string) *http.Client {
	return &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestRefresh_Success(t *testing.T) {
	var gotHost, gotPath, gotMethod, gotContentType string
	var gotBody map[string]string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotHost, gotPath, gotMethod = r.Host, r.URL.Path, r.Method
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusOK, `{"accessToken":"A","refreshToken":"B","expires_in":3600}`)
	})

	store := storage.NewMemoryStore(nil)
	rc := NewRefreshClient(api.endpoint, store, api.http)

	creds, err := rc.Refresh(context.Background(), "R0", "acme")
	require.NoError(t, err)
	assert.Equal(t, &Credentials{AccessToken: "A", RefreshToken: "B", ExpiresIn: 3600}, creds)
	assert.Equal(t, map[string]string{
		storage.KeyAccessToken:  "A",
		storage.KeyRefreshToken: "B",
	}, store.Snapshot())

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/token/pair", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, map[string]string{"refresh": "R0"}, gotBody)
	assert.Equal(t, "acme.api.test:"+strconv.Itoa(api.endpoint.Port), gotHost)
}

func TestRefresh_WithoutRotatedRefreshToken(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"accessToken":"A"}`)
	})

	store := storage.NewMemoryStore(map[string]string{
		storage.KeyAccessToken:  "old-access",
		storage.KeyRefreshToken: "prior-refresh",
	})
	rc := NewRefreshClient(api.endpoint, store, api.http)

	creds, err := rc.Refresh(context.Background(), "prior-refresh", "acme")
	require.NoError(t, err)
	assert.Equal(t, "A", creds.AccessToken)
	assert.Empty(t, creds.RefreshToken)
	assert.Zero(t, creds.ExpiresIn)

	assert.Equal(t, map[string]string{
		storage.KeyAccessToken:  "A",
		storage.KeyRefreshToken: "prior-refresh",
	}, store.Snapshot())
}

func TestRefresh_ServerRejection(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
	}{
		{
			name:        "detail provided",
			status:      http.StatusUnauthorized,
			body:        `{"error":"invalid_grant","detail":"Refresh token expired"}`,
			wantMessage: "Refresh token expired",
			wantCode:    "invalid_grant",
		},
		{
			name:        "error only",
			status:      http.StatusBadRequest,
			body:        `{"error":"invalid_request"}`,
			wantMessage: "invalid_request",
			wantCode:    "invalid_request",
		},
		{
			name:        "unparsable body",
			status:      http.StatusInternalServerError,
			body:        `<html>oops</html>`,
			wantMessage: "token refresh failed with status 500",
		},
		{
			name:        "empty object",
			status:      http.StatusForbidden,
			body:        `{}`,
			wantMessage: "token refresh failed with status 403",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			seed := map[string]string{
				storage.KeyAccessToken:  "old-access",
				storage.KeyRefreshToken: "old-refresh",
			}
			store := storage.NewMemoryStore(seed)
			rc := NewRefreshClient(api.endpoint, store, api.http)

			creds, err := rc.Refresh(context.Background(), "old-refresh", "acme")
			assert.Nil(t, creds)
			require.ErrorIs(t, err, ErrRefreshFailed)
			assert.NotErrorIs(t, err, ErrMalformedResponse)
			assert.EqualError(t, err, tt.wantMessage)

			var re *RefreshError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.status, re.StatusCode)
			assert.Equal(t, tt.wantCode, re.Code)

			assert.Equal(t, seed, store.Snapshot())
		})
	}
}

func TestRefresh_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.Listener.Addr().String()
	srv.Close()

	seed := map[string]string{storage.KeyRefreshToken: "R"}
	store := storage.NewMemoryStore(seed)
	rc := NewRefreshClient(Endpoint{Host: "api.test", Port: 8000}, store, dialingTo(addr))

	_, err := rc.Refresh(context.Background(), "R", "acme")
	require.ErrorIs(t, err, ErrRefreshFailed)

	var re *RefreshError
	require.ErrorAs(t, err, &re)
	assert.Zero(t, re.StatusCode)
	assert.NotEmpty(t, re.Message)
	assert.Error(t, re.Unwrap())

	assert.Equal(t, seed, store.Snapshot())
}

func TestRefresh_MalformedSuccessBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing accessToken", body: `{"refreshToken":"B","expires_in":3600}`},
		{name: "empty accessToken", body: `{"accessToken":""}`},
		{name: "not JSON", body: `ok`},
		{name: "wrong type", body: `{"accessToken":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, tt.body)
			})

			seed := map[string]string{storage.KeyRefreshToken: "R"}
			store := storage.NewMemoryStore(seed)
			rc := NewRefreshClient(api.endpoint, store, api.http)

			_, err := rc.Refresh(context.Background(), "R", "acme")
			require.ErrorIs(t, err, ErrMalformedResponse)
			assert.NotErrorIs(t, err, ErrRefreshFailed)
			assert.Equal(t, seed, store.Snapshot())
		})
	}
}

func TestRefresh_LastWriteWins(t *testing.T) {
	responses := []string{
		`{"accessToken":"A1","refreshToken":"B1","expires_in":60}`,
		`{"accessToken":"A2","refreshToken":"B2","expires_in":120}`,
	}
	var n atomic.Int32
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, responses[n.Add(1)-1])
	})

	store := storage.NewMemoryStore(nil)
	rc := NewRefreshClient(api.endpoint, store, api.http)

	_, err := rc.Refresh(context.Background(), "R0", "acme")
	require.NoError(t, err)
	_, err = rc.Refresh(context.Background(), "B1", "acme")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		storage.KeyAccessToken:  "A2",
		storage.KeyRefreshToken: "B2",
	}, store.Snapshot())
}

func TestRefresh_Preconditions(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"accessToken":"A"}`)
	})
	store := storage.NewMemoryStore(nil)
	rc := NewRefreshClient(api.endpoint, store, api.http)
	ctx := context.Background()

	_, err := rc.Refresh(ctx, "", "acme")
	assert.ErrorIs(t, err, ErrMissingRefreshToken)

	_, err = rc.Refresh(ctx, "R", "")
	assert.ErrorIs(t, err, ErrTenantRequired)

	_, err = rc.Refresh(ctx, "R", "evil.com/x")
	assert.ErrorIs(t, err, tenant.ErrInvalidTenant)

	assert.Zero(t, api.calls.Load(), "no request may be sent when preconditions fail")
	assert.Empty(t, store.Snapshot())
}

func TestRefresh_NullTenantFallsBackToBareHost(t *testing.T) {
	var gotHost string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
		writeJSON(w, http.StatusOK, `{"accessToken":"A"}`)
	})
	ep := api.endpoint
	ep.AllowNullTenant = true

	rc := NewRefreshClient(ep, storage.NewMemoryStore(nil), api.http)
	_, err := rc.Refresh(context.Background(), "R", "")
	require.NoError(t, err)
	assert.Equal(t, "api.test:"+strconv.Itoa(ep.Port), gotHost)
}

func TestRefresh_CancelledContext(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"accessToken":"A"}`)
	})
	store := storage.NewMemoryStore(nil)
	rc := NewRefreshClient(api.endpoint, store, api.http)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rc.Refresh(ctx, "R", "acme")
	require.ErrorIs(t, err, ErrRefreshFailed)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, store.Snapshot())
}

type failingStore struct {
	storage.Store
}

func (failingStore) SetMany(context.Context, map[string]string) error {
	return errors.New("disk full")
}

func TestRefresh_StoreFailure(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"accessToken":"A"}`)
	})
	rc := NewRefreshClient(api.endpoint, failingStore{storage.NewMemoryStore(nil)}, api.http)

	creds, err := rc.Refresh(context.Background(), "R", "acme")
	assert.Nil(t, creds)
	assert.ErrorContains(t, err, "failed to persist credentials")
}
