package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wiredm/internal/auth"
	"github.com/vovakirdan/wiredm/internal/config"
	"github.com/vovakirdan/wiredm/internal/core"
	"github.com/vovakirdan/wiredm/internal/log"
	"github.com/vovakirdan/wiredm/internal/metrics"
	"github.com/vovakirdan/wiredm/internal/service/chat"
	"github.com/vovakirdan/wiredm/internal/store/sqlstore"
)

type testEnv struct {
	server *httptest.Server
	broker *core.Broker
	jwt    *auth.JWTConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := sqlstore.NewWithSetup(config.DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	cfg := config.Default()
	cfg.HTTP.RateLimit = 0
	cfg.WS.InboundRPS = 0

	jwtCfg := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	logger := log.Nop()
	broker := core.NewBroker(16, logger, m)
	hub := core.NewHub(broker, core.NewFilter(st, logger, m), logger)

	router := NewRouter(Deps{
		Config:   cfg,
		Auth:     auth.NewService(st, jwtCfg, logger),
		Resolver: auth.NewResolver(jwtCfg),
		Chat:     chat.New(st, broker, logger),
		Hub:      hub,
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	})

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, broker: broker, jwt: jwtCfg}
}

// do sends a JSON request and decodes the JSON response into out when non-nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// signup registers and logs in a user, returning its token.
func (e *testEnv) signup(t *testing.T, username string) string {
	t.Helper()

	status := e.do(t, http.MethodPost, "/api/register", "", RegisterRequest{
		Username:        username,
		Email:           username + "@example.com",
		Password:        "secret",
		ConfirmPassword: "secret",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var login struct {
		Username string `json:"username"`
		Token    string `json:"token"`
	}
	status = e.do(t, http.MethodPost, "/api/login", "", LoginRequest{Username: username, Password: "secret"}, &login)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, username, login.Username)
	require.NotEmpty(t, login.Token)
	return login.Token
}
