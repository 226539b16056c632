package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/circuitbreaker"
)

func newTestServer(t *testing.T, apiKey string, breaker *circuitbreaker.CircuitBreaker) http.Handler {
	t.Helper()
	registry, err := chains.DefaultRegistry(chains.Testnet)
	require.NoError(t, err)
	return NewServer("0", chains.NewResolver(registry), breaker, apiKey, nil).Handler()
}

func serve(h http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, "", nil)

	rec := serve(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestChains(t *testing.T) {
	h := newTestServer(t, "", nil)

	rec := serve(h, http.MethodGet, "/chains", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []ChainStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out)

	byID := make(map[chains.ChainID]ChainStatus)
	for _, c := range out {
		assert.True(t, c.Testnet)
		byID[c.ID] = c
	}
	assert.Equal(t, "solana", byID["solana-devnet"].Category)
	assert.Equal(t, chains.DomainBase, byID["base-sepolia"].Domain)
}

func TestMetricsAuth(t *testing.T) {
	h := newTestServer(t, "secret", nil)

	tests := []struct {
		name     string
		auth     string
		expected int
	}{
		{name: "missing header", expected: http.StatusUnauthorized},
		{name: "wrong scheme", auth: "Basic secret", expected: http.StatusUnauthorized},
		{name: "wrong key", auth: "Bearer nope", expected: http.StatusUnauthorized},
		{name: "valid key", auth: "Bearer secret", expected: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(h, http.MethodGet, "/metrics", tc.auth)
			assert.Equal(t, tc.expected, rec.Code)
		})
	}
}

func TestReadyAndCircuitReset(t *testing.T) {
	breaker := circuitbreaker.NewCircuitBreaker(true, 1, time.Minute, time.Hour, nil)
	h := newTestServer(t, "", breaker)

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/ready", "").Code)

	breaker.RecordFailure()
	require.True(t, breaker.IsOpen())
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, http.MethodGet, "/ready", "").Code)

	assert.Equal(t, http.StatusMethodNotAllowed, serve(h, http.MethodGet, "/circuit/reset", "").Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodPost, "/circuit/reset", "").Code)
	assert.False(t, breaker.IsOpen())
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/ready", "").Code)
}

func TestCircuitResetWithoutBreaker(t *testing.T) {
	h := newTestServer(t, "", nil)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodPost, "/circuit/reset", "").Code)
}
