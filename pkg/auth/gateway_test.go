package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"candorbox/pkg/config"
)

func testSecConfig() SecConfig {
	return SecConfig{
		AllowedOrigins: []string{"https://app.example.com"},
		RPS:            100,
		Burst:          100,
		BackendKeys:    map[string]struct{}{"bk-1": {}},
		FrontendKeys:   map[string]struct{}{"fk-1": {}},
		AdminKeys:      map[string]struct{}{"ak-1": {}},
	}
}

func gatewayFor(t *testing.T, cfg SecConfig) http.Handler {
	t.Helper()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Role", r.Header.Get("X-Role-Name"))
		w.WriteHeader(http.StatusOK)
	})
	return AuthenticateRequestMiddleware(cfg)(inner)
}

func TestGatewayRoleResolution(t *testing.T) {
	h := gatewayFor(t, testSecConfig())

	cases := []struct {
		name     string
		header   func(r *http.Request)
		wantCode int
		wantRole string
	}{
		{"bearer_backend", func(r *http.Request) { r.Header.Set("Authorization", "Bearer bk-1") }, 200, "backend"},
		{"x_api_key_backend", func(r *http.Request) { r.Header.Set("X-API-Key", "bk-1") }, 200, "backend"},
		{"admin", func(r *http.Request) { r.Header.Set("Authorization", "Bearer ak-1") }, 200, "admin"},
		{"unknown_key", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, 401, ""},
		{"no_key", func(r *http.Request) {}, 401, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/orgs/org-1", nil)
			tc.header(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tc.wantCode, rec.Code)
			if tc.wantRole != "" {
				require.Equal(t, tc.wantRole, rec.Header().Get("X-Seen-Role"))
			}
		})
	}
}

func TestGatewayProbesBypassAuth(t *testing.T) {
	h := gatewayFor(t, testSecConfig())

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Equal(t, "unauth", rec.Header().Get("X-Seen-Role"), path)
	}
}

func TestGatewayWebhooksBypassKeyAuth(t *testing.T) {
	h := gatewayFor(t, testSecConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/billing", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "webhook", rec.Header().Get("X-Seen-Role"))
}

func TestGatewayFrontendScope(t *testing.T) {
	h := gatewayFor(t, testSecConfig())

	allowed := []struct {
		method, path string
	}{
		{http.MethodPost, "/v1/orgs/org-1/topics/t1/threads/th1/feedback"},
		{http.MethodGet, "/v1/orgs/org-1/threads/th1"},
		{http.MethodPost, "/v1/orgs/org-1/topics"},
		{http.MethodGet, "/v1/orgs/org-1/suggestions"},
		{http.MethodPost, "/v1/orgs/org-1/suggestions"},
		{http.MethodGet, "/v1/orgs/org-1/seats"},
	}
	for _, tc := range allowed {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", "Bearer fk-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "%s %s", tc.method, tc.path)
	}

	denied := []struct {
		method, path string
	}{
		{http.MethodPost, "/v1/orgs"},
		{http.MethodPut, "/v1/orgs/org-1/members"},
		{http.MethodPost, "/v1/orgs/org-1/keys/rotate"},
		{http.MethodPost, "/v1/_sign"},
	}
	for _, tc := range denied {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", "Bearer fk-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestGatewayRateLimit(t *testing.T) {
	cfg := testSecConfig()
	cfg.RPS = 1
	cfg.Burst = 2
	h := gatewayFor(t, cfg)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/orgs/org-1", nil)
		req.Header.Set("Authorization", "Bearer bk-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, http.StatusOK, codes[0])
	require.Equal(t, http.StatusOK, codes[1])
	require.Equal(t, http.StatusTooManyRequests, codes[3], "burst exhausted")
}

func TestGatewayCORSPreflight(t *testing.T) {
	h := gatewayFor(t, testSecConfig())

	req := httptest.NewRequest(http.MethodOptions, "/v1/orgs/org-1/topics", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Submitter-ID")

	// unlisted origins get no cors headers
	req = httptest.NewRequest(http.MethodOptions, "/v1/orgs/org-1/topics", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequireSubmitterSignature(t *testing.T) {
	config.SetRuntime(&config.RuntimeConfig{
		SigningKeys: map[string]struct{}{"bk-1": {}},
	})

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Submitter", SubmitterIDFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
	h := RequireSubmitter(inner)

	// valid signature from the configured key
	req := httptest.NewRequest(http.MethodPost, "/v1/orgs/org-1/topics", nil)
	req.Header.Set("X-Role-Name", "frontend")
	req.Header.Set("X-Submitter-ID", "U123")
	req.Header.Set("X-Submitter-Signature", SignSubmitter("bk-1", "U123"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "U123", rec.Header().Get("X-Seen-Submitter"))

	// wrong key
	req = httptest.NewRequest(http.MethodPost, "/v1/orgs/org-1/topics", nil)
	req.Header.Set("X-Role-Name", "frontend")
	req.Header.Set("X-Submitter-ID", "U123")
	req.Header.Set("X-Submitter-Signature", SignSubmitter("other-key", "U123"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// signature over a different id
	req = httptest.NewRequest(http.MethodPost, "/v1/orgs/org-1/topics", nil)
	req.Header.Set("X-Role-Name", "frontend")
	req.Header.Set("X-Submitter-ID", "U999")
	req.Header.Set("X-Submitter-Signature", SignSubmitter("bk-1", "U123"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// missing headers
	req = httptest.NewRequest(http.MethodPost, "/v1/orgs/org-1/topics", nil)
	req.Header.Set("X-Role-Name", "frontend")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSubmitterBackendBypass(t *testing.T) {
	config.SetRuntime(&config.RuntimeConfig{
		SigningKeys: map[string]struct{}{"bk-1": {}},
	})

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Submitter", SubmitterIDFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
	h := RequireSubmitter(inner)

	// backend role passes a bare id through
	req := httptest.NewRequest(http.MethodPost, "/v1/orgs/org-1/topics", nil)
	req.Header.Set("X-Role-Name", "backend")
	req.Header.Set("X-Submitter-ID", "U123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "U123", rec.Header().Get("X-Seen-Submitter"))

	// presenting a signature opts into verification even for backend
	req = httptest.NewRequest(http.MethodPost, "/v1/orgs/org-1/topics", nil)
	req.Header.Set("X-Role-Name", "backend")
	req.Header.Set("X-Submitter-ID", "U123")
	req.Header.Set("X-Submitter-Signature", "bogus")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
