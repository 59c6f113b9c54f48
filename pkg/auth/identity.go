package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"candorbox/pkg/config"
	"candorbox/pkg/logger"
	"candorbox/pkg/utils"
)

// Role is the resolved caller role for a request.
type Role int

const (
	RoleUnauth Role = iota
	RoleFrontend
	RoleBackend
	RoleAdmin
)

// SecConfig drives authentication, CORS and rate limiting. Shared here
// so limiter.go and gateway.go reference one type.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	BackendKeys    map[string]struct{}
	FrontendKeys   map[string]struct{}
	AdminKeys      map[string]struct{}
}

type ctxSubmitterKey struct{}

// RequireSubmitter verifies the submitter identity headers and injects
// the verified id into the request context. The workspace backend signs
// the member's id with a shared signing key; the raw id never appears
// in stored rows, only its per-scope pseudonym does.
//
// Frontend callers must present X-Submitter-ID plus X-Submitter-Signature.
// Backend and admin callers may pass a bare X-Submitter-ID; presenting a
// signature opts them into verification too.
func RequireSubmitter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Role-Name")
		submitterID := strings.TrimSpace(r.Header.Get("X-Submitter-ID"))
		sig := strings.TrimSpace(r.Header.Get("X-Submitter-Signature"))

		if (role == "backend" || role == "admin") && sig == "" {
			if submitterID != "" {
				r = r.WithContext(context.WithValue(r.Context(), ctxSubmitterKey{}, submitterID))
			}
			next.ServeHTTP(w, r)
			return
		}

		if sig == "" || submitterID == "" {
			logger.Warn("missing_submitter_headers", "path", r.URL.Path, "remote", r.RemoteAddr)
			utils.JSONError(w, http.StatusUnauthorized, "missing submitter identity headers")
			return
		}

		keys := config.GetSigningKeys()
		if len(keys) == 0 {
			logger.Error("no_signing_keys_configured")
			utils.JSONError(w, http.StatusInternalServerError, "server misconfigured: no signing secrets available")
			return
		}

		ok := false
		for k := range keys {
			mac := hmac.New(sha256.New, []byte(k))
			mac.Write([]byte(submitterID))
			expected := hex.EncodeToString(mac.Sum(nil))
			if hmac.Equal([]byte(expected), []byte(sig)) {
				ok = true
				break
			}
		}
		if !ok {
			logger.Warn("invalid_submitter_signature", "path", r.URL.Path)
			utils.JSONError(w, http.StatusUnauthorized, "invalid submitter signature")
			return
		}
		ctx := context.WithValue(r.Context(), ctxSubmitterKey{}, submitterID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SubmitterIDFromContext returns the verified submitter id or "".
func SubmitterIDFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxSubmitterKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// SignSubmitter computes the signature the workspace backend hands to
// its browser clients for a member id.
func SignSubmitter(signingKey, submitterID string) string {
	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(submitterID))
	return hex.EncodeToString(mac.Sum(nil))
}
