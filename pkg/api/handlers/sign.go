package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"candorbox/pkg/auth"
	"candorbox/pkg/logger"
	"candorbox/pkg/utils"
)

// RegisterSigning registers the submitter-signature endpoint. Protected
// by the gateway middleware (backend API keys); the caller's own API key
// is the signing secret.
func RegisterSigning(r *mux.Router, d *Deps) {
	r.HandleFunc("/_sign", signHandler).Methods(http.MethodPost)
}

// signHandler issues the HMAC the workspace backend hands to its browser
// clients. Only backend roles may request signatures.
func signHandler(w http.ResponseWriter, r *http.Request) {
	role := r.Header.Get("X-Role-Name")
	if role != "backend" {
		logger.Warn("sign_forbidden", "role", role, "remote", r.RemoteAddr)
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}

	a := r.Header.Get("Authorization")
	var key string
	if strings.HasPrefix(strings.ToLower(a), "bearer ") {
		key = strings.TrimSpace(a[7:])
	}
	if key == "" {
		key = r.Header.Get("X-API-Key")
	}
	if key == "" {
		utils.JSONError(w, http.StatusUnauthorized, "missing api key")
		return
	}

	var payload struct {
		SubmitterID string `json:"submitter_id"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil || payload.SubmitterID == "" {
		utils.JSONError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	sig := auth.SignSubmitter(key, payload.SubmitterID)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{
		"submitter_id": payload.SubmitterID,
		"signature":    sig,
	})
}
