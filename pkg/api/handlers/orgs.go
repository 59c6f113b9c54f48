package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"candorbox/pkg/logger"
	"candorbox/pkg/models"
	"candorbox/pkg/security"
	"candorbox/pkg/store"
	"candorbox/pkg/utils"
)

// RegisterOrgs registers organization lifecycle, member directory, seat
// status and key-rotation routes.
func RegisterOrgs(r *mux.Router, d *Deps) {
	r.HandleFunc("", d.createOrg).Methods(http.MethodPost)
	r.HandleFunc("/{org}", d.getOrg).Methods(http.MethodGet)
	r.HandleFunc("/{org}/members", d.syncMembers).Methods(http.MethodPut)
	r.HandleFunc("/{org}/seats", d.seatStatus).Methods(http.MethodGet)
	r.HandleFunc("/{org}/keys/rotate", d.rotateOrgKey).Methods(http.MethodPost)
}

func requireRole(w http.ResponseWriter, r *http.Request, roles ...string) bool {
	got := r.Header.Get("X-Role-Name")
	for _, want := range roles {
		if got == want {
			return true
		}
	}
	utils.JSONError(w, http.StatusForbidden, "forbidden")
	logger.Warn("request_forbidden", "reason", "role_not_allowed", "role", got, "path", r.URL.Path)
	return false
}

func (d *Deps) createOrg(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, "backend", "admin") {
		return
	}
	var body struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		KThreshold int    `json:"k_threshold"`
		SeatCap    int    `json:"seat_cap"`
		TrialDays  int    `json:"trial_days"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	org := &models.Organization{
		ID:            body.ID,
		Name:          body.Name,
		KThreshold:    body.KThreshold,
		SeatCap:       body.SeatCap,
		BillingStatus: models.StatusInstalledNoCheckout,
	}
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	if org.KThreshold < models.MinKThreshold {
		org.KThreshold = models.MinKThreshold
	}
	if body.TrialDays > 0 {
		org.BillingStatus = models.StatusTrialing
		org.TrialEndsTS = time.Now().UTC().Add(time.Duration(body.TrialDays) * 24 * time.Hour).UnixNano()
	}
	if err := store.SaveOrg(org); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("org_created", "org", org.ID, "status", string(org.BillingStatus))
	_ = utils.JSONWrite(w, http.StatusCreated, org)
}

func (d *Deps) getOrg(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, "backend", "admin") {
		return
	}
	org, err := store.GetOrg(mux.Vars(r)["org"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "org not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, org)
}

// syncMembers replaces the org's eligible-member directory. The
// workspace backend pushes the full roster; the resulting count is what
// seat-cap admission runs on.
func (d *Deps) syncMembers(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, "backend", "admin") {
		return
	}
	orgID := mux.Vars(r)["org"]
	if _, err := store.GetOrg(orgID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "org not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var body struct {
		UserIDs []string `json:"user_ids"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	count, err := store.SyncMembers(orgID, body.UserIDs)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("members_synced", "org", orgID, "count", count)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]int{"count": count})
}

// seatStatus returns the read-only seat-cap summary. Computation errors
// fail open with an ok status so a storage hiccup never renders a
// blocking banner.
func (d *Deps) seatStatus(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["org"]
	org, err := store.GetOrg(orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "org not found")
			return
		}
		logger.Error("seat_status_load_failed_fail_open", "org", orgID, "err", err)
		_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	count, err := store.CountMembers(orgID)
	if err != nil {
		logger.Error("seat_status_count_failed_fail_open", "org", orgID, "err", err)
		_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, d.Admission.SeatStatusFor(org, count))
}

func (d *Deps) rotateOrgKey(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, "admin") {
		return
	}
	orgID := mux.Vars(r)["org"]
	if err := d.Keys.RotateDEK(r.Context(), orgID); err != nil {
		switch {
		case errors.Is(err, security.ErrNoNextKey):
			utils.JSONError(w, http.StatusConflict, "no newer master key configured")
		case errors.Is(err, security.ErrOrgKeyMissing):
			utils.JSONError(w, http.StatusNotFound, "org has no data key yet")
		default:
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "rotated"})
}
