package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"candorbox/pkg/antigaming"
	"candorbox/pkg/auth"
	"candorbox/pkg/contentguard"
	"candorbox/pkg/models"
	"candorbox/pkg/store"
	"candorbox/pkg/utils"
)

// RegisterSuggestions registers the topic-suggestion pipeline routes.
func RegisterSuggestions(r *mux.Router, d *Deps) {
	r.HandleFunc("/{org}/suggestions", d.createSuggestion).Methods(http.MethodPost)
	r.HandleFunc("/{org}/suggestions", d.listSuggestions).Methods(http.MethodGet)
	r.HandleFunc("/{org}/suggestions/{id}/review", d.reviewSuggestion).Methods(http.MethodPost)
}

// suggestionView hides the supporter hash set; only the cardinality is
// ever exposed.
type suggestionView struct {
	ID             string                  `json:"id"`
	Title          string                  `json:"title"`
	Status         models.SuggestionStatus `json:"status"`
	SupporterCount int                     `json:"supporter_count"`
	CreatedTS      int64                   `json:"created_ts"`
}

func toSuggestionView(s *models.TopicSuggestion) suggestionView {
	return suggestionView{
		ID:             s.ID,
		Title:          s.Title,
		Status:         s.Status,
		SupporterCount: s.SupporterCount(),
		CreatedTS:      s.CreatedTS,
	}
}

func (d *Deps) createSuggestion(w http.ResponseWriter, r *http.Request) {
	submitter := auth.SubmitterIDFromContext(r.Context())
	if submitter == "" {
		utils.JSONError(w, http.StatusUnauthorized, "submitter identity required")
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
		Title string `json:"title"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := contentguard.CheckProhibited(body.Title); err != nil {
		utils.JSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	orgHash := d.Hasher.OrgHash(orgID, submitter)
	s, merged, err := d.Guard.Suggest(orgID, body.Title, orgHash)
	if err != nil {
		switch {
		case errors.Is(err, antigaming.ErrSuggestionCooldown):
			utils.JSONError(w, http.StatusTooManyRequests, err.Error())
		case errors.Is(err, antigaming.ErrTooManyPending):
			utils.JSONError(w, http.StatusConflict, err.Error())
		default:
			utils.JSONError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	status := http.StatusCreated
	if merged {
		status = http.StatusOK
	}
	_ = utils.JSONWrite(w, status, toSuggestionView(s))
}

func (d *Deps) listSuggestions(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["org"]
	status := models.SuggestionStatus(r.URL.Query().Get("status"))
	list, err := store.ListSuggestions(orgID, status)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]suggestionView, 0, len(list))
	for i := range list {
		views = append(views, toSuggestionView(&list[i]))
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"suggestions": views})
}

func (d *Deps) reviewSuggestion(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, "admin") {
		return
	}
	vars := mux.Vars(r)
	orgID, id := vars["org"], vars["id"]

	var body struct {
		Action string `json:"action"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var next models.SuggestionStatus
	switch body.Action {
	case "approve":
		next = models.SuggestionApproved
	case "reject":
		next = models.SuggestionRejected
	default:
		utils.JSONError(w, http.StatusBadRequest, "action must be approve or reject")
		return
	}

	lock := store.SuggestionLock(orgID)
	lock.Lock()
	defer lock.Unlock()

	s, err := store.GetSuggestion(orgID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "suggestion not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.Status = next
	if err := store.SaveSuggestion(s); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, toSuggestionView(s))
}
