package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"candorbox/pkg/antigaming"
	"candorbox/pkg/auth"
	"candorbox/pkg/contentguard"
	"candorbox/pkg/ledger"
	"candorbox/pkg/logger"
	"candorbox/pkg/models"
	"candorbox/pkg/security"
	"candorbox/pkg/store"
	"candorbox/pkg/telemetry"
	"candorbox/pkg/utils"
)

// RegisterFeedback registers topic, thread and submission routes.
func RegisterFeedback(r *mux.Router, d *Deps) {
	r.HandleFunc("/{org}/topics", d.createTopic).Methods(http.MethodPost)
	r.HandleFunc("/{org}/topics/{topic}/threads", d.createThread).Methods(http.MethodPost)
	r.HandleFunc("/{org}/topics/{topic}/threads/{thread}/feedback", d.submitFeedback).Methods(http.MethodPost)
	r.HandleFunc("/{org}/threads/{thread}", d.getThread).Methods(http.MethodGet)
}

func (d *Deps) createTopic(w http.ResponseWriter, r *http.Request) {
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
	if body.Title == "" {
		utils.JSONError(w, http.StatusBadRequest, "title is required")
		return
	}
	t := &models.Topic{
		ID:      uuid.NewString(),
		OrgID:   orgID,
		OwnerID: submitter,
		Title:   body.Title,
	}
	if err := store.SaveTopic(t); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("topic_created", "org", orgID, "topic", t.ID)
	_ = utils.JSONWrite(w, http.StatusCreated, t)
}

func (d *Deps) createThread(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orgID, topicID := vars["org"], vars["topic"]

	org, err := store.GetOrg(orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "org not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	topic, err := store.GetTopic(topicID)
	if err != nil || topic.OrgID != orgID {
		utils.JSONError(w, http.StatusNotFound, "topic not found")
		return
	}

	var body struct {
		KThreshold int `json:"k_threshold"`
	}
	if r.ContentLength > 0 {
		if err := utils.DecodeJSON(r, &body); err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	// the k-threshold is fixed here; it never changes for the life of
	// the thread
	k := body.KThreshold
	if k == 0 {
		k = org.EffectiveKThreshold()
	}
	if k < models.MinKThreshold {
		utils.JSONError(w, http.StatusBadRequest, "k_threshold below the policy floor")
		return
	}

	th := &models.FeedbackThread{
		ID:         uuid.NewString(),
		OrgID:      orgID,
		TopicID:    topicID,
		KThreshold: k,
		Status:     models.ThreadCollecting,
		Moderation: models.ModerationVisible,
	}
	if err := store.SaveThread(th); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("thread_created", "org", orgID, "topic", topicID, "thread", th.ID, "k", k)
	_ = utils.JSONWrite(w, http.StatusCreated, th)
}

// submitFeedback is the full write path: admission gate, content
// policy, anti-gaming rules, sealing, conditional insert, ledger update
// and possible promotion. Order matters: nothing is persisted until
// every gate has passed.
func (d *Deps) submitFeedback(w http.ResponseWriter, r *http.Request) {
	submitter := auth.SubmitterIDFromContext(r.Context())
	if submitter == "" {
		utils.JSONError(w, http.StatusUnauthorized, "submitter identity required")
		return
	}
	vars := mux.Vars(r)
	orgID, topicID, threadID := vars["org"], vars["topic"], vars["thread"]

	_, err := store.GetOrg(orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "org not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	topic, err := store.GetTopic(topicID)
	if err != nil || topic.OrgID != orgID {
		utils.JSONError(w, http.StatusNotFound, "topic not found")
		return
	}
	th, err := store.GetThread(threadID)
	if err != nil || th.TopicID != topicID || th.OrgID != orgID {
		utils.JSONError(w, http.StatusNotFound, "thread not found")
		return
	}

	count, err := store.CountMembers(orgID)
	if err != nil {
		logger.Error("member_count_failed_fail_open", "org", orgID, "err", err)
		count = 0
	}
	dec := d.Admission.Admit(orgID, count)
	if !dec.Allowed {
		telemetry.SubmissionsRejected.WithLabelValues("admission").Inc()
		_ = utils.JSONWrite(w, http.StatusForbidden, dec)
		return
	}

	var body struct {
		Content  string `json:"content"`
		Behavior string `json:"behavior"`
		Impact   string `json:"impact"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Content == "" && body.Behavior == "" && body.Impact == "" {
		utils.JSONError(w, http.StatusBadRequest, "at least one feedback field is required")
		return
	}
	if err := contentguard.ValidateStructured(body.Content, body.Behavior, body.Impact); err != nil {
		telemetry.SubmissionsRejected.WithLabelValues("content").Inc()
		utils.JSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := d.Guard.CheckSelfSubmission(topic, submitter); err != nil {
		telemetry.SubmissionsRejected.WithLabelValues("self_submission").Inc()
		utils.JSONError(w, http.StatusForbidden, err.Error())
		return
	}
	topicHash := d.Hasher.TopicHash(orgID, topicID, submitter)
	if err := d.Guard.CheckDuplicateSubmission(topicID, topicHash); err != nil {
		if errors.Is(err, antigaming.ErrAlreadySubmitted) {
			telemetry.SubmissionsRejected.WithLabelValues("duplicate").Inc()
			utils.JSONError(w, http.StatusConflict, err.Error())
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// residual identifiers that pass validation (urls, card numbers,
	// ip addresses) are scrubbed before sealing
	fields := security.Fields{}
	if body.Content != "" {
		v, _ := contentguard.Scrub(body.Content)
		fields.Content = &v
	}
	if body.Behavior != "" {
		v, _ := contentguard.Scrub(body.Behavior)
		fields.Behavior = &v
	}
	if body.Impact != "" {
		v, _ := contentguard.Scrub(body.Impact)
		fields.Impact = &v
	}

	sealed, err := d.Crypto.EncryptFields(r.Context(), orgID, threadID, fields)
	if err != nil {
		// missing or bad key material fails closed; plaintext is never
		// stored as a fallback
		logger.Error("feedback_seal_failed", "org", orgID, "thread", threadID, "err", err)
		utils.JSONError(w, http.StatusInternalServerError, "failed to store feedback")
		return
	}

	threadHash := d.Hasher.ThreadHash(orgID, threadID, submitter)
	item := &models.FeedbackItem{
		ID:            uuid.NewString(),
		OrgID:         orgID,
		TopicID:       topicID,
		ThreadID:      threadID,
		SubmitterHash: threadHash,
		Ciphertext:    sealed.Ciphertext,
		Nonce:         sealed.Nonce,
		AADHash:       sealed.AADHash,
	}

	lock := store.ThreadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	if err := store.InsertItem(item); err != nil {
		if errors.Is(err, store.ErrConflict) {
			telemetry.SubmissionsRejected.WithLabelValues("duplicate").Inc()
			utils.JSONError(w, http.StatusConflict, antigaming.ErrAlreadySubmitted.Error())
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := store.MarkTopicSubmitter(topicID, topicHash); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	participants, err := ledger.RecordSubmission(threadID, threadHash)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := ledger.MaybePromote(th); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("feedback_submitted", "org", orgID, "thread", threadID, "participants", participants)
	_ = utils.JSONWrite(w, http.StatusCreated, map[string]interface{}{
		"id":     item.ID,
		"thread": threadID,
		"status": th.Status,
	})
}

type feedbackItemView struct {
	Content   string `json:"content,omitempty"`
	Behavior  string `json:"behavior,omitempty"`
	Impact    string `json:"impact,omitempty"`
	CreatedTS int64  `json:"created_ts"`
}

type threadView struct {
	ID               string              `json:"id"`
	TopicID          string              `json:"topic"`
	Status           models.ThreadStatus `json:"status"`
	Visible          bool                `json:"visible"`
	ParticipantCount int                 `json:"participant_count,omitempty"`
	Items            []feedbackItemView  `json:"items,omitempty"`
}

// getThread returns the thread's collection state, and its decrypted
// items only once the live participant count meets the k-threshold.
// Below the threshold nothing about the pool is revealed, not even the
// count.
func (d *Deps) getThread(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orgID, threadID := vars["org"], vars["thread"]

	th, err := store.GetThread(threadID)
	if err != nil || th.OrgID != orgID {
		utils.JSONError(w, http.StatusNotFound, "thread not found")
		return
	}

	visible, err := ledger.IsVisible(th)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if th.Moderation == models.ModerationHidden {
		visible = false
	}

	view := threadView{ID: th.ID, TopicID: th.TopicID, Status: th.Status, Visible: visible}
	if !visible {
		_ = utils.JSONWrite(w, http.StatusOK, view)
		return
	}

	count, err := ledger.ParticipantCount(threadID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	view.ParticipantCount = count

	items, err := store.ListItems(threadID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, it := range items {
		fields, err := d.Crypto.DecryptFields(r.Context(), orgID, threadID, it.Ciphertext, it.Nonce)
		if err != nil {
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		iv := feedbackItemView{CreatedTS: it.CreatedTS}
		if fields.Content != nil {
			iv.Content = *fields.Content
		}
		if fields.Behavior != nil {
			iv.Behavior = *fields.Behavior
		}
		if fields.Impact != nil {
			iv.Impact = *fields.Impact
		}
		view.Items = append(view.Items, iv)
	}
	_ = utils.JSONWrite(w, http.StatusOK, view)
}
