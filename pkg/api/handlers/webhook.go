package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"candorbox/pkg/admission"
	"candorbox/pkg/logger"
	"candorbox/pkg/utils"
)

// RegisterWebhooks registers the billing event intake.
func RegisterWebhooks(r *mux.Router, d *Deps) {
	r.HandleFunc("/webhooks/billing", d.billingWebhook).Methods(http.MethodPost)
}

// billingWebhook accepts payment-provider events. Delivery is at least
// once, so the 200 covers replays too; the provider must not keep
// retrying an event we have already recorded.
func (d *Deps) billingWebhook(w http.ResponseWriter, r *http.Request) {
	var ev admission.BillingEvent
	if err := utils.DecodeJSON(r, &ev); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := d.Admission.ApplyBillingEvent(ev); err != nil {
		if errors.Is(err, admission.ErrUnknownOrg) {
			utils.JSONError(w, http.StatusNotFound, err.Error())
			return
		}
		logger.Error("billing_webhook_failed", "event", ev.ID, "err", err)
		utils.JSONError(w, http.StatusInternalServerError, "failed to process event")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}
