package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"candorbox/pkg/api/handlers"
	"candorbox/pkg/auth"
)

// Handler builds the versioned API router. Org-scoped routes run behind
// the submitter-identity middleware; billing webhooks authenticate at
// the handler instead.
func Handler(d *handlers.Deps) http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()

	orgs := v1.PathPrefix("/orgs").Subrouter()
	orgs.Use(mux.MiddlewareFunc(auth.RequireSubmitter))
	handlers.RegisterOrgs(orgs, d)
	handlers.RegisterFeedback(orgs, d)
	handlers.RegisterSuggestions(orgs, d)

	handlers.RegisterSigning(v1, d)
	handlers.RegisterWebhooks(v1, d)
	return r
}
