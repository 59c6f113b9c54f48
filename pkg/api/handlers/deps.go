package handlers

import (
	"candorbox/pkg/admission"
	"candorbox/pkg/antigaming"
	"candorbox/pkg/security"
)

// Deps carries the wired components handlers dispatch into. Built once
// at startup by the app and shared across requests.
type Deps struct {
	Crypto    *security.FeedbackCrypto
	Keys      *security.KeyStore
	Hasher    *security.SubmitterHasher
	Guard     *antigaming.Guard
	Admission *admission.Controller
}
