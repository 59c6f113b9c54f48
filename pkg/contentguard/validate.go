package contentguard

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MinFieldLength is the minimum rune count for each structured field.
const MinFieldLength = 10

// ErrProhibitedContent wraps every rejection so callers can map the
// whole class to a user-correctable response.
var ErrProhibitedContent = errors.New("prohibited content")

// CheckProhibited rejects text containing @-mentions, emails, phone
// numbers, or raw user references. Unlike Scrub it never modifies; the
// submitter is told what to remove.
func CheckProhibited(text string) error {
	var problems []string
	if reSlackUser.MatchString(text) || reSlackGroup.MatchString(text) || reSlackBang.MatchString(text) {
		problems = append(problems, "user or group references")
	}
	if reEmail.MatchString(text) || reEmailObfus.MatchString(text) {
		problems = append(problems, "email addresses")
	}
	if hasPhone(text) {
		problems = append(problems, "phone numbers")
	}
	if reMention.MatchString(text) {
		problems = append(problems, "@-mentions")
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: remove %s before submitting", ErrProhibitedContent, strings.Join(problems, ", "))
}

func hasPhone(text string) bool {
	for _, m := range rePhone.FindAllString(text, -1) {
		if phoneDigitCount(m) {
			return true
		}
	}
	return false
}

// ValidateStructured enforces the hard-rejection policy on the
// content/behavior/impact fields: prohibited content and minimum
// lengths. Empty fields are allowed; a present field must carry enough
// substance to be useful.
func ValidateStructured(content, behavior, impact string) error {
	var errs []error
	for _, f := range []struct {
		name, val string
	}{
		{"content", content},
		{"behavior", behavior},
		{"impact", impact},
	} {
		if f.val == "" {
			continue
		}
		if utf8.RuneCountInString(strings.TrimSpace(f.val)) < MinFieldLength {
			errs = append(errs, fmt.Errorf("%s must be at least %d characters", f.name, MinFieldLength))
		}
		if err := CheckProhibited(f.val); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
		}
	}
	return errors.Join(errs...)
}
