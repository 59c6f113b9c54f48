// Package contentguard removes or rejects personally-identifying
// material before any text reaches the encrypted store. Two strategies
// coexist on purpose: Scrub redacts in place and reports what changed
// (modal flows show a before/after review), while Validate rejects
// outright (slash-command flows want a correctable error). Do not
// collapse them.
package contentguard

import (
	"regexp"
	"strings"
)

// Redaction records one replacement Scrub performed, for the caller's
// review step.
type Redaction struct {
	Kind        string `json:"kind"`
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
}

var (
	reSlackUser    = regexp.MustCompile(`<@[A-Z0-9]+(?:\|[^>]*)?>`)
	reSlackGroup   = regexp.MustCompile(`<!subteam\^[A-Z0-9]+(?:\|[^>]*)?>`)
	reSlackChannel = regexp.MustCompile(`<#[A-Z0-9]+(?:\|[^>]*)?>`)
	reSlackBang    = regexp.MustCompile(`<!(?:here|channel|everyone)>`)
	reURL          = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"]+|\bwww\.[^\s<>"]+`)
	reEmail        = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	// obfuscated emails: "bob [at] example [dot] com", "bob at example dot com"
	reEmailObfus = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+\s*(?:\[at\]|\(at\)|\sat\s)\s*[a-z0-9-]+(?:\s*(?:\[dot\]|\(dot\)|\sdot\s|\.)\s*[a-z]{2,})+\b`)
	reIPv4       = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	// loose phone shape; digit count is checked separately
	rePhone = regexp.MustCompile(`\+?\(?\d{1,4}\)?(?:[-.\s]?\d{2,4}){2,4}`)
	// card-like runs allow space/dash separators; Luhn decides
	reCardRun  = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)
	reDigitRun = regexp.MustCompile(`\b\d{6,10}\b`)
	reMention  = regexp.MustCompile(`@[A-Za-z0-9][A-Za-z0-9._-]*`)
)

type scrubRule struct {
	kind        string
	re          *regexp.Regexp
	replacement string
	// keep returns false to leave a match untouched (e.g. a digit run
	// that fails the Luhn check is handled by a later rule instead).
	keep func(match string) bool
}

// Rules run in order; earlier rules consume text so later, looser
// patterns cannot re-match fragments of an already-redacted value.
var scrubRules = []scrubRule{
	{kind: "user_ref", re: reSlackUser, replacement: "[person]"},
	{kind: "group_ref", re: reSlackGroup, replacement: "[group]"},
	{kind: "channel_ref", re: reSlackChannel, replacement: "[channel]"},
	{kind: "broadcast_ref", re: reSlackBang, replacement: "[broadcast]"},
	{kind: "url", re: reURL, replacement: "[link]"},
	{kind: "email", re: reEmail, replacement: "[email]"},
	{kind: "email", re: reEmailObfus, replacement: "[email]"},
	{kind: "ip", re: reIPv4, replacement: "[ip]"},
	{kind: "card", re: reCardRun, replacement: "[card]", keep: luhnValid},
	{kind: "phone", re: rePhone, replacement: "[phone]", keep: phoneDigitCount},
	{kind: "id_number", re: reDigitRun, replacement: "[number]"},
	{kind: "mention", re: reMention, replacement: "[person]"},
}

// Scrub replaces personally-identifying substrings with typed
// placeholders and reports every replacement. It never rejects.
func Scrub(text string) (string, []Redaction) {
	var reds []Redaction
	out := text
	for _, rule := range scrubRules {
		out = rule.re.ReplaceAllStringFunc(out, func(m string) string {
			if rule.keep != nil && !rule.keep(m) {
				return m
			}
			reds = append(reds, Redaction{Kind: rule.kind, Original: m, Replacement: rule.replacement})
			return rule.replacement
		})
	}
	return out, reds
}

// phoneDigitCount filters the loose phone pattern down to plausible
// phone numbers (7 to 15 digits).
func phoneDigitCount(m string) bool {
	n := 0
	for _, r := range m {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n >= 7 && n <= 15
}

// luhnValid reports whether the digit run passes the Luhn checksum.
func luhnValid(m string) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, m)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
