package contentguard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrubTable(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		kind string
	}{
		{"slack_user", "talk to <@U12345> about it", "talk to [person] about it", "user_ref"},
		{"slack_user_label", "<@U12345|dave> said so", "[person] said so", "user_ref"},
		{"slack_group", "ping <!subteam^S999|leads>", "ping [group]", "group_ref"},
		{"slack_channel", "posted in <#C123|general>", "posted in [channel]", "channel_ref"},
		{"slack_broadcast", "used <!here> again", "used [broadcast] again", "broadcast_ref"},
		{"url", "see https://internal.example.com/doc?id=3 for details", "see [link] for details", "url"},
		{"www_url", "on www.example.com somewhere", "on [link] somewhere", "url"},
		{"email", "mail bob@example.com please", "mail [email] please", "email"},
		{"email_obfuscated", "reach bob [at] example [dot] com", "reach [email]", "email"},
		{"ip", "box at 10.0.0.12 crashed", "box at [ip] crashed", "ip"},
		{"card_luhn", "card 4111 1111 1111 1111 was used", "card [card] was used", "card"},
		{"phone", "call +1 555-867-5309 now", "call [phone] now", "phone"},
		{"id_number", "badge 483920 was scanned", "badge [number] was scanned", "id_number"},
		{"mention", "ask @dana.k about it", "ask [person] about it", "mention"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, reds := Scrub(tc.in)
			assert.Equal(t, tc.want, out)
			require.NotEmpty(t, reds)
			assert.Equal(t, tc.kind, reds[0].Kind)
		})
	}
}

func TestScrubCleanTextUntouched(t *testing.T) {
	in := "the quarterly planning meeting ran long and decisions were unclear"
	out, reds := Scrub(in)
	assert.Equal(t, in, out)
	assert.Empty(t, reds)
}

func TestScrubNonLuhnDigitsNotCard(t *testing.T) {
	// 16 digits failing the Luhn check must not be redacted as a card
	out, reds := Scrub("ref 1234 5678 9012 3456 here")
	assert.NotContains(t, out, "[card]")
	for _, r := range reds {
		assert.NotEqual(t, "card", r.Kind)
	}
}

func TestScrubReportsOriginals(t *testing.T) {
	_, reds := Scrub("mail bob@example.com or visit https://x.example")
	require.Len(t, reds, 2)
	kinds := []string{reds[0].Kind, reds[1].Kind}
	assert.Contains(t, kinds, "email")
	assert.Contains(t, kinds, "url")
	for _, r := range reds {
		assert.NotEmpty(t, r.Original)
	}
}

func TestCheckProhibited(t *testing.T) {
	require.NoError(t, CheckProhibited("the deadline slipped twice this quarter"))

	err := CheckProhibited("ask <@U123> or mail bob@example.com")
	require.ErrorIs(t, err, ErrProhibitedContent)
	assert.Contains(t, err.Error(), "user or group references")
	assert.Contains(t, err.Error(), "email addresses")

	require.ErrorIs(t, CheckProhibited("call 555-867-5309"), ErrProhibitedContent)
	require.ErrorIs(t, CheckProhibited("ping @sam about it"), ErrProhibitedContent)
}

func TestValidateStructured(t *testing.T) {
	require.NoError(t, ValidateStructured(
		"during the sprint review last week",
		"the demo was skipped without notice",
		"stakeholders lost track of progress",
	))

	// empty fields are allowed
	require.NoError(t, ValidateStructured("", "the demo was skipped without notice", ""))

	err := ValidateStructured("too short", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content must be at least")

	err = ValidateStructured("", "email bob@example.com about this", "")
	require.ErrorIs(t, err, ErrProhibitedContent)

	// both problems surface together
	err = ValidateStructured("short", "ping @sam and tell them everything", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content must be at least")
	assert.Contains(t, err.Error(), "behavior")
}

func TestScrubURLBeforeMention(t *testing.T) {
	// rule order: the url is consumed whole, the @ inside it must not
	// leave a stray mention redaction
	out, _ := Scrub("see https://example.com/@profile/page")
	assert.Equal(t, "see [link]", out)
	assert.False(t, strings.Contains(out, "[person]"))
}
