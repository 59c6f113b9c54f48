package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCrypto(t *testing.T) *FeedbackCrypto {
	t.Helper()
	ks := newTestKeyStore(t, "v1")
	cache := NewDEKCache(ks, time.Hour, nil)
	ks.OnInvalidate(cache.Invalidate)
	return NewFeedbackCrypto(ks, cache)
}

func strptr(s string) *string { return &s }

func TestEncryptDecryptFields(t *testing.T) {
	openTestStore(t)
	fc := newTestCrypto(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		fields Fields
	}{
		{"all", Fields{Content: strptr("what happened in the meeting"), Behavior: strptr("interrupted repeatedly"), Impact: strptr("others stopped contributing")}},
		{"content_only", Fields{Content: strptr("just some general feedback text")}},
		{"behavior_impact", Fields{Behavior: strptr("arrives unprepared"), Impact: strptr("meetings run long")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sealed, err := fc.EncryptFields(ctx, "org-1", "thread-1", tc.fields)
			require.NoError(t, err)
			require.NotEmpty(t, sealed.Ciphertext)
			require.NotEmpty(t, sealed.Nonce)
			require.Len(t, sealed.AADHash, 64)

			got, err := fc.DecryptFields(ctx, "org-1", "thread-1", sealed.Ciphertext, sealed.Nonce)
			require.NoError(t, err)
			require.Equal(t, tc.fields, got)
		})
	}
}

func TestDecryptFieldsWrongThreadFailsSoft(t *testing.T) {
	openTestStore(t)
	fc := newTestCrypto(t)
	ctx := context.Background()

	sealed, err := fc.EncryptFields(ctx, "org-1", "thread-1", Fields{Content: strptr("bound to thread-1")})
	require.NoError(t, err)

	// soft path: zero fields, no error, for legacy readers
	got, err := fc.DecryptFields(ctx, "org-1", "thread-2", sealed.Ciphertext, sealed.Nonce)
	require.NoError(t, err)
	require.Equal(t, Fields{}, got)

	// strict path surfaces the authentication failure
	_, err = fc.DecryptFieldsStrict(ctx, "org-1", "thread-2", sealed.Ciphertext, sealed.Nonce)
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestDecryptFieldsTamperFailsSoft(t *testing.T) {
	openTestStore(t)
	fc := newTestCrypto(t)
	ctx := context.Background()

	sealed, err := fc.EncryptFields(ctx, "org-1", "thread-1", Fields{Content: strptr("original words here")})
	require.NoError(t, err)
	sealed.Ciphertext[0] ^= 0xff

	got, err := fc.DecryptFields(ctx, "org-1", "thread-1", sealed.Ciphertext, sealed.Nonce)
	require.NoError(t, err)
	require.Equal(t, Fields{}, got)
}

func TestDecryptFieldsNeverEncryptedRow(t *testing.T) {
	openTestStore(t)
	fc := newTestCrypto(t)

	// rows from before the encryption rollout carry neither ciphertext
	// nor nonce; both paths treat that as legitimate empty fields
	got, err := fc.DecryptFields(context.Background(), "org-1", "thread-1", nil, nil)
	require.NoError(t, err)
	require.Equal(t, Fields{}, got)

	got, err = fc.DecryptFieldsStrict(context.Background(), "org-1", "thread-1", nil, nil)
	require.NoError(t, err)
	require.Equal(t, Fields{}, got)
}

func TestEncryptFieldsProvisionsLazily(t *testing.T) {
	openTestStore(t)
	fc := newTestCrypto(t)

	_, err := fc.EncryptFields(context.Background(), "org-new", "thread-1", Fields{Content: strptr("first ever submission")})
	require.NoError(t, err)

	// the wrapped DEK row now exists
	dek, err := fc.keys.LoadDEK(context.Background(), "org-new")
	require.NoError(t, err)
	require.Len(t, dek, 32)
}
