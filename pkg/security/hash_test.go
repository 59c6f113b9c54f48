package security

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmitterHasherScopes(t *testing.T) {
	h, err := NewSubmitterHasher(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)

	thread := h.ThreadHash("org-1", "thread-1", "user-7")
	topic := h.TopicHash("org-1", "topic-1", "user-7")
	org := h.OrgHash("org-1", "user-7")

	// the same person must not be correlatable across scopes
	require.NotEqual(t, thread, topic)
	require.NotEqual(t, thread, org)
	require.NotEqual(t, topic, org)

	// deterministic within a scope
	require.Equal(t, thread, h.ThreadHash("org-1", "thread-1", "user-7"))

	// and distinct per thread, per user, per org
	require.NotEqual(t, thread, h.ThreadHash("org-1", "thread-2", "user-7"))
	require.NotEqual(t, thread, h.ThreadHash("org-1", "thread-1", "user-8"))
	require.NotEqual(t, thread, h.ThreadHash("org-2", "thread-1", "user-7"))
}

func TestSubmitterHasherSecretLength(t *testing.T) {
	_, err := NewSubmitterHasher([]byte("too short"))
	require.Error(t, err)
}
