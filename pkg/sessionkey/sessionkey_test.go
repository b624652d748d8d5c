package sessionkey

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewProducesValidKeys(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		key, err := New()
		require.NoError(t, err)
		require.True(t, Valid(key), "generated key %q should be valid", key)
		require.Equal(t, strings.ToLower(key), key)

		_, dup := seen[key]
		require.False(t, dup, "duplicate key %q", key)
		seen[key] = struct{}{}
	}
}

func TestNewAtEmbedsTimestampPrefix(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	key, err := NewAt(at)
	require.NoError(t, err)

	prefix := strconv.FormatInt(at.UnixMilli(), 36)
	require.True(t, strings.HasPrefix(key, prefix))
	require.Len(t, key, len(prefix)+suffixLength)
}

func TestValid(t *testing.T) {
	require.False(t, Valid(""))
	require.False(t, Valid("short"))
	require.False(t, Valid(strings.Repeat("a", MaxLength+1)))
	require.False(t, Valid("UPPERCASEUPPERCASE"))
	require.False(t, Valid("has-punctuation!!"))
	require.True(t, Valid(strings.Repeat("a1", 8)))
}
