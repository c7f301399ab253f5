package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueIsUniqueAndExpiresInADay(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	iss := NewIssuer(0, func() time.Time { return now })

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok, err := iss.Issue()
		require.NoError(t, err)
		assert.Equal(t, now.Add(24*time.Hour), tok.ExpiresAt)
		assert.Len(t, tok.Value, 43)
		assert.NotContains(t, tok.Value, "+")
		_, dup := seen[tok.Value]
		assert.False(t, dup)
		seen[tok.Value] = struct{}{}
	}
}
