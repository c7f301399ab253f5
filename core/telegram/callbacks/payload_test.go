package callbacks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	data, err := Encode("approve_login_", "Zm9v")
	require.NoError(t, err)
	assert.Equal(t, "approve_login_Zm9v", data)

	payload, ok := Decode(data, "approve_login_")
	assert.True(t, ok)
	assert.Equal(t, "Zm9v", payload)

	_, ok = Decode(data, "reject_login_")
	assert.False(t, ok)
}

func TestEncodeTooLong(t *testing.T) {
	_, err := Encode("approve_login_", strings.Repeat("a", 51))
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestNormalizeStripsUniqueFraming(t *testing.T) {
	assert.Equal(t, "reject_login_x", Normalize("\fbtn|reject_login_x"))
	assert.Equal(t, "plain", Normalize("plain"))
}
