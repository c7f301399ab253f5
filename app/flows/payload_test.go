package flows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/loginbot/core/errs"
)

func TestParseWebLogin(t *testing.T) {
	wl, err := ParseWebLogin("web_login_abc123_1700000000_clientX")
	require.NoError(t, err)
	assert.Equal(t, WebLogin{SessionToken: "abc123", Timestamp: 1700000000, ClientID: "clientX"}, wl)

	wl, err = ParseWebLogin("web_login_abc123_1700000000_jamolstroy_web")
	require.NoError(t, err)
	assert.Equal(t, "jamolstroy_web", wl.ClientID)
}

func TestParseWebLoginRejectsMalformed(t *testing.T) {
	for _, payload := range []string{
		"web_login_abc123_1700000000",
		"web_login_abc123",
		"web_login",
		"web_login__1700000000_x",
		"web_login_abc_notanumber_x",
		"hello",
	} {
		_, err := ParseWebLogin(payload)
		assert.True(t, errs.Is(err, errs.KindValidation), payload)
	}
}

func TestIsWebLogin(t *testing.T) {
	assert.True(t, IsWebLogin("web_login_x"))
	assert.True(t, IsWebLogin("web_login"))
	assert.False(t, IsWebLogin(""))
	assert.False(t, IsWebLogin("ref_42"))
}
