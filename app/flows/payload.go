package flows

import (
	"strconv"
	"strings"

	"github.com/m3rciful/loginbot/core/errs"
)

const webLoginPrefix = "web_login_"

// WebLogin is a parsed "web_login_<token>_<timestamp>_<clientId>" start payload.
type WebLogin struct {
	SessionToken string
	Timestamp    int64
	ClientID     string
}

// IsWebLogin reports whether a start payload asks for the web login step.
func IsWebLogin(payload string) bool {
	return strings.HasPrefix(payload, "web_login")
}

// ParseWebLogin splits payload into its parts. Underscores after the timestamp
// belong to the client id.
func ParseWebLogin(payload string) (WebLogin, error) {
	const op = "flows.parse_web_login"
	rest, ok := strings.CutPrefix(strings.TrimSpace(payload), webLoginPrefix)
	if !ok {
		return WebLogin{}, errs.New(errs.KindValidation, op, "missing web_login prefix")
	}
	parts := strings.SplitN(rest, "_", 3)
	if len(parts) < 3 {
		return WebLogin{}, errs.New(errs.KindValidation, op, "too few segments")
	}
	for _, p := range parts {
		if p == "" {
			return WebLogin{}, errs.New(errs.KindValidation, op, "empty segment")
		}
	}
	ts, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return WebLogin{}, errs.E(errs.KindValidation, op, err)
	}
	return WebLogin{SessionToken: parts[0], Timestamp: ts, ClientID: parts[2]}, nil
}
