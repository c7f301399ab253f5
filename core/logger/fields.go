package logger

import (
	"fmt"
	"strings"
	"time"
)

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// Known values for the status and outcome fields. Unknown outcomes are dropped.
var (
	knownStatus  = []string{"ok", "fail", "skip", "rejected", "rate_limited", "cancelled"}
	knownOutcome = []string{"ok", "fail", "rejected", "cancelled", "rate_limited"}
)

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"request_id",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"op",
	"step",
	"decision",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"client_id",
	"mode",
	"listen",
	"public_url",
	"method",
	"path",
	"http_code",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"err_kind",
	"retryable",
	"collapsed",
	"repeats",
}

func levelName(raw string) string {
	if name, ok := levelNames[strings.ToLower(raw)]; ok {
		return name
	}
	return strings.ToUpper(raw)
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}

// normalizeEnums lowercases status/outcome and removes outcomes outside the known set.
func normalizeEnums(fields map[string]any) {
	if s, ok := stringField(fields, "status"); ok && s != "" {
		fields["status"] = strings.ToLower(strings.TrimSpace(s))
	}
	if o, ok := stringField(fields, "outcome"); ok && o != "" {
		o = strings.ToLower(strings.TrimSpace(o))
		if oneOf(o, knownOutcome) {
			fields["outcome"] = o
		} else {
			delete(fields, "outcome")
		}
	}
}

// KnownStatus reports whether status is one of the values dashboards group by.
func KnownStatus(status string) bool {
	return oneOf(strings.ToLower(strings.TrimSpace(status)), knownStatus)
}

func stringField(fields map[string]any, key string) (string, bool) {
	v, ok := fields[key]
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case fmt.Stringer:
		return val.String(), true
	default:
		return fmt.Sprint(val), true
	}
}

// Status maps err to the status field value.
func Status(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

// Took returns the elapsed time since start rounded to milliseconds.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to the nearest millisecond.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}
