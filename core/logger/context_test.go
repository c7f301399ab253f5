package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextMetadata(t *testing.T) {
	ctx := WithUpdateMeta(context.Background(), 5, 10, 20)
	ctx = WithHandler(ctx, "start")
	ctx = WithRequestID(ctx, "req-1")

	assert.Equal(t, 5, UpdateIDFrom(ctx))
	assert.Equal(t, int64(10), UserIDFrom(ctx))
	assert.Equal(t, int64(20), ChatIDFrom(ctx))
	assert.Equal(t, "start", HandlerFrom(ctx))
	assert.Equal(t, "req-1", RequestIDFrom(ctx))
	assert.Empty(t, RIDFrom(ctx))
}

func TestCompactRIDRejectsForeignFormats(t *testing.T) {
	assert.Equal(t, "abc", CompactRID(" abc "))
	assert.Equal(t, "1:x:3", CompactRID("1:x:3"))
	assert.Equal(t, "1.a.z", CompactRID("1:10:35"))
}

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, "ab\tc", Sanitize("a\x00b\tc\u200b"))
	assert.Equal(t, "Али", SanitizeLimit("Алишер", 3))
	assert.Empty(t, SanitizeLimit("x", 0))
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	assert.Equal(t, []bool{true, false, false, true}, got)

	s.Set(0, 0)
	assert.True(t, s.Allow())

	n, d := parseRatio("2/10")
	assert.Equal(t, [2]int{2, 10}, [2]int{n, d})
	n, d = parseRatio("20")
	assert.Equal(t, [2]int{1, 20}, [2]int{n, d})
}
