package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "dev (local)", String())

	old := Date
	Date = "2026-01-02T03:04:05Z"
	t.Cleanup(func() { Date = old })
	assert.Equal(t, "dev (local, 2026-01-02T03:04:05Z)", String())
}
