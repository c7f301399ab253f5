package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;Ali &amp; Vali&lt;/b&gt;", EscapeHTML("<b>Ali & Vali</b>"))
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Jamol Karimov", FullName(" Jamol ", "", "Karimov"))
	assert.Equal(t, "", FullName("", " "))
}
