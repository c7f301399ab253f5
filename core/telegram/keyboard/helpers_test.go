package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactRequest(t *testing.T) {
	m := ContactRequest("📱 Telefon raqamni yuborish")
	require.Len(t, m.ReplyKeyboard, 1)
	require.Len(t, m.ReplyKeyboard[0], 1)
	btn := m.ReplyKeyboard[0][0]
	assert.True(t, btn.Contact)
	assert.Equal(t, "📱 Telefon raqamni yuborish", btn.Text)
	assert.True(t, m.OneTimeKeyboard)
	assert.True(t, m.ResizeKeyboard)
}

func TestInlineRowKeepsRawData(t *testing.T) {
	m := InlineRow(
		InlineBtn{Text: "✅ Ruxsat berish", Data: "approve_login_abc"},
		InlineBtn{Text: "❌ Rad etish", Data: "reject_login_abc"},
	)
	require.Len(t, m.InlineKeyboard, 1)
	require.Len(t, m.InlineKeyboard[0], 2)
	assert.Equal(t, "approve_login_abc", m.InlineKeyboard[0][0].Data)
	assert.Equal(t, "reject_login_abc", m.InlineKeyboard[0][1].Data)
}

func TestWebAppButton(t *testing.T) {
	m := WebAppButton("🚀 Ilovani ochish", "https://app.example.com")
	require.Len(t, m.InlineKeyboard, 1)
	assert.Equal(t, "https://app.example.com", m.InlineKeyboard[0][0].WebApp.URL)
	assert.True(t, RemoveKeyboard().RemoveKeyboard)
}
