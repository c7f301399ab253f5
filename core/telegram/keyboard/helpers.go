package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes one inline callback button. Data is sent back verbatim.
type InlineBtn struct {
	Text string
	Data string
}

// RemoveKeyboard returns a markup that hides the reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ContactRequest returns a one-time reply keyboard with a single share-contact button.
func ContactRequest(label string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	markup.Reply(markup.Row(markup.Contact(label)))
	return markup
}

// WebAppButton returns an inline keyboard with one button that opens url as a Web App.
func WebAppButton(label, url string) *tele.ReplyMarkup {
	return &tele.ReplyMarkup{
		InlineKeyboard: [][]tele.InlineButton{{
			{Text: label, WebApp: &tele.WebApp{URL: url}},
		}},
	}
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
// Data is used as the raw callback_data without telebot's unique prefix.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = tele.InlineButton{Text: btn.Text, Data: btn.Data}
		}
		inline[i] = r
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

// InlineRow places all buttons on a single row.
func InlineRow(buttons ...InlineBtn) *tele.ReplyMarkup {
	return InlineButtonsRows(buttons)
}
