// Package callbacks encodes and decodes prefix-routed callback data.
package callbacks

import (
	"errors"
	"strings"
)

// MaxDataLen is the Bot API limit for callback_data in bytes.
const MaxDataLen = 64

// ErrTooLong is returned when encoded data would exceed MaxDataLen.
var ErrTooLong = errors.New("callback data exceeds 64 bytes")

// Encode joins prefix and payload.
func Encode(prefix, payload string) (string, error) {
	data := prefix + payload
	if len(data) > MaxDataLen {
		return "", ErrTooLong
	}
	return data, nil
}

// Decode returns the payload following prefix, if data starts with it.
// Telebot's "\f<unique>|" framing is stripped first.
func Decode(data, prefix string) (string, bool) {
	data = Normalize(data)
	if prefix == "" || !strings.HasPrefix(data, prefix) {
		return "", false
	}
	return strings.TrimPrefix(data, prefix), true
}

// Normalize removes telebot's unique-button framing from data.
func Normalize(data string) string {
	if !strings.HasPrefix(data, "\f") {
		return data
	}
	data = strings.TrimPrefix(data, "\f")
	if i := strings.IndexByte(data, '|'); i >= 0 {
		return data[i+1:]
	}
	return data
}
