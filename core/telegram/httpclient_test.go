package telegram

import (
	"bytes"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedTransport struct {
	errs  []error
	calls int
	body  []string
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if req.Body != nil {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(req.Body)
		s.body = append(s.body, buf.String())
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	rec := httptest.NewRecorder()
	rec.WriteHeader(http.StatusOK)
	return rec.Result(), nil
}

func TestRetryTransportRetriesDialFailures(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	base := &scriptedTransport{errs: []error{dialErr, nil}}
	rt := &retryTransport{base: base, retries: 2}

	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", strings.NewReader(`{"chat_id":1}`))
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, base.calls)
	assert.Equal(t, []string{`{"chat_id":1}`, `{"chat_id":1}`}, base.body)
}

func TestRetryTransportDoesNotRetryAfterWrite(t *testing.T) {
	readErr := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset")}
	base := &scriptedTransport{errs: []error{readErr}}
	rt := &retryTransport{base: base, retries: 2}

	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	assert.ErrorIs(t, err, readErr)
	assert.Equal(t, 1, base.calls)
}
