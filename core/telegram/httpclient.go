package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/loginbot/core/telegram/netutil"
)

const (
	dialTimeout       = 5 * time.Second
	tlsHandshake      = 5 * time.Second
	idleConnTimeout   = 30 * time.Second
	responseTimeout   = 10 * time.Second
	clientTimeout     = 30 * time.Second
	keepAliveInterval = 30 * time.Second
	retryAttempts     = 2
	retryBackoff      = 500 * time.Millisecond
)

// BuildHTTPClient returns the client used for Bot API calls. Requests that fail
// before a connection is established are retried with linear backoff.
func BuildHTTPClient() *http.Client {
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshake,
		ResponseHeaderTimeout: responseTimeout,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   clientTimeout,
		Transport: &retryTransport{base: base, retries: retryAttempts, backoff: retryBackoff},
	}
}

type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for attempt := 1; attempt <= t.retries && err != nil && netutil.ShouldRetry(err); attempt++ {
		next := req.Clone(req.Context())
		if req.Body != nil {
			if req.GetBody == nil {
				return nil, err
			}
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, err
			}
			next.Body = body
		}

		timer := time.NewTimer(t.backoff * time.Duration(attempt))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
		resp, err = t.base.RoundTrip(next)
	}
	return resp, err
}
