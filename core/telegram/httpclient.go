package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/notifybot/core/telegram/netutil"
)

// HTTPOptions tunes the client used for Telegram API calls. Zero values
// fall back to the defaults below.
type HTTPOptions struct {
	Timeout      time.Duration
	Retries      int
	RetryBackoff time.Duration
}

const (
	defaultClientTimeout = 30 * time.Second
	defaultRetries       = 3
	defaultRetryBackoff  = 2 * time.Second
)

// BuildHTTPClient returns a client with short dial and header timeouts whose
// transport retries transient network failures.
func BuildHTTPClient(opts HTTPOptions) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultClientTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	} else if opts.Retries == 0 {
		opts.Retries = defaultRetries
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}

	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: &retryTransport{base: base, retries: opts.Retries, backoff: opts.RetryBackoff},
	}
}

// retryTransport replays requests whose body can be rebuilt.
type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.retries; attempt++ {
		if !netutil.ShouldRetry(err) || (req.Body != nil && req.GetBody == nil) {
			return nil, err
		}
		if serr := netutil.Sleep(req.Context(), netutil.Pause(err, attempt, t.backoff)); serr != nil {
			return nil, serr
		}

		next := req.Clone(req.Context())
		if req.GetBody != nil {
			body, berr := req.GetBody()
			if berr != nil {
				return nil, berr
			}
			next.Body = body
		}
		resp, err = t.base.RoundTrip(next)
	}
	return resp, err
}
