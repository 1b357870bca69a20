// Package transport delivers a built onion envelope to its entry hop
// over a single HTTPS POST and surfaces the raw response. No
// connection pooling happens here: paths rotate per request, so each
// Send dials fresh.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oxen-lsrpc/onion-client/internal/logging"
	"github.com/oxen-lsrpc/onion-client/internal/metrics"
	"github.com/oxen-lsrpc/onion-client/internal/ratelimit"
	"github.com/oxen-lsrpc/onion-client/pkg/types"
)

// Response is the verbatim HTTP response from the entry hop; the
// core performs no decryption of it.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Config controls Transport behavior.
type Config struct {
	// Timeout bounds the full request (connect + TLS + write + read).
	Timeout time.Duration
	// TLSVerify enables certificate verification. Off by default for
	// interop with self-signed service-node certificates; operators
	// should turn it on in production.
	TLSVerify bool
	// RateLimitRPS bounds outbound requests per entry host; 0 disables.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Transport POSTs onion envelopes to their entry hop.
type Transport struct {
	cfg     Config
	limiter *ratelimit.Limiter
	log     *logging.Logger
	metrics *metrics.Metrics
}

// New creates a Transport. log and m may be nil.
func New(cfg Config, log *logging.Logger, m *metrics.Metrics) *Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	})
	return &Transport{
		cfg:     cfg,
		limiter: limiter,
		log:     log,
		metrics: m,
	}
}

// Close stops the background rate-limiter cleanup goroutine.
func (t *Transport) Close() {
	t.limiter.Stop()
}

// Send issues the outbound POST to envelope.Entry and returns the
// entry hop's response verbatim. ctx governs cancellation; a
// per-request timeout is additionally enforced regardless of ctx's
// own deadline.
func (t *Transport) Send(ctx context.Context, envelope *types.OnionEnvelope) (*Response, error) {
	start := time.Now()
	host := fmt.Sprintf("%s:%d", envelope.Entry.IP, envelope.Entry.Port)

	if !t.limiter.Allow(host) {
		t.recordOutcome("rate_limited")
		return nil, newErr(ErrRateLimited, "outbound rate limit exceeded for "+host, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	url := fmt.Sprintf("https://%s/onion_req/v2", host)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(envelope.Bytes))
	if err != nil {
		t.recordOutcome("build_error")
		return nil, newErr(ErrConnect, "build request", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	client := &http.Client{
		Timeout: t.cfg.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: !t.cfg.TLSVerify},
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			t.recordOutcome("cancelled")
			return nil, newErr(ErrCancelled, "request cancelled", err)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			t.recordOutcome("timeout")
			return nil, newErr(ErrTimeout, "request timed out", err)
		}
		var tlsErr *tls.CertificateVerificationError
		if errors.As(err, &tlsErr) {
			t.recordOutcome("tls_error")
			return nil, newErr(ErrTLS, "certificate verification failed", err)
		}
		t.recordOutcome("connect_error")
		return nil, newErr(ErrConnect, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.recordOutcome("io_error")
		return nil, newErr(ErrIO, "read response body", err)
	}

	if t.log != nil {
		t.log.WithComponent("transport").Debug().
			Str("host", host).
			Int("status", resp.StatusCode).
			Dur("elapsed", time.Since(start)).
			Msg("onion_req/v2 completed")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.recordOutcome("http_status")
		t.recordDuration(start)
		return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body},
			&Error{Code: ErrHTTPStatus, Message: fmt.Sprintf("entry hop returned status %d", resp.StatusCode), StatusCode: resp.StatusCode}
	}

	t.recordOutcome("ok")
	t.recordDuration(start)
	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}

func (t *Transport) recordOutcome(outcome string) {
	if t.metrics != nil {
		t.metrics.TransportRequestsTotal.WithLabelValues(outcome).Inc()
		if outcome != "ok" {
			t.metrics.RecordError("transport", outcome)
		}
	}
}

func (t *Transport) recordDuration(start time.Time) {
	if t.metrics != nil {
		t.metrics.TransportRequestDuration.Observe(time.Since(start).Seconds())
	}
}
