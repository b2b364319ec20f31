package goAuthClient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

type requestState uint8

const (
	stateUnauthorized requestState = iota
	stateAuthorizing
	stateSent
	stateRetrying
	stateSentFinal
	stateRenewalFailed
)

func (s requestState) String() string {
	switch s {
	case stateUnauthorized:
		return "unauthorized"
	case stateAuthorizing:
		return "authorizing"
	case stateSent:
		return "sent"
	case stateRetrying:
		return "retrying"
	case stateSentFinal:
		return "sent_final"
	case stateRenewalFailed:
		return "renewal_failed"
	default:
		return "unknown"
	}
}

// requestDescriptor tracks one logical request across its attempts. retried is set
// before the second attempt and never reset.
type requestDescriptor struct {
	id      string
	state   requestState
	retried bool
	body    *bodySource
}

func (d *requestDescriptor) to(s requestState, log *slog.Logger) {
	log.Debug("goAuthClient: request state", "request_id", d.id, "from", d.state.String(), "to", s.String())
	d.state = s
}

// Transport is an http.RoundTripper that attaches the session's bearer token and
// resends a request once after an authentication rejection.
type Transport struct {
	client *Client
	base   http.RoundTripper

	baseURL    *url.URL
	origins    []*url.URL
	exempt     []string
	rejectCode []int
	idHeader   string
	maxReplay  int64
}

func newTransport(c *Client, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &Transport{
		client:     c,
		base:       base,
		exempt:     []string{c.config.Endpoints.LoginPath, c.config.Endpoints.RenewPath},
		rejectCode: append([]int(nil), c.config.Renewal.RejectStatusCodes...),
		idHeader:   c.config.HTTP.RequestIDHeader,
		maxReplay:  c.config.HTTP.MaxReplayBodyBytes,
	}
	if c.config.Endpoints.BaseURL != "" {
		t.baseURL, _ = url.Parse(c.config.Endpoints.BaseURL)
		t.origins = append(t.origins, t.baseURL)
		for _, raw := range c.config.Endpoints.TrustedOrigins {
			if u, err := url.Parse(raw); err == nil {
				t.origins = append(t.origins, u)
			}
		}
	}
	return t
}

// RoundTrip implements http.RoundTripper. It never mutates req.
//
// Requests outside the configured origins, including redirect hops that leave them,
// are passed to the base transport without a token.
// A renewal failure before the first attempt is returned as the error. After a
// rejection the request is resent once with a renewed token; a second rejection clears
// the session and returns ErrAuthorizationRejected. Network errors pass through.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.inScope(req.URL) || t.isExempt(req.URL) {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()
	if t.idHeader != "" && RequestIDFromContext(ctx) == "" {
		if existing := req.Header.Get(t.idHeader); existing != "" {
			ctx = WithRequestID(ctx, existing)
		}
	}
	ctx, requestID := ensureRequestID(ctx)
	log := t.client.logger

	body, err := t.newBodySource(req)
	if err != nil {
		return nil, err
	}
	d := &requestDescriptor{id: requestID, state: stateUnauthorized, body: body}

	d.to(stateAuthorizing, log)
	token, err := t.client.authorize(ctx)
	if err != nil {
		d.to(stateRenewalFailed, log)
		body.close()
		return nil, err
	}

	resp, err := t.send(ctx, req, d, token)
	if err != nil {
		body.close()
		return nil, err
	}
	d.to(stateSent, log)
	t.client.metrics.Inc(MetricRequestAuthorized)

	if !t.rejected(resp.StatusCode) || d.retried {
		d.to(stateSentFinal, log)
		body.close()
		return resp, nil
	}
	if !body.replayable() {
		log.Warn("goAuthClient: rejected request body is not replayable; returning rejection", "request_id", d.id, "status", resp.StatusCode)
		d.to(stateSentFinal, log)
		body.close()
		return resp, nil
	}

	d.retried = true
	d.to(stateRetrying, log)
	discard(resp)

	token, err = t.client.coordinator.Renew(ctx)
	if err != nil {
		d.to(stateRenewalFailed, log)
		return nil, err
	}

	t.client.metrics.Inc(MetricRequestRetried)
	t.client.emitAudit(ctx, AuditEvent{
		EventType: AuditRequestRetried,
		RequestID: d.id,
		Success:   true,
		Metadata:  map[string]string{"method": req.Method, "path": req.URL.Path},
	})

	resp, err = t.send(ctx, req, d, token)
	if err != nil {
		return nil, err
	}
	if !t.rejected(resp.StatusCode) {
		d.to(stateSentFinal, log)
		return resp, nil
	}

	code := resp.StatusCode
	discard(resp)
	d.to(stateRenewalFailed, log)
	t.client.metrics.Inc(MetricAuthorizationRejected)
	t.client.logger.Warn("goAuthClient: request rejected after renewal; clearing session", "request_id", d.id, "status", code)
	t.client.emitAudit(ctx, AuditEvent{
		EventType: AuditAuthorizationRejected,
		RequestID: d.id,
		Success:   false,
		Error:     "HTTP " + strconv.Itoa(code),
		Metadata:  map[string]string{"method": req.Method, "path": req.URL.Path},
	})
	_ = t.client.clearSession(ctx, "authorization_rejected")
	return nil, fmt.Errorf("%w: HTTP %d", ErrAuthorizationRejected, code)
}

func (t *Transport) send(ctx context.Context, req *http.Request, d *requestDescriptor, token string) (*http.Response, error) {
	r := req.Clone(ctx)
	r.Header.Set("Authorization", "Bearer "+token)
	if t.idHeader != "" {
		r.Header.Set(t.idHeader, d.id)
	}
	b, err := d.body.open()
	if err != nil {
		return nil, err
	}
	r.Body = b
	if b == nil {
		r.Body = nil
	}
	return t.base.RoundTrip(r)
}

func (t *Transport) rejected(code int) bool {
	return slices.Contains(t.rejectCode, code)
}

// inScope reports whether u may carry the bearer token. Without a BaseURL every
// request is in scope.
func (t *Transport) inScope(u *url.URL) bool {
	if t.baseURL == nil {
		return true
	}
	if u == nil {
		return false
	}
	return slices.ContainsFunc(t.origins, func(o *url.URL) bool {
		return strings.EqualFold(u.Scheme, o.Scheme) && strings.EqualFold(u.Host, o.Host)
	})
}

// isExempt reports whether u is the login or renewal endpoint. Without a BaseURL only
// the path is compared.
func (t *Transport) isExempt(u *url.URL) bool {
	if u == nil {
		return false
	}
	path := u.Path
	if t.baseURL != nil {
		if !strings.EqualFold(u.Host, t.baseURL.Host) {
			return false
		}
		path = strings.TrimPrefix(path, strings.TrimRight(t.baseURL.Path, "/"))
	}
	return slices.Contains(t.exempt, path)
}

func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// bodySource hands out a fresh body per attempt.
type bodySource struct {
	getBody  func() (io.ReadCloser, error)
	buffered []byte
	stream   io.ReadCloser
	used     bool
}

func (t *Transport) newBodySource(req *http.Request) (*bodySource, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return &bodySource{}, nil
	}
	if req.GetBody != nil {
		return &bodySource{getBody: req.GetBody, stream: req.Body}, nil
	}

	limited := io.LimitReader(req.Body, t.maxReplay+1)
	buf, err := io.ReadAll(limited)
	if err != nil {
		_ = req.Body.Close()
		return nil, err
	}
	if int64(len(buf)) <= t.maxReplay {
		_ = req.Body.Close()
		return &bodySource{buffered: buf}, nil
	}
	// Too large to keep: stream what was read followed by the rest, once.
	return &bodySource{stream: readCloser{io.MultiReader(bytes.NewReader(buf), req.Body), req.Body}}, nil
}

func (b *bodySource) replayable() bool {
	return b.getBody != nil || b.buffered != nil || (b.stream == nil)
}

func (b *bodySource) open() (io.ReadCloser, error) {
	switch {
	case b.buffered != nil:
		return io.NopCloser(bytes.NewReader(b.buffered)), nil
	case b.getBody != nil:
		if !b.used {
			b.used = true
			return b.stream, nil
		}
		return b.getBody()
	case b.stream != nil:
		b.used = true
		return b.stream, nil
	default:
		return nil, nil
	}
}

// close releases the caller's body when no attempt took ownership of it.
func (b *bodySource) close() {
	if !b.used && b.stream != nil {
		_ = b.stream.Close()
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}
