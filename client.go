package goAuthClient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/credstore"
	"github.com/MrEthical07/goAuthClient/internal/flows"
	"github.com/MrEthical07/goAuthClient/internal/renewal"
	"github.com/MrEthical07/goAuthClient/jwt"
)

// Client owns one caller's session: the stored credential pair, the renewal
// coordinator, and the authorizing HTTP transport.
//
// Client methods are safe for concurrent use after [Builder.Build].
type Client struct {
	config      Config
	store       credstore.Store
	backend     Backend
	policy      renewal.Policy
	coordinator *renewal.Coordinator
	transport   *Transport
	httpClient  *http.Client
	flowDeps    flows.Deps

	audit   *auditDispatcher
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time

	bgMu       sync.Mutex
	background sync.WaitGroup
	closed     bool
}

// Login authenticates against the backend and stores the returned pair and its claims
// in one write.
func (c *Client) Login(ctx context.Context, username, password string) (*jwt.Claims, error) {
	if c.isClosed() {
		return nil, ErrClientClosed
	}
	ctx, requestID := ensureRequestID(ctx)

	res := flows.RunLogin(ctx, username, password, c.flowDeps.Login)
	if res.Failure != flows.LoginFailureNone {
		c.metrics.Inc(MetricLoginFailure)
		c.emitAudit(ctx, AuditEvent{
			EventType: AuditLogin,
			RequestID: requestID,
			Success:   false,
			Error:     res.Err.Error(),
			Metadata:  map[string]string{"username": username},
		})
		return nil, c.mapLoginFailure(res)
	}

	c.metrics.Inc(MetricLoginSuccess)
	c.logger.Info("goAuthClient: login succeeded", "user_id", res.Record.Claims.UserID, "request_id", requestID)
	c.emitAudit(ctx, AuditEvent{
		EventType: AuditLogin,
		RequestID: requestID,
		UserID:    res.Record.Claims.UserID,
		Success:   true,
	})
	return res.Record.Claims.Clone(), nil
}

func (c *Client) mapLoginFailure(res flows.LoginResult) error {
	switch res.Failure {
	case flows.LoginFailureInvalidInput:
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, res.Err)
	case flows.LoginFailureBackend:
		if errors.Is(res.Err, ErrInvalidCredentials) {
			return res.Err
		}
		return fmt.Errorf("%w: %w", ErrLoginFailed, res.Err)
	default:
		return fmt.Errorf("%w: %w", ErrLoginFailed, res.Err)
	}
}

// Logout revokes the session on the backend when a logout endpoint is configured and
// then clears local credentials. A backend failure is logged and does not prevent the
// local clear. Calling Logout with no session is a no-op that returns nil.
func (c *Client) Logout(ctx context.Context) error {
	ctx, requestID := ensureRequestID(ctx)

	res := flows.RunLogout(ctx, c.flowDeps.Logout)
	c.metrics.Inc(MetricLogout)
	if res.BackendErr != nil {
		c.logger.Warn("goAuthClient: backend logout failed; clearing local session anyway", "error", res.BackendErr, "request_id", requestID)
	}

	event := AuditEvent{
		EventType: AuditLogout,
		RequestID: requestID,
		Success:   res.Err == nil,
	}
	if res.Record != nil && res.Record.Claims != nil {
		event.UserID = res.Record.Claims.UserID
	}
	if res.Err != nil {
		event.Error = res.Err.Error()
	}
	c.emitAudit(ctx, event)

	if res.Err != nil {
		return res.Err
	}
	c.metrics.Inc(MetricSessionCleared)
	return nil
}

// ClearSession wipes every stored credential field. It is idempotent, and a renewal
// running at the time cannot bring the session back.
func (c *Client) ClearSession(ctx context.Context) error {
	return c.clearSession(ctx, "explicit")
}

func (c *Client) clearSession(ctx context.Context, reason string) error {
	if err := c.coordinator.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error("goAuthClient: clear session failed", "reason", reason, "error", err)
		return err
	}
	c.metrics.Inc(MetricSessionCleared)
	c.emitAudit(ctx, AuditEvent{
		EventType: AuditSessionCleared,
		RequestID: RequestIDFromContext(ctx),
		Success:   true,
		Metadata:  map[string]string{"reason": reason},
	})
	return nil
}

// AccessToken returns a bearer token usable right now, renewing synchronously when the
// stored one is absent or expired and in the background when it is past the renewal
// threshold.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.isClosed() {
		return "", ErrClientClosed
	}
	return c.authorize(ctx)
}

func (c *Client) authorize(ctx context.Context) (string, error) {
	rec, err := c.store.Load(ctx)
	if err != nil {
		return "", err
	}
	var access string
	if rec != nil {
		access = rec.AccessToken
	}

	switch c.policy.Decide(access) {
	case renewal.UseToken:
		return access, nil
	case renewal.RenewInBackground:
		c.renewInBackground(ctx)
		return access, nil
	default:
		return c.coordinator.Renew(ctx)
	}
}

// Renew forces a renewal, joining one that is already running.
func (c *Client) Renew(ctx context.Context) (string, error) {
	if c.isClosed() {
		return "", ErrClientClosed
	}
	return c.coordinator.Renew(ctx)
}

func (c *Client) renewInBackground(ctx context.Context) {
	if !c.config.Renewal.BackgroundEnabled || c.coordinator.InFlight() {
		return
	}

	c.bgMu.Lock()
	if c.closed {
		c.bgMu.Unlock()
		return
	}
	c.background.Add(1)
	c.bgMu.Unlock()

	c.metrics.Inc(MetricBackgroundRenewal)
	bctx := context.WithoutCancel(ctx)
	go func() {
		defer c.background.Done()
		if _, err := c.coordinator.Renew(bctx); err != nil {
			c.metrics.Inc(MetricBackgroundRenewalFailure)
			c.logger.Warn("goAuthClient: background renewal failed", "cycle", renewal.CycleOf(err), "error", err)
			c.emitAudit(bctx, AuditEvent{
				EventType: AuditBackgroundRenewal,
				RequestID: RequestIDFromContext(bctx),
				Cycle:     renewal.CycleOf(err),
				Success:   false,
				Error:     err.Error(),
			})
		}
	}()
}

// IsAuthenticated reports whether a session is stored that can still produce a token:
// a refresh token is present or the access token has not hard-expired.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	rec, err := c.store.Load(ctx)
	if err != nil || rec == nil {
		return false
	}
	if rec.RefreshToken != "" {
		return true
	}
	return !c.policy.IsExpired(rec.AccessToken, false)
}

// Claims returns the stored claims of the current access token.
func (c *Client) Claims(ctx context.Context) (*jwt.Claims, error) {
	rec, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Claims == nil {
		return nil, ErrNotAuthenticated
	}
	return rec.Claims.Clone(), nil
}

// Status summarizes the stored session without contacting the backend.
func (c *Client) Status(ctx context.Context) (SessionStatus, error) {
	rec, err := c.store.Load(ctx)
	if err != nil {
		return SessionStatus{}, err
	}
	st := SessionStatus{Decision: renewal.RenewNow.String()}
	if rec == nil {
		return st, nil
	}
	st.HasRefreshToken = rec.RefreshToken != ""
	st.Authenticated = st.HasRefreshToken || !c.policy.IsExpired(rec.AccessToken, false)
	st.Decision = c.policy.Decide(rec.AccessToken).String()
	if rec.Claims != nil {
		st.Claims = rec.Claims.Clone()
		st.ExpiresAt = rec.Claims.Expiry()
		st.RenewAt = c.policy.RenewAt(rec.Claims)
	}
	st.RenewalInFlight = c.coordinator.InFlight()
	return st, nil
}

// HTTPClient returns an http.Client whose transport authorizes every request.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Do sends req through HTTPClient.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.isClosed() {
		return nil, ErrClientClosed
	}
	return c.httpClient.Do(req)
}

// Transport returns the authorizing round tripper.
func (c *Client) Transport() *Transport {
	return c.transport
}

// RenewalCalls returns how many backend renewal calls this Client has made.
func (c *Client) RenewalCalls() uint64 {
	return c.coordinator.Calls()
}

// MetricsSnapshot returns a point-in-time copy of the counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped for backpressure.
func (c *Client) AuditDropped() uint64 {
	return c.audit.Dropped()
}

// Close waits for background renewals and flushes the audit queue. Further calls that
// would start work return ErrClientClosed.
func (c *Client) Close() error {
	c.bgMu.Lock()
	if c.closed {
		c.bgMu.Unlock()
		return nil
	}
	c.closed = true
	c.bgMu.Unlock()

	c.background.Wait()
	c.audit.Close()
	return nil
}

func (c *Client) isClosed() bool {
	c.bgMu.Lock()
	defer c.bgMu.Unlock()
	return c.closed
}

func (c *Client) emitAudit(ctx context.Context, event AuditEvent) {
	c.audit.Emit(ctx, event)
}

// onRenewalSettled feeds coordinator outcomes into metrics, logs and audit.
func (c *Client) onRenewalSettled(o renewal.Outcome) {
	c.metrics.Observe(MetricRenewalLatency, o.Duration)

	event := AuditEvent{
		EventType: AuditRenewal,
		Cycle:     o.Cycle,
		Success:   o.Err == nil,
		Metadata:  map[string]string{"waiters": fmt.Sprint(o.Waiters), "duration_ms": fmt.Sprint(o.Duration.Milliseconds())},
	}

	if o.Err == nil {
		c.metrics.Inc(MetricRenewalSuccess)
		c.logger.Debug("goAuthClient: renewal succeeded", "cycle", o.Cycle, "waiters", o.Waiters, "duration", o.Duration)
		c.emitAudit(context.Background(), event)
		return
	}

	event.Error = o.Err.Error()
	c.metrics.Inc(MetricRenewalFailure)
	switch {
	case o.ClearErr != nil:
		c.logger.Error("goAuthClient: renewal failed and session clear failed", "cycle", o.Cycle, "error", o.Err, "clear_error", o.ClearErr)
	case o.Cleared:
		c.metrics.Inc(MetricSessionCleared)
		c.logger.Warn("goAuthClient: renewal failed; session cleared", "cycle", o.Cycle, "waiters", o.Waiters, "error", o.Err)
	default:
		c.logger.Info("goAuthClient: renewal result discarded; session was cleared or replaced meanwhile", "cycle", o.Cycle, "waiters", o.Waiters)
	}
	c.emitAudit(context.Background(), event)
}
