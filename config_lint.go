package goAuthClient

import (
	"errors"
	"net"
	"net/url"
	"slices"
	"strings"
	"time"
)

// LintSeverity ranks a LintWarning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is a configuration that is valid but probably not what was intended.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintWarnings defines a public type used by goAuthClient APIs.
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// AsError returns an error listing every warning at or above min, or nil.
func (ws LintWarnings) AsError(min LintSeverity) error {
	var msgs []string
	for _, w := range ws {
		if w.Severity >= min {
			msgs = append(msgs, w.Severity.String()+" "+w.Code+": "+w.Message)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return errors.New("config lint: " + strings.Join(msgs, "; "))
}

// Lint reports risky but valid settings. It does not call Validate.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.Renewal.Threshold > 0 && c.Renewal.Threshold < 0.5 {
		add("threshold_low", LintInfo, "tokens are renewed before half their lifetime; expect frequent renewal calls")
	}
	if c.Renewal.Threshold > 0.95 {
		add("threshold_high", LintWarn, "proactive renewal starts very late; requests may race hard expiry")
	}
	if !c.Renewal.BackgroundEnabled {
		add("background_renewal_disabled", LintInfo, "aging tokens are only renewed once they hard-expire or are rejected")
	}
	if c.Renewal.Timeout > 30*time.Second {
		add("renewal_timeout_long", LintWarn, "every caller joined to a slow renewal waits up to the full timeout")
	}
	if slices.Contains(c.Renewal.RejectStatusCodes, 403) {
		add("reject_403", LintWarn, "403 usually means forbidden, not expired; each one spends a renewal")
	}
	if insecureBaseURL(c.Endpoints.BaseURL) {
		add("insecure_base_url", LintHigh, "refresh tokens would be sent over plain http to a non-loopback host")
	}
	for _, origin := range c.Endpoints.TrustedOrigins {
		if insecureBaseURL(origin) {
			add("insecure_trusted_origin", LintHigh, "access tokens would be sent over plain http to "+origin)
		}
	}
	if c.Endpoints.LogoutPath == "" {
		add("logout_endpoint_disabled", LintInfo, "logout only clears local credentials; the refresh token stays valid server-side")
	}
	if c.Store.Backend == StoreMemory {
		add("memory_store_ephemeral", LintInfo, "credentials are lost when the process exits")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "background renewal failures are only visible in logs and metrics")
	}

	return ws
}

func insecureBaseURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return false
	}
	ip := net.ParseIP(host)
	return ip == nil || !ip.IsLoopback()
}
