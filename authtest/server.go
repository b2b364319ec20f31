// Package authtest runs an in-process identity backend for tests and load tools. It
// signs real access tokens, rotates refresh tokens with reuse detection, and serves a
// few bearer-protected endpoints.
package authtest

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthClient/credstore"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/middleware"
	"github.com/MrEthical07/goAuthClient/password"
	"github.com/MrEthical07/goAuthClient/refresh"
)

// Default credentials registered on every Server.
const (
	DefaultUsername = "alice"
	DefaultPassword = "correct horse"
)

// Routes served besides the auth endpoints.
const (
	PathWhoAmI = "/api/whoami"
	PathEcho   = "/api/echo"
	PathAdmin  = "/api/admin"
)

type user struct {
	password string // plaintext until NewServer replaces it with hash
	hash     string
	identity jwt.Identity
}

type family struct {
	username   string
	generation uint32
	hash       [32]byte
	revoked    bool
}

// Server is a running backend. Its methods are safe for concurrent use.
type Server struct {
	srv    *httptest.Server
	issuer *jwt.Issuer
	hasher *password.Hasher
	now    func() time.Time
	ttl    time.Duration

	loginPath, renewPath, logoutPath string

	mu            sync.Mutex
	users         map[string]user
	families      map[refresh.FamilyID]*family
	revokedAccess map[string]struct{}
	failRenewals  int
	failStatus    int
	rejectAll     bool
	renewLatency  time.Duration

	loginCalls  atomic.Uint64
	renewCalls  atomic.Uint64
	logoutCalls atomic.Uint64
	rejections  atomic.Uint64
	reuses      atomic.Uint64
}

// Option configures a Server.
type Option func(*Server)

// WithAccessTTL sets the lifetime of issued access tokens. Default 15m.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) { s.ttl = d }
}

// WithClock sets the server clock used for issuing and verifying tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithUser registers an additional account. The password is stored as an argon2id hash
// and must not be empty.
func WithUser(username, pw string, id jwt.Identity) Option {
	return func(s *Server) { s.users[username] = user{password: pw, identity: id} }
}

// WithRenewLatency delays every renewal response.
func WithRenewLatency(d time.Duration) Option {
	return func(s *Server) { s.renewLatency = d }
}

// WithPaths overrides the login, renew and logout paths.
func WithPaths(login, renew, logout string) Option {
	return func(s *Server) { s.loginPath, s.renewPath, s.logoutPath = login, renew, logout }
}

// NewServer starts a Server. It panics if key generation fails, like httptest.NewServer
// does on listen failure.
func NewServer(opts ...Option) *Server {
	s := &Server{
		now:        time.Now,
		ttl:        15 * time.Minute,
		loginPath:  "/auth/login",
		renewPath:  "/auth/refresh",
		logoutPath: "/auth/logout",
		users: map[string]user{
			DefaultUsername: {
				password: DefaultPassword,
				identity: jwt.Identity{Subject: DefaultUsername, UserID: "u-1001", Email: "alice@example.com", Roles: []string{"user"}},
			},
		},
		families:      map[refresh.FamilyID]*family{},
		revokedAccess: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}

	hasher, err := password.NewHasher(password.Fast())
	if err != nil {
		panic("authtest: hasher: " + err.Error())
	}
	s.hasher = hasher
	for name, u := range s.users {
		if u.hash, err = hasher.Hash(u.password); err != nil {
			panic("authtest: hash password for " + name + ": " + err.Error())
		}
		u.password = ""
		s.users[name] = u
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic("authtest: generate key: " + err.Error())
	}
	issuer, err := jwt.NewIssuer(jwt.Config{
		AccessTTL:     s.ttl,
		SigningMethod: jwt.MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "authtest",
	})
	if err != nil {
		panic("authtest: issuer: " + err.Error())
	}
	s.issuer = issuer.WithClock(s.now)

	s.srv = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	guard := middleware.RequireActive(s.issuer, s.accessActive)

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+s.loginPath, s.handleLogin)
	mux.HandleFunc("POST "+s.renewPath, s.handleRenew)
	mux.HandleFunc("POST "+s.logoutPath, s.handleLogout)
	mux.Handle("GET "+PathWhoAmI, s.countRejections(guard(http.HandlerFunc(handleWhoAmI))))
	mux.Handle("POST "+PathEcho, s.countRejections(guard(http.HandlerFunc(handleEcho))))
	mux.Handle("GET "+PathAdmin, s.countRejections(guard(middleware.RequireRole("admin", http.HandlerFunc(handleWhoAmI)))))
	return mux
}

// URL is the base URL of the server.
func (s *Server) URL() string { return s.srv.URL }

// Client returns an http.Client configured for the server.
func (s *Server) Client() *http.Client { return s.srv.Client() }

// Close shuts the server down.
func (s *Server) Close() { s.srv.Close() }

// Issuer is the token issuer, usable to mint tokens directly.
func (s *Server) Issuer() *jwt.Issuer { return s.issuer }

func (s *Server) LoginCalls() uint64  { return s.loginCalls.Load() }
func (s *Server) RenewCalls() uint64  { return s.renewCalls.Load() }
func (s *Server) LogoutCalls() uint64 { return s.logoutCalls.Load() }

// Rejections counts 401s from protected endpoints.
func (s *Server) Rejections() uint64 { return s.rejections.Load() }

// Reuses counts refresh tokens presented after they were rotated.
func (s *Server) Reuses() uint64 { return s.reuses.Load() }

// FailRenewals makes the next n renewals answer status without touching any family.
func (s *Server) FailRenewals(n, status int) {
	s.mu.Lock()
	s.failRenewals, s.failStatus = n, status
	s.mu.Unlock()
}

// RevokeAccessToken makes protected endpoints reject token until it expires.
func (s *Server) RevokeAccessToken(token string) {
	s.mu.Lock()
	s.revokedAccess[token] = struct{}{}
	s.mu.Unlock()
}

// RejectAll makes protected endpoints reject every token.
func (s *Server) RejectAll(reject bool) {
	s.mu.Lock()
	s.rejectAll = reject
	s.mu.Unlock()
}

// SeedSession mints a pair for username with explicit access token timing, as if the
// user had logged in earlier. A zero issuedAt omits iat.
func (s *Server) SeedSession(username string, issuedAt, expiresAt time.Time) (credstore.Pair, error) {
	s.mu.Lock()
	u, ok := s.users[username]
	s.mu.Unlock()
	if !ok {
		return credstore.Pair{}, errors.New("authtest: unknown user")
	}
	access, err := s.issuer.IssueAt(u.identity, issuedAt, expiresAt)
	if err != nil {
		return credstore.Pair{}, err
	}
	rt, err := s.newFamily(username)
	if err != nil {
		return credstore.Pair{}, err
	}
	return credstore.Pair{AccessToken: access, RefreshToken: rt}, nil
}

func (s *Server) newFamily(username string) (string, error) {
	id, err := refresh.NewFamilyID()
	if err != nil {
		return "", err
	}
	tok, err := refresh.New(id, 1)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.families[id] = &family{username: username, generation: tok.Generation, hash: tok.Hash()}
	s.mu.Unlock()
	return tok.Encode(), nil
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenBody struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.loginCalls.Add(1)

	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	u, ok := s.users[in.Username]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if match, err := s.hasher.Verify(in.Password, u.hash); err != nil || !match {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	access, err := s.issuer.Issue(u.identity)
	if err != nil {
		http.Error(w, "issue failed", http.StatusInternalServerError)
		return
	}
	rt, err := s.newFamily(in.Username)
	if err != nil {
		http.Error(w, "issue failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tokenBody{AccessToken: access, RefreshToken: rt})
}

func (s *Server) handleRenew(w http.ResponseWriter, r *http.Request) {
	s.renewCalls.Add(1)

	if d := s.latency(); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	if s.failRenewals > 0 {
		s.failRenewals--
		status := s.failStatus
		s.mu.Unlock()
		http.Error(w, "injected failure", status)
		return
	}
	s.mu.Unlock()

	var in refreshBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	tok, err := refresh.Parse(in.RefreshToken)
	if err != nil {
		http.Error(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}

	next, username, status := s.rotate(tok)
	if status != http.StatusOK {
		http.Error(w, "invalid refresh token", status)
		return
	}

	s.mu.Lock()
	u := s.users[username]
	s.mu.Unlock()
	access, err := s.issuer.Issue(u.identity)
	if err != nil {
		http.Error(w, "issue failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tokenBody{AccessToken: access, RefreshToken: next.Encode()})
}

// rotate advances tok's family. Presenting an older generation revokes the family.
func (s *Server) rotate(tok refresh.Token) (refresh.Token, string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fam, ok := s.families[tok.Family]
	if !ok || fam.revoked {
		return refresh.Token{}, "", http.StatusUnauthorized
	}
	if tok.Generation != fam.generation || !tok.Matches(fam.hash) {
		if tok.Generation < fam.generation {
			s.reuses.Add(1)
			fam.revoked = true
		}
		return refresh.Token{}, "", http.StatusUnauthorized
	}

	next, err := tok.Next()
	if err != nil {
		return refresh.Token{}, "", http.StatusInternalServerError
	}
	fam.generation = next.Generation
	fam.hash = next.Hash()
	return next, fam.username, http.StatusOK
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.logoutCalls.Add(1)

	var in refreshBody
	_ = json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&in)
	if tok, err := refresh.Parse(in.RefreshToken); err == nil {
		s.mu.Lock()
		if fam, ok := s.families[tok.Family]; ok {
			fam.revoked = true
		}
		s.mu.Unlock()
	}
	if access, ok := bearer(r); ok {
		s.RevokeAccessToken(access)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) accessActive(_ context.Context, token string, _ *jwt.Claims) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectAll {
		return false
	}
	_, revoked := s.revokedAccess[token]
	return !revoked
}

func (s *Server) latency() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renewLatency
}

func (s *Server) countRejections(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		if rw.status == http.StatusUnauthorized {
			s.rejections.Add(1)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// WhoAmI is the body served at PathWhoAmI.
type WhoAmI struct {
	Subject string   `json:"sub"`
	UserID  string   `json:"userId"`
	Email   string   `json:"email"`
	Roles   []string `json:"roles"`
}

func handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	c, _ := middleware.ClaimsFromContext(r.Context())
	writeJSON(w, http.StatusOK, WhoAmI{Subject: c.Subject, UserID: c.UserID, Email: c.Email, Roles: c.Roles})
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, r.Body)
}

func bearer(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	v := r.Header.Get("Authorization")
	if len(v) <= len(prefix) || v[:len(prefix)] != prefix {
		return "", false
	}
	return v[len(prefix):], true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
