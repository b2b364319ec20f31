package middleware

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/jwt"
)

func newIssuer(t *testing.T) *jwt.Issuer {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	iss, err := jwt.NewIssuer(jwt.Config{
		AccessTTL:     time.Minute,
		SigningMethod: jwt.MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "test",
	})
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	return iss
}

func serve(h http.Handler, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRequireBearer(t *testing.T) {
	iss := newIssuer(t)
	token, err := iss.Issue(jwt.Identity{Subject: "alice", UserID: "u1", Roles: []string{"user"}})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	var seen *jwt.Claims
	h := RequireBearer(iss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		authz  string
		status int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"empty token", "Bearer   ", http.StatusUnauthorized},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h, tt.authz)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
			if tt.status == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") == "" {
				t.Fatal("401 must carry WWW-Authenticate")
			}
		})
	}
	if seen == nil || seen.UserID != "u1" {
		t.Fatalf("expected claims in context, got %+v", seen)
	}
}

func TestRequireActive(t *testing.T) {
	iss := newIssuer(t)
	token, _ := iss.Issue(jwt.Identity{Subject: "alice"})

	active := true
	h := RequireActive(iss, func(_ context.Context, tok string, c *jwt.Claims) bool {
		return active && tok == token && c.Subject == "alice"
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	if rr := serve(h, "Bearer "+token); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	active = false
	if rr := serve(h, "Bearer "+token); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for inactive token, got %d", rr.Code)
	}
}

func TestGuardNilVerifierRejects(t *testing.T) {
	h := Guard(nil, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))
	if rr := serve(h, "Bearer x"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireRole(t *testing.T) {
	iss := newIssuer(t)
	user, _ := iss.Issue(jwt.Identity{Subject: "alice", Roles: []string{"user"}})
	admin, _ := iss.Issue(jwt.Identity{Subject: "root", Roles: []string{"user", "admin"}})

	h := RequireBearer(iss)(RequireRole("admin", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	if rr := serve(h, "Bearer "+user); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if rr := serve(h, "Bearer "+admin); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}

	bare := RequireRole("admin", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	if rr := serve(bare, ""); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without claims, got %d", rr.Code)
	}
}
