package jwt

import (
	"encoding/base64"
	"strings"
	"testing"
)

func segment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func compact(payload string) string {
	return segment(`{"alg":"none","typ":"JWT"}`) + "." + segment(payload) + ".sig"
}

func TestDecodeWellFormed(t *testing.T) {
	tok := compact(`{"sub":"alice","userId":"u-1","email":"a@example.com","roles":["admin","admin","","viewer"],"iat":1000,"exp":2000}`)
	c := Decode(tok)
	if c == nil {
		t.Fatal("expected claims")
	}
	if c.Subject != "alice" || c.UserID != "u-1" || c.Email != "a@example.com" {
		t.Fatalf("unexpected identity: %+v", c)
	}
	if c.IssuedAt != 1000 || c.ExpiresAt != 2000 {
		t.Fatalf("unexpected timing: iat=%d exp=%d", c.IssuedAt, c.ExpiresAt)
	}
	if len(c.Roles) != 2 || !c.HasRole("admin") || !c.HasRole("viewer") {
		t.Fatalf("unexpected roles: %v", c.Roles)
	}
	if !c.HasIssuedAt() {
		t.Fatal("expected iat present")
	}
}

func TestDecodeWithoutIssuedAt(t *testing.T) {
	c := Decode(compact(`{"sub":"bob","exp":2000}`))
	if c == nil {
		t.Fatal("expected claims")
	}
	if c.HasIssuedAt() {
		t.Fatal("expected no iat")
	}
	if c.Expiry().Unix() != 2000 {
		t.Fatalf("unexpected expiry %v", c.Expiry())
	}
}

func TestDecodeMalformedReturnsNil(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"one segment":    "abc",
		"two segments":   "a.b",
		"four segments":  "a.b.c.d",
		"bad base64":     "a.!!!.c",
		"not json":       "a." + segment("not-json") + ".c",
		"json array":     "a." + segment(`[1,2]`) + ".c",
		"missing exp":    compact(`{"sub":"x","iat":1}`),
		"exp wrong type": compact(`{"sub":"x","exp":"soon"}`),
		"roles not list": compact(`{"roles":"admin","exp":10}`),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			if c := Decode(tok); c != nil {
				t.Fatalf("expected nil, got %+v", c)
			}
		})
	}
}

func TestDecodeIgnoresSignatureSegment(t *testing.T) {
	tok := compact(`{"exp":99}`)
	parts := strings.Split(tok, ".")
	tampered := parts[0] + "." + parts[1] + ".completely-different"
	if c := Decode(tampered); c == nil || c.ExpiresAt != 99 {
		t.Fatalf("expected decode to ignore signature, got %+v", c)
	}
}

func TestClaimsCloneIsDeep(t *testing.T) {
	c := Decode(compact(`{"roles":["a"],"exp":5}`))
	cp := c.Clone()
	cp.Roles[0] = "b"
	if c.Roles[0] != "a" {
		t.Fatal("clone shares role slice")
	}
	var nilClaims *Claims
	if nilClaims.Clone() != nil || nilClaims.HasRole("a") || nilClaims.HasIssuedAt() {
		t.Fatal("nil claims helpers must be safe")
	}
}

func FuzzDecode(f *testing.F) {
	f.Add(compact(`{"exp":1}`))
	f.Add("a.b.c")
	f.Add("")
	f.Add("..")
	f.Fuzz(func(t *testing.T, tok string) {
		c := Decode(tok)
		if c != nil && strings.Count(tok, ".") != 2 {
			t.Fatalf("decoded claims from %d-segment token", strings.Count(tok, ".")+1)
		}
	})
}
