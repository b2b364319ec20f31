package credstore

import (
	"encoding/base64"
	"errors"
	"reflect"
	"testing"
)

func testToken(payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"none"}`)) + "." + enc.EncodeToString([]byte(payload)) + ".sig"
}

func testRecord(t *testing.T, payload, refresh string) *Record {
	t.Helper()
	rec := NewRecord(Pair{AccessToken: testToken(payload), RefreshToken: refresh})
	if rec.Claims == nil {
		t.Fatalf("payload %s did not decode", payload)
	}
	return rec
}

func assertRecordEqual(t *testing.T, want, got *Record) {
	t.Helper()
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if want.Pair != got.Pair {
		t.Fatalf("pair mismatch: want %+v got %+v", want.Pair, got.Pair)
	}
	if !reflect.DeepEqual(want.Claims, got.Claims) {
		t.Fatalf("claims mismatch: want %+v got %+v", want.Claims, got.Claims)
	}
}

func TestEncodeWritesFullKeySpace(t *testing.T) {
	rec := testRecord(t, `{"sub":"alice","userId":"u-1","email":"a@example.com","roles":["admin","viewer"],"iat":1000,"exp":2000}`, "r-1")
	fields, err := Encode(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, k := range Fields {
		if _, ok := fields[k]; !ok {
			t.Fatalf("missing field %q", k)
		}
	}
	if fields[FieldRoles] != `["admin","viewer"]` || fields[FieldExpiresAt] != "2000" || fields[FieldIssuedAt] != "1000" {
		t.Fatalf("unexpected encoding: %v", fields)
	}
}

func TestEncodeOmitsIssuedAtAndEncodesEmptyRoles(t *testing.T) {
	fields, err := Encode(testRecord(t, `{"sub":"bob","exp":2000}`, "r"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, ok := fields[FieldIssuedAt]; ok {
		t.Fatal("issuedAt must be absent when the token has no iat")
	}
	if fields[FieldRoles] != "[]" {
		t.Fatalf("expected empty roles array, got %q", fields[FieldRoles])
	}
}

func TestEncodeWithoutClaimsKeepsTokensOnly(t *testing.T) {
	fields, err := Encode(NewRecord(Pair{AccessToken: "opaque", RefreshToken: "r"}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("expected only token fields, got %v", fields)
	}
	rec, err := Decode(fields)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Claims != nil || rec.AccessToken != "opaque" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestEncodeRejectsEmpty(t *testing.T) {
	if _, err := Encode(nil); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord for nil, got %v", err)
	}
	if _, err := Encode(&Record{}); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord for empty pair, got %v", err)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	rec := testRecord(t, `{"sub":"alice","userId":"u-1","roles":["a"],"iat":5,"exp":10}`, "r")
	fields, err := Encode(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(fields)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	assertRecordEqual(t, rec, got)
}

func TestDecodeEmptyAndCorrupt(t *testing.T) {
	if rec, err := Decode(map[string]string{}); rec != nil || err != nil {
		t.Fatalf("expected (nil, nil) for empty map, got %+v %v", rec, err)
	}

	cases := map[string]map[string]string{
		"expiresAt": {FieldAccessToken: "a", FieldExpiresAt: "soon"},
		"issuedAt":  {FieldAccessToken: "a", FieldExpiresAt: "10", FieldIssuedAt: "x"},
		"roles":     {FieldAccessToken: "a", FieldExpiresAt: "10", FieldRoles: "admin"},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(fields)
			if !IsCorrupt(err) {
				t.Fatalf("expected corrupt record error, got %v", err)
			}
		})
	}
}
