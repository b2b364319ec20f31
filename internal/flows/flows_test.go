package flows

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/MrEthical07/goAuthClient/credstore"
)

func accessToken(payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"none"}`)) + "." + enc.EncodeToString([]byte(payload)) + ".sig"
}

func TestRunLoginStoresRecord(t *testing.T) {
	store := credstore.NewMemoryStore()
	res := RunLogin(context.Background(), "alice", "pw", LoginDeps{
		Login: func(ctx context.Context, u, p string) (credstore.Pair, error) {
			return credstore.Pair{AccessToken: accessToken(`{"sub":"alice","exp":10}`), RefreshToken: "r"}, nil
		},
		Save: store.Save,
	})
	if res.Failure != LoginFailureNone || res.Err != nil {
		t.Fatalf("unexpected failure %v: %v", res.Failure, res.Err)
	}
	rec, _ := store.Load(context.Background())
	if rec == nil || rec.Claims.Subject != "alice" {
		t.Fatalf("record not stored: %+v", rec)
	}
}

func TestRunLoginFailures(t *testing.T) {
	backendErr := errors.New("401")
	cases := []struct {
		name     string
		username string
		pair     credstore.Pair
		loginErr error
		saveErr  error
		want     LoginFailureKind
	}{
		{name: "blank username", username: " ", want: LoginFailureInvalidInput},
		{name: "backend", username: "a", loginErr: backendErr, want: LoginFailureBackend},
		{name: "opaque access token", username: "a", pair: credstore.Pair{AccessToken: "opaque", RefreshToken: "r"}, want: LoginFailureMalformedToken},
		{name: "missing refresh token", username: "a", pair: credstore.Pair{AccessToken: accessToken(`{"exp":1}`)}, want: LoginFailureMalformedToken},
		{name: "persist", username: "a", pair: credstore.Pair{AccessToken: accessToken(`{"exp":1}`), RefreshToken: "r"}, saveErr: credstore.ErrStoreUnavailable, want: LoginFailurePersist},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			saved := false
			res := RunLogin(context.Background(), tc.username, "pw", LoginDeps{
				Login: func(context.Context, string, string) (credstore.Pair, error) { return tc.pair, tc.loginErr },
				Save: func(context.Context, *credstore.Record) error {
					saved = true
					return tc.saveErr
				},
			})
			if res.Failure != tc.want {
				t.Fatalf("got failure %v want %v (err=%v)", res.Failure, tc.want, res.Err)
			}
			if saved && tc.want != LoginFailurePersist {
				t.Fatal("nothing should be saved on failure")
			}
		})
	}
}

func TestRunLogoutBestEffort(t *testing.T) {
	store := credstore.NewMemoryStore()
	ctx := context.Background()
	_ = store.Save(ctx, credstore.NewRecord(credstore.Pair{AccessToken: accessToken(`{"exp":1}`), RefreshToken: "r"}))

	var revoked string
	res := RunLogout(ctx, LogoutDeps{
		Load: store.Load,
		Logout: func(_ context.Context, p credstore.Pair) error {
			revoked = p.RefreshToken
			return errors.New("backend down")
		},
		Clear: store.Clear,
	})
	if revoked != "r" {
		t.Fatal("expected backend logout with stored refresh token")
	}
	if res.BackendErr == nil || res.Err != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if store.Fields() != nil {
		t.Fatal("expected local credentials cleared despite backend failure")
	}

	calls := 0
	res = RunLogout(ctx, LogoutDeps{
		Load:   store.Load,
		Logout: func(context.Context, credstore.Pair) error { calls++; return nil },
		Clear:  store.Clear,
	})
	if calls != 0 || res.Record != nil || res.Err != nil {
		t.Fatalf("second logout must only clear, got calls=%d res=%+v", calls, res)
	}
}
