package flows

import (
	"context"

	"github.com/MrEthical07/goAuthClient/credstore"
)

// LogoutDeps captures logout flow dependencies. Logout may be nil when the backend has
// no logout endpoint.
type LogoutDeps struct {
	Load   func(context.Context) (*credstore.Record, error)
	Logout func(context.Context, credstore.Pair) error
	Clear  func(context.Context) error
}

// LogoutResult reports what happened to each side of the logout.
type LogoutResult struct {
	// Record is what was stored before the clear, nil when nothing was.
	Record *credstore.Record
	// BackendErr is informational; a failed backend call never blocks the local clear.
	BackendErr error
	// Err is the local clear error.
	Err error
}

// RunLogout tells the backend to revoke the stored refresh token (best effort) and then
// clears local credentials. Running it with nothing stored only performs the clear.
func RunLogout(ctx context.Context, deps LogoutDeps) LogoutResult {
	var res LogoutResult

	rec, err := deps.Load(ctx)
	if err != nil {
		res.BackendErr = err
	}
	res.Record = rec

	if rec != nil && rec.RefreshToken != "" && deps.Logout != nil {
		res.BackendErr = deps.Logout(ctx, rec.Pair)
	}

	res.Err = deps.Clear(ctx)
	return res
}
