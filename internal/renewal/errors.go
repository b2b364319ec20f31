package renewal

import "errors"

var (
	// ErrNoRefreshToken is returned when a renewal is attempted with no stored refresh token.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrRenewalFailed wraps backend, transport and persistence failures of a cycle.
	ErrRenewalFailed = errors.New("renewal failed")
	// ErrRenewalAborted is delivered to waiters when a cycle ends without producing a result.
	ErrRenewalAborted = errors.New("renewal aborted")
)

// Error tags a renewal failure with the cycle that produced it. Every waiter of a failed
// cycle receives the same *Error value.
type Error struct {
	Cycle string
	Err   error
}

func (e *Error) Error() string {
	return "renewal cycle " + e.Cycle + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CycleOf returns the cycle ID carried by err, or "".
func CycleOf(err error) string {
	var re *Error
	if errors.As(err, &re) {
		return re.Cycle
	}
	return ""
}
