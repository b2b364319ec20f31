package renewal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthClient/credstore"
)

const defaultTimeout = 10 * time.Second

var (
	errEmptyAccessToken = errors.New("backend returned empty access token")
	errSuperseded       = fmt.Errorf("%w: session cleared or replaced during renewal", ErrRenewalAborted)
)

// Outcome describes a settled renewal cycle.
type Outcome struct {
	Cycle string
	// Waiters counts every caller that received the result, the originator included.
	Waiters  int
	Err      error
	// Cleared is set when the failed cycle wiped the store. A superseded cycle does not.
	Cleared  bool
	ClearErr error
	Duration time.Duration
}

// Deps captures coordinator dependencies.
type Deps struct {
	// RefreshToken returns the stored refresh token, "" when none is stored.
	RefreshToken func(context.Context) (string, error)
	// Renew exchanges a refresh token for a new pair. It must honor ctx cancellation.
	Renew func(ctx context.Context, refreshToken string) (credstore.Pair, error)
	// Persist stores the new pair and its derived claims as one write.
	Persist func(context.Context, credstore.Pair) error
	// Clear wipes the stored credentials after a failed cycle and on Coordinator.Clear.
	Clear func(context.Context) error

	// Timeout bounds the backend call. Zero means 10s.
	Timeout    time.Duration
	NewCycleID func() string

	OnStart  func(cycle string)
	OnJoin   func(cycle string)
	OnSettle func(Outcome)
}

// Coordinator runs at most one renewal at a time and fans its result out to every
// caller that arrived while it was running.
type Coordinator struct {
	deps Deps

	mu       sync.Mutex
	inFlight bool
	cycle    string
	waiters  []*waiter

	// storeMu serializes every write to the store. generation changes only under it.
	storeMu    sync.Mutex
	generation atomic.Uint64

	calls  atomic.Uint64
	cycles atomic.Uint64
}

type waiter struct {
	done  chan struct{}
	token string
	err   error
}

func newWaiter() *waiter {
	return &waiter{done: make(chan struct{})}
}

func (w *waiter) resolve(token string, err error) {
	w.token = token
	w.err = err
	close(w.done)
}

func (w *waiter) wait(ctx context.Context) (string, error) {
	select {
	case <-w.done:
		return w.token, w.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// NewCoordinator returns a Coordinator. RefreshToken, Renew and Persist are required.
func NewCoordinator(deps Deps) (*Coordinator, error) {
	if deps.RefreshToken == nil || deps.Renew == nil || deps.Persist == nil {
		return nil, errors.New("renewal coordinator requires RefreshToken, Renew and Persist")
	}
	if deps.Timeout <= 0 {
		deps.Timeout = defaultTimeout
	}
	return &Coordinator{deps: deps}, nil
}

// Renew returns a freshly renewed access token.
//
// If a cycle is already running the caller joins it and makes no backend call. A caller
// whose ctx ends while waiting returns ctx.Err(); the cycle itself keeps running and
// still settles that caller's entry. The backend call is detached from the originator's
// cancellation and bounded by Deps.Timeout instead.
func (c *Coordinator) Renew(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.inFlight {
		w := newWaiter()
		c.waiters = append(c.waiters, w)
		cycle := c.cycle
		c.mu.Unlock()
		if c.deps.OnJoin != nil {
			c.deps.OnJoin(cycle)
		}
		return w.wait(ctx)
	}

	w := newWaiter()
	cycle := c.newCycleID()
	c.inFlight = true
	c.cycle = cycle
	c.waiters = append(c.waiters, w)
	c.mu.Unlock()

	c.run(ctx, cycle)
	return w.token, w.err
}

// InFlight reports whether a cycle is running.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Pending returns the number of unsettled callers of the running cycle.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Calls returns how many backend renewal calls were made.
func (c *Coordinator) Calls() uint64 {
	return c.calls.Load()
}

// Cycles returns how many cycles were started.
func (c *Coordinator) Cycles() uint64 {
	return c.cycles.Load()
}

func (c *Coordinator) run(ctx context.Context, cycle string) {
	start := time.Now()
	c.cycles.Add(1)
	if c.deps.OnStart != nil {
		c.deps.OnStart(cycle)
	}

	gen := c.generation.Load()
	var token string
	var err error = &Error{Cycle: cycle, Err: ErrRenewalAborted}
	defer func() {
		c.settle(ctx, cycle, gen, token, err, start)
	}()

	token, err = c.attempt(ctx, cycle, gen)
}

// Clear wipes the store and supersedes any running cycle: that cycle will neither persist
// its pair nor clear again, and its callers receive ErrRenewalAborted.
func (c *Coordinator) Clear(ctx context.Context) error {
	if c.deps.Clear == nil {
		return errors.New("renewal coordinator has no Clear")
	}
	return c.Supersede(ctx, c.deps.Clear)
}

// Supersede runs write, typically saving a freshly logged-in pair, as the start of a new
// session. A cycle running at the time cannot overwrite what write stored.
func (c *Coordinator) Supersede(ctx context.Context, write func(context.Context) error) error {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	c.generation.Add(1)
	return write(ctx)
}

// writeIfCurrent runs write only while the session is still the one gen was taken from.
func (c *Coordinator) writeIfCurrent(ctx context.Context, gen uint64, write func(context.Context) error) (bool, error) {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	if c.generation.Load() != gen {
		return false, nil
	}
	return true, write(ctx)
}

func (c *Coordinator) attempt(ctx context.Context, cycle string, gen uint64) (string, error) {
	detached := context.WithoutCancel(ctx)

	refresh, err := c.deps.RefreshToken(detached)
	if err != nil {
		return "", &Error{Cycle: cycle, Err: fmt.Errorf("%w: %w", ErrRenewalFailed, err)}
	}
	if refresh == "" {
		return "", &Error{Cycle: cycle, Err: ErrNoRefreshToken}
	}

	callCtx, cancel := context.WithTimeout(detached, c.deps.Timeout)
	defer cancel()

	c.calls.Add(1)
	pair, err := c.deps.Renew(callCtx, refresh)
	if err != nil {
		return "", &Error{Cycle: cycle, Err: fmt.Errorf("%w: %w", ErrRenewalFailed, err)}
	}
	if pair.AccessToken == "" {
		return "", &Error{Cycle: cycle, Err: fmt.Errorf("%w: %w", ErrRenewalFailed, errEmptyAccessToken)}
	}

	written, err := c.writeIfCurrent(detached, gen, func(ctx context.Context) error {
		return c.deps.Persist(ctx, pair)
	})
	if err != nil {
		return "", &Error{Cycle: cycle, Err: fmt.Errorf("%w: persist: %w", ErrRenewalFailed, err)}
	}
	if !written {
		return "", &Error{Cycle: cycle, Err: errSuperseded}
	}
	return pair.AccessToken, nil
}

// settle clears the store on failure while the flag is still set, then resets the flag
// and resolves every waiter in enqueue order with the same result. A superseded cycle
// leaves the store to the session that replaced it.
func (c *Coordinator) settle(ctx context.Context, cycle string, gen uint64, token string, err error, start time.Time) {
	var cleared bool
	var clearErr error
	if err != nil && c.deps.Clear != nil {
		var current bool
		current, clearErr = c.writeIfCurrent(context.WithoutCancel(ctx), gen, c.deps.Clear)
		cleared = current && clearErr == nil
	}

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.inFlight = false
	c.cycle = ""
	c.mu.Unlock()

	for _, w := range waiters {
		w.resolve(token, err)
	}

	if c.deps.OnSettle != nil {
		c.deps.OnSettle(Outcome{
			Cycle:    cycle,
			Waiters:  len(waiters),
			Err:      err,
			Cleared:  cleared,
			ClearErr: clearErr,
			Duration: time.Since(start),
		})
	}
}

func (c *Coordinator) newCycleID() string {
	if c.deps.NewCycleID != nil {
		return c.deps.NewCycleID()
	}
	return fmt.Sprintf("c%d", c.cycles.Load()+1)
}
