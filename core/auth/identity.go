package auth

import (
	"context"
	"time"
)

// State tracks the identity lifecycle.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	SignedOut
)

// Identity is the caller's resolved identity. It is threaded explicitly
// through every gateway call; there is no ambient global auth state.
type Identity struct {
	UserID int64
	Email  string
	State  State
}

// Anonymous is the degraded identity used when bootstrap cannot resolve a
// session in time. Writes attributed to it are rejected by the gateway.
func Anonymous() Identity {
	return Identity{State: Unauthenticated}
}

// IsAuthenticated reports whether the identity may attribute writes.
func (id Identity) IsAuthenticated() bool {
	return id.State == Authenticated && id.UserID != 0
}

// Bootstrap races an identity fetch against a timeout. On expiry or fetch
// failure the session proceeds with the anonymous identity in
// reduced-functionality mode rather than blocking the caller indefinitely.
func Bootstrap(ctx context.Context, fetch func(context.Context) (Identity, error), timeout time.Duration) Identity {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		id  Identity
		err error
	}
	ch := make(chan result, 1)

	go func() {
		id, err := fetch(ctx)
		ch <- result{id: id, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return Anonymous()
		}
		return res.id
	case <-ctx.Done():
		return Anonymous()
	}
}
