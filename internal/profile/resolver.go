// Package profile is the adapter to the external identity and preference
// store. Admission depends on it: a profile fetch failure blocks admission,
// while a preference lookup failure only degrades the session to the default
// random policy.
package profile

import (
	"context"
	"errors"

	"github.com/crosstalk/debate-app/internal/session"
)

// ErrProfileUnavailable is returned when the identity store cannot supply a
// profile for the identity. Admission must be rejected; the identity is
// never enqueued.
var ErrProfileUnavailable = errors.New("profile: profile unavailable")

// Resolver fetches a user's profile attributes and matching preferences.
type Resolver interface {
	Fetch(ctx context.Context, identity string) (session.Profile, session.Preferences, error)
}
