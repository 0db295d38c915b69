package claims

import (
	"errors"
	"fmt"
)

// ErrNotVerified is returned when the user has not completed (or never
// started) membership verification.
var ErrNotVerified = errors.New("user is not verified")

// ErrClaimInProgress is returned when the same user already has a
// claim in flight; rapid double-taps serialize here.
var ErrClaimInProgress = errors.New("claim already in progress")

// CooldownActiveError rejects a claim attempted before the cooldown
// elapsed. HoursRemaining is derived from the stored timestamp and the
// configured cooldown, rounded up so the user is never told zero.
type CooldownActiveError struct {
	HoursRemaining int
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("cooldown active: %d hours remaining", e.HoursRemaining)
}
