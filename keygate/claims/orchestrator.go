// Package claims holds the key-distribution state machine: who may
// claim, which key they get, and how the assignment is recorded.
package claims

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"keygate-bot/keygate/database/models"
	"keygate-bot/keygate/database/repositories"
	"keygate-bot/keygate/membership"
)

// Clock abstracts the wall clock so cooldown logic is deterministic in
// tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the real wall clock.
var SystemClock Clock = systemClock{}

// Verifier is the slice of the membership verifier the orchestrator
// needs.
type Verifier interface {
	Check(ctx context.Context, userID int64) (membership.Verdict, error)
}

// Orchestrator drives the per-user state machine:
// Unverified -> Verified (verify action approved by the verifier),
// Verified -> claim granted (cooldown elapsed, key available), back to
// Verified for the next window.
type Orchestrator struct {
	users    repositories.UserRepository
	claims   repositories.ClaimRepository
	settings repositories.SettingsRepository
	verifier Verifier
	locks    *LockTable
	clock    Clock
}

func NewOrchestrator(
	users repositories.UserRepository,
	claims repositories.ClaimRepository,
	settings repositories.SettingsRepository,
	verifier Verifier,
	locks *LockTable,
	clock Clock,
) *Orchestrator {
	return &Orchestrator{
		users:    users,
		claims:   claims,
		settings: settings,
		verifier: verifier,
		locks:    locks,
		clock:    clock,
	}
}

// Verify runs the membership check and, on success, marks the user
// verified. Re-verifying an already verified user is a no-op success.
func (o *Orchestrator) Verify(ctx context.Context, userID int64) (membership.Verdict, error) {
	verdict, err := o.verifier.Check(ctx, userID)
	if err != nil {
		return verdict, err
	}
	if !verdict.Verified {
		return verdict, nil
	}
	if err := o.users.MarkVerified(ctx, userID); err != nil {
		return verdict, err
	}
	return verdict, nil
}

// Claim grants the lowest-id unconsumed key to an eligible user.
// Eligibility is checked in order: verified flag, cooldown, key
// availability. The claim itself is a single transaction in the claim
// repository; this method never leaves partial state behind.
//
// The stored verified flag is trusted as-is; membership is not
// re-checked live at claim time (see DESIGN.md).
func (o *Orchestrator) Claim(ctx context.Context, userID int64) (*models.ClaimRecord, error) {
	if !o.locks.Acquire(userID) {
		return nil, ErrClaimInProgress
	}
	defer o.locks.Release(userID)

	user, err := o.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrNotVerified
		}
		return nil, err
	}
	if !user.Verified {
		return nil, ErrNotVerified
	}

	hours, err := o.settings.CooldownHours(ctx)
	if err != nil {
		return nil, err
	}

	now := o.clock.Now()
	if user.LastClaimAt != nil {
		cooldown := time.Duration(hours) * time.Hour
		elapsed := now.Sub(*user.LastClaimAt)
		if elapsed < cooldown {
			remaining := int(math.Ceil((cooldown - elapsed).Hours()))
			return nil, &CooldownActiveError{HoursRemaining: remaining}
		}
	}

	record, err := o.claims.AssignNext(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	slog.Info("Key assigned",
		slog.String("type", "cmd"),
		slog.Int64("user_id", userID),
		slog.Int64("key_id", record.KeyID),
		slog.Int64("claim_id", record.ID))
	return record, nil
}

// RecordDelivery attaches the delivery location to a claim record
// after the key message was sent.
func (o *Orchestrator) RecordDelivery(ctx context.Context, claimID, chatID, messageID int64) error {
	return o.claims.RecordDelivery(ctx, claimID, chatID, messageID)
}
