package claims_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"keygate-bot/keygate/claims"
	"keygate-bot/keygate/claims/mock"
	"keygate-bot/keygate/database/models"
	"keygate-bot/keygate/database/repositories"
	"keygate-bot/keygate/membership"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type fixture struct {
	users    *mock.MockUserRepository
	claims   *mock.MockClaimRepository
	settings *mock.MockSettingsRepository
	verifier *mock.MockVerifier
	locks    *claims.LockTable
	clock    *fakeClock
	orch     *claims.Orchestrator
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		users:    mock.NewMockUserRepository(ctrl),
		claims:   mock.NewMockClaimRepository(ctrl),
		settings: mock.NewMockSettingsRepository(ctrl),
		verifier: mock.NewMockVerifier(ctrl),
		locks:    claims.NewLockTable(time.Minute),
		clock:    &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.orch = claims.NewOrchestrator(f.users, f.claims, f.settings, f.verifier, f.locks, f.clock)
	return f
}

func verifiedUser(userID int64, lastClaim *time.Time) *models.User {
	return &models.User{
		UserID:      userID,
		DisplayName: "tester",
		Verified:    true,
		LastClaimAt: lastClaim,
	}
}

func TestOrchestrator_Verify(t *testing.T) {
	tests := []struct {
		name         string
		verdict      membership.Verdict
		wantVerified bool
	}{
		{
			name:         "member of all channels",
			verdict:      membership.Verdict{Verified: true},
			wantVerified: true,
		},
		{
			name: "missing one channel",
			verdict: membership.Verdict{
				FailedChannel: "@chan_b",
				Reason:        membership.ReasonNotJoined,
			},
			wantVerified: false,
		},
		{
			name: "lookup failed is not a pass",
			verdict: membership.Verdict{
				FailedChannel: "@chan_a",
				Reason:        membership.ReasonLookupFailed,
			},
			wantVerified: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.verifier.EXPECT().Check(gomock.Any(), int64(42)).Return(tt.verdict, nil)
			if tt.wantVerified {
				f.users.EXPECT().MarkVerified(gomock.Any(), int64(42)).Return(nil)
			}

			verdict, err := f.orch.Verify(context.Background(), 42)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if verdict.Verified != tt.wantVerified {
				t.Errorf("Verify() verified = %v, want %v", verdict.Verified, tt.wantVerified)
			}
		})
	}
}

func TestOrchestrator_Claim_NotVerified(t *testing.T) {
	f := newFixture(t)
	f.users.EXPECT().GetByID(gomock.Any(), int64(42)).
		Return(&models.User{UserID: 42, Verified: false}, nil)

	_, err := f.orch.Claim(context.Background(), 42)
	if !errors.Is(err, claims.ErrNotVerified) {
		t.Errorf("Claim() error = %v, want ErrNotVerified", err)
	}
}

func TestOrchestrator_Claim_UnknownUser(t *testing.T) {
	f := newFixture(t)
	f.users.EXPECT().GetByID(gomock.Any(), int64(42)).
		Return(nil, repositories.ErrUserNotFound)

	_, err := f.orch.Claim(context.Background(), 42)
	if !errors.Is(err, claims.ErrNotVerified) {
		t.Errorf("Claim() error = %v, want ErrNotVerified", err)
	}
}

func TestOrchestrator_Claim_Cooldown(t *testing.T) {
	tests := []struct {
		name          string
		elapsed       time.Duration
		wantRemaining int
		wantGranted   bool
	}{
		{name: "one second after last claim", elapsed: time.Second, wantRemaining: 48},
		{name: "one hour left", elapsed: 47 * time.Hour, wantRemaining: 1},
		{name: "partial hour rounds up", elapsed: 46*time.Hour + 30*time.Minute, wantRemaining: 2},
		{name: "exactly at the boundary", elapsed: 48 * time.Hour, wantGranted: true},
		{name: "well past the boundary", elapsed: 72 * time.Hour, wantGranted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			lastClaim := f.clock.now.Add(-tt.elapsed)
			f.users.EXPECT().GetByID(gomock.Any(), int64(42)).
				Return(verifiedUser(42, &lastClaim), nil)
			f.settings.EXPECT().CooldownHours(gomock.Any()).Return(48, nil)
			if tt.wantGranted {
				f.claims.EXPECT().AssignNext(gomock.Any(), int64(42), f.clock.now).
					Return(&models.ClaimRecord{ID: 1, UserID: 42, KeyID: 7, KeyText: "KEY-1"}, nil)
			}

			record, err := f.orch.Claim(context.Background(), 42)
			if tt.wantGranted {
				if err != nil {
					t.Fatalf("Claim() error = %v, want nil", err)
				}
				if record.KeyText != "KEY-1" {
					t.Errorf("Claim() key = %q, want KEY-1", record.KeyText)
				}
				return
			}

			var cooldownErr *claims.CooldownActiveError
			if !errors.As(err, &cooldownErr) {
				t.Fatalf("Claim() error = %v, want CooldownActiveError", err)
			}
			if cooldownErr.HoursRemaining != tt.wantRemaining {
				t.Errorf("HoursRemaining = %d, want %d", cooldownErr.HoursRemaining, tt.wantRemaining)
			}
		})
	}
}

func TestOrchestrator_Claim_FirstClaimSkipsCooldown(t *testing.T) {
	f := newFixture(t)
	f.users.EXPECT().GetByID(gomock.Any(), int64(42)).
		Return(verifiedUser(42, nil), nil)
	f.settings.EXPECT().CooldownHours(gomock.Any()).Return(48, nil)
	f.claims.EXPECT().AssignNext(gomock.Any(), int64(42), f.clock.now).
		Return(&models.ClaimRecord{ID: 1, UserID: 42, KeyID: 1, KeyText: "KEY-1"}, nil)

	if _, err := f.orch.Claim(context.Background(), 42); err != nil {
		t.Fatalf("Claim() error = %v, want nil", err)
	}
}

func TestOrchestrator_Claim_PoolExhausted(t *testing.T) {
	f := newFixture(t)
	f.users.EXPECT().GetByID(gomock.Any(), int64(42)).
		Return(verifiedUser(42, nil), nil)
	f.settings.EXPECT().CooldownHours(gomock.Any()).Return(48, nil)
	f.claims.EXPECT().AssignNext(gomock.Any(), int64(42), f.clock.now).
		Return(nil, repositories.ErrPoolExhausted)

	_, err := f.orch.Claim(context.Background(), 42)
	if !errors.Is(err, repositories.ErrPoolExhausted) {
		t.Errorf("Claim() error = %v, want ErrPoolExhausted", err)
	}
}

func TestOrchestrator_Claim_InProgressRejected(t *testing.T) {
	f := newFixture(t)
	if !f.locks.Acquire(42) {
		t.Fatal("setup: could not acquire lock")
	}
	defer f.locks.Release(42)

	_, err := f.orch.Claim(context.Background(), 42)
	if !errors.Is(err, claims.ErrClaimInProgress) {
		t.Errorf("Claim() error = %v, want ErrClaimInProgress", err)
	}
}

func TestOrchestrator_Claim_ReleasesLockAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.users.EXPECT().GetByID(gomock.Any(), int64(42)).
		Return(&models.User{UserID: 42, Verified: false}, nil).Times(2)

	for i := 0; i < 2; i++ {
		if _, err := f.orch.Claim(context.Background(), 42); !errors.Is(err, claims.ErrNotVerified) {
			t.Fatalf("Claim() attempt %d error = %v, want ErrNotVerified", i+1, err)
		}
	}
}
