// Package membership decides whether a user satisfies every registered
// channel gate.
package membership

import (
	"context"
	"log/slog"

	"keygate-bot/keygate/database/repositories"
)

// Status is the three-valued outcome of a single membership lookup.
// Callers must handle all three: a failed lookup is not a pass.
type Status int

const (
	StatusMember Status = iota
	StatusNotMember
	StatusLookupFailed
)

// Checker is the group-membership capability supplied by the chat
// transport. Implementations must bound the lookup with a timeout; a
// timed-out lookup reports StatusLookupFailed.
type Checker interface {
	CheckMembership(ctx context.Context, channelHandle string, userID int64) Status
}

// FailureReason distinguishes why a gate was unmet so handlers can
// render different guidance. Both mean "not verified".
type FailureReason int

const (
	ReasonNone FailureReason = iota
	// ReasonNotJoined: the lookup succeeded and the user is not a
	// member/admin/owner of the channel.
	ReasonNotJoined
	// ReasonLookupFailed: the lookup itself failed, commonly because
	// the bot is not an admin in the channel.
	ReasonLookupFailed
)

type Verdict struct {
	Verified      bool
	FailedChannel string
	Reason        FailureReason
}

type Verifier struct {
	channels repositories.ChannelRepository
	checker  Checker
}

func NewVerifier(channels repositories.ChannelRepository, checker Checker) *Verifier {
	return &Verifier{channels: channels, checker: checker}
}

// Check iterates the registry in registration order and stops at the
// first unmet gate. Remaining channels are not consulted. An empty
// registry is vacuously verified.
func (v *Verifier) Check(ctx context.Context, userID int64) (Verdict, error) {
	channels, err := v.channels.List(ctx)
	if err != nil {
		return Verdict{}, err
	}

	for _, channel := range channels {
		switch v.checker.CheckMembership(ctx, channel.Handle, userID) {
		case StatusMember:
			continue
		case StatusNotMember:
			return Verdict{FailedChannel: channel.Handle, Reason: ReasonNotJoined}, nil
		case StatusLookupFailed:
			slog.Warn("Membership lookup failed",
				slog.String("type", "tg"),
				slog.String("channel", channel.Handle),
				slog.Int64("user_id", userID))
			return Verdict{FailedChannel: channel.Handle, Reason: ReasonLookupFailed}, nil
		}
	}

	return Verdict{Verified: true}, nil
}
