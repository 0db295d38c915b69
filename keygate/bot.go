// Package keygate wires the bot's components together.
package keygate

import (
	"strings"
	"time"

	"keygate-bot/keygate/admin"
	"keygate-bot/keygate/claims"
	"keygate-bot/keygate/database"
	"keygate-bot/keygate/database/repositories"
	"keygate-bot/keygate/membership"
	"keygate-bot/keygate/telegram"
)

// Bot aggregates every long-lived dependency. main builds it once and
// hands it to the update router.
type Bot struct {
	Cfg     Config
	Version string

	DB       *database.DB
	Telegram *telegram.Client

	Channels repositories.ChannelRepository
	Users    repositories.UserRepository
	Keys     repositories.KeyRepository
	Claims   repositories.ClaimRepository
	Settings repositories.SettingsRepository

	Verifier     *membership.Verifier
	Orchestrator *claims.Orchestrator
	Sessions     *admin.Sessions

	StartedAt time.Time
}

func New(cfg Config, version string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Version:   version,
		Sessions:  admin.NewSessions(),
		StartedAt: time.Now(),
	}
}

// IsOperator reports whether the given identity is the configured
// operator. Only the operator may drive the admin surface.
func (b *Bot) IsOperator(userID int64, username string) bool {
	if b.Cfg.Bot.AdminID != 0 && userID == b.Cfg.Bot.AdminID {
		return true
	}
	if b.Cfg.Bot.AdminUsername != "" && username != "" {
		want := strings.ToLower(strings.TrimPrefix(b.Cfg.Bot.AdminUsername, "@"))
		got := strings.ToLower(strings.TrimPrefix(username, "@"))
		return want == got
	}
	return false
}
