// Package handlers routes inbound Telegram updates to the core:
// the user verify/claim flow and the operator's admin surface.
package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"keygate-bot/keygate"
	"keygate-bot/keygate/telegram"
)

type Router struct {
	bot *keygate.Bot
}

func NewRouter(bot *keygate.Bot) *Router {
	return &Router{bot: bot}
}

// HandleUpdate is the poller's entry point. Each update is one short,
// bounded unit of work; failures are scoped to the interaction.
func (r *Router) HandleUpdate(ctx context.Context, update telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		r.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		r.handleMessage(ctx, update.Message)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *telegram.Message) {
	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		r.logged("start", msg.From, func() error {
			return r.handleStart(ctx, msg)
		})
	case strings.HasPrefix(text, "/admin"):
		r.logged("admin", msg.From, func() error {
			return r.handleAdminMenu(ctx, msg)
		})
	default:
		// Free text is only meaningful as an operator follow-up to a
		// menu selection.
		if r.bot.IsOperator(msg.From.ID, msg.From.Username) {
			r.logged("admin_input", msg.From, func() error {
				return r.handleOperatorInput(ctx, msg)
			})
		}
	}
}

func (r *Router) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	switch cb.Data {
	case cbVerify:
		r.logged("verify", &cb.From, func() error {
			return r.handleVerify(ctx, cb)
		})
	case cbClaim:
		r.logged("claim", &cb.From, func() error {
			return r.handleClaim(ctx, cb)
		})
	default:
		if !r.bot.IsOperator(cb.From.ID, cb.From.Username) {
			return
		}
		r.logged("admin_action", &cb.From, func() error {
			return r.handleAdminCallback(ctx, cb)
		})
	}
}

// logged wraps a handler with the command log pair, mirroring how
// command execution is traced everywhere else in the codebase.
func (r *Router) logged(name string, from *telegram.User, fn func() error) {
	start := time.Now()
	err := fn()
	attrs := []any{
		slog.String("type", "cmd"),
		slog.String("name", name),
		slog.Int64("user_id", from.ID),
		slog.String("user_name", from.DisplayName()),
		slog.Duration("took", time.Since(start)),
	}
	if err != nil {
		slog.Error("Command failed", append(attrs, slog.Any("error", err))...)
		return
	}
	slog.Info("Command completed", attrs...)
}

func (r *Router) send(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) (*telegram.Message, error) {
	return r.bot.Telegram.SendMessage(ctx, chatID, text, markup, parseModeMarkdownV2)
}

func (r *Router) answer(ctx context.Context, cb *telegram.CallbackQuery, text string, alert bool) {
	if err := r.bot.Telegram.AnswerCallbackQuery(ctx, cb.ID, text, alert); err != nil {
		slog.Warn("Failed to answer callback",
			slog.String("type", "tg"),
			slog.Any("error", err))
	}
}
