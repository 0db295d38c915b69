package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"keygate-bot/keygate/claims"
	"keygate-bot/keygate/database/repositories"
	"keygate-bot/keygate/membership"
	"keygate-bot/keygate/telegram"
)

const internalErrMsg = "Something went wrong. Please try again later."

func (r *Router) handleStart(ctx context.Context, msg *telegram.Message) error {
	if err := r.bot.Users.Ensure(ctx, msg.From.ID, msg.From.DisplayName()); err != nil {
		r.sendPlain(ctx, msg.Chat.ID, internalErrMsg)
		return fmt.Errorf("enroll user: %w", err)
	}

	channels, err := r.bot.Channels.List(ctx)
	if err != nil {
		r.sendPlain(ctx, msg.Chat.ID, internalErrMsg)
		return fmt.Errorf("list channels: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🌟 *Welcome %s\\!* 🌟\n\n", escapeMarkdown(msg.From.DisplayName()))
	sb.WriteString("📋 *Follow these steps:*\n")
	sb.WriteString("1\\. Join all channels below\n")
	sb.WriteString("2\\. Tap ✅ Verify Membership\n")
	sb.WriteString("3\\. Tap 🎁 Claim Your Key")

	_, err = r.send(ctx, msg.Chat.ID, sb.String(), startKeyboard(channels))
	return err
}

func (r *Router) handleVerify(ctx context.Context, cb *telegram.CallbackQuery) error {
	if err := r.bot.Users.Ensure(ctx, cb.From.ID, cb.From.DisplayName()); err != nil {
		r.answer(ctx, cb, internalErrMsg, true)
		return fmt.Errorf("enroll user: %w", err)
	}

	verdict, err := r.bot.Orchestrator.Verify(ctx, cb.From.ID)
	if err != nil {
		r.answer(ctx, cb, internalErrMsg, true)
		return fmt.Errorf("verify: %w", err)
	}

	switch {
	case verdict.Verified:
		r.answer(ctx, cb, "✅ Verification successful!", true)
	case verdict.Reason == membership.ReasonLookupFailed:
		r.answer(ctx, cb, fmt.Sprintf("❌ Could not check %s. The bot may not be an admin in that channel.", verdict.FailedChannel), true)
	default:
		r.answer(ctx, cb, fmt.Sprintf("Please join %s first!", verdict.FailedChannel), true)
	}
	return nil
}

func (r *Router) handleClaim(ctx context.Context, cb *telegram.CallbackQuery) error {
	if err := r.bot.Users.Ensure(ctx, cb.From.ID, cb.From.DisplayName()); err != nil {
		r.answer(ctx, cb, internalErrMsg, true)
		return fmt.Errorf("enroll user: %w", err)
	}

	record, err := r.bot.Orchestrator.Claim(ctx, cb.From.ID)
	if err != nil {
		var cooldown *claims.CooldownActiveError
		switch {
		case errors.Is(err, claims.ErrNotVerified):
			r.answer(ctx, cb, "❗ Please verify your membership first.", true)
			return nil
		case errors.As(err, &cooldown):
			r.answer(ctx, cb, fmt.Sprintf("⏳ Please wait %d more hours before your next claim.", cooldown.HoursRemaining), true)
			return nil
		case errors.Is(err, repositories.ErrPoolExhausted):
			r.answer(ctx, cb, "❌ No keys available right now. Please try again later.", true)
			return nil
		case errors.Is(err, claims.ErrClaimInProgress):
			r.answer(ctx, cb, "⏳ Your previous claim is still being processed.", true)
			return nil
		default:
			r.answer(ctx, cb, internalErrMsg, true)
			return fmt.Errorf("claim: %w", err)
		}
	}

	template, err := r.bot.Settings.KeyMessage(ctx)
	if err != nil {
		// The key is already assigned; fall back to the default text
		// rather than failing the delivery.
		slog.Warn("Failed to load key message template",
			slog.String("type", "db"),
			slog.Any("error", err))
		template = ""
	}

	days := int(record.ExpiresAt.Sub(record.AssignedAt).Hours() / 24)
	text := renderKeyMessage(template, record.KeyText, days, cb.From.DisplayName())

	chatID := cb.From.ID
	if cb.Message != nil {
		chatID = cb.Message.Chat.ID
	}
	sent, err := r.send(ctx, chatID, text, nil)
	if err != nil {
		r.answer(ctx, cb, "🎁 Key assigned! Check your chat history shortly.", true)
		return fmt.Errorf("deliver key: %w", err)
	}

	if err := r.bot.Orchestrator.RecordDelivery(ctx, record.ID, sent.Chat.ID, sent.MessageID); err != nil {
		slog.Warn("Failed to record delivery location",
			slog.String("type", "db"),
			slog.Int64("claim_id", record.ID),
			slog.Any("error", err))
	}

	r.answer(ctx, cb, "🎁 Key assigned successfully!", false)
	return nil
}

// sendPlain sends without markdown, for error texts that must never
// fail escaping.
func (r *Router) sendPlain(ctx context.Context, chatID int64, text string) {
	if _, err := r.bot.Telegram.SendMessage(ctx, chatID, text, nil, ""); err != nil {
		slog.Warn("Failed to send message",
			slog.String("type", "tg"),
			slog.Int64("chat_id", chatID),
			slog.Any("error", err))
	}
}
