package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"keygate-bot/keygate/admin"
	"keygate-bot/keygate/database/repositories"
	"keygate-bot/keygate/keypool"
	"keygate-bot/keygate/telegram"
)

func (r *Router) handleAdminMenu(ctx context.Context, msg *telegram.Message) error {
	if !r.bot.IsOperator(msg.From.ID, msg.From.Username) {
		r.sendPlain(ctx, msg.Chat.ID, "❌ You are not authorized.")
		return nil
	}

	text := fmt.Sprintf("🔐 *Admin Panel*\n\n👋 Welcome %s\\!\nChoose an option below:",
		escapeMarkdown(msg.From.DisplayName()))
	_, err := r.send(ctx, msg.Chat.ID, text, adminKeyboard())
	return err
}

func (r *Router) handleAdminCallback(ctx context.Context, cb *telegram.CallbackQuery) error {
	chatID := cb.From.ID
	if cb.Message != nil {
		chatID = cb.Message.Chat.ID
	}

	switch cb.Data {
	case cbAdminAddKeys:
		r.bot.Sessions.Set(cb.From.ID, admin.IntentAddKeys)
		r.answer(ctx, cb, "", false)
		_, err := r.send(ctx, chatID,
			"🔑 *Add New Keys*\n\n"+
				"📝 One key per line:\n"+
				"`key \\| duration\\_days \\| label \\| link`\n"+
				"Label and link are optional\\.\n\n"+
				"*Example:*\n`ABC123 \\| 30 \\| Premium \\| https://example\\.com`", nil)
		return err

	case cbAdminStats:
		r.answer(ctx, cb, "", false)
		return r.sendStats(ctx, chatID)

	case cbAdminAddChan:
		r.bot.Sessions.Set(cb.From.ID, admin.IntentAddChannel)
		r.answer(ctx, cb, "", false)
		_, err := r.send(ctx, chatID,
			"📢 *Add New Channel*\n\n"+
				"Send the channel username, e\\.g\\. `@channelname`\\.\n\n"+
				"⚠️ Add the bot as admin in the channel so it can check memberships\\.", nil)
		return err

	case cbAdminRemChan:
		r.bot.Sessions.Set(cb.From.ID, admin.IntentRemoveChannel)
		r.answer(ctx, cb, "", false)
		_, err := r.send(ctx, chatID,
			"❌ *Remove Channel*\n\nSend the channel username to remove, e\\.g\\. `@channelname`\\.", nil)
		return err

	case cbAdminListChans:
		r.answer(ctx, cb, "", false)
		return r.sendChannelList(ctx, chatID)

	case cbAdminCooldown:
		r.bot.Sessions.Set(cb.From.ID, admin.IntentSetCooldown)
		hours, err := r.bot.Settings.CooldownHours(ctx)
		if err != nil {
			r.answer(ctx, cb, internalErrMsg, true)
			return fmt.Errorf("load cooldown: %w", err)
		}
		r.answer(ctx, cb, "", false)
		_, err = r.send(ctx, chatID,
			fmt.Sprintf("⏰ *Set Cooldown Period*\n\nCurrent cooldown: *%d hours*\n\nSend the new cooldown in hours:", hours), nil)
		return err

	case cbAdminTemplate:
		r.bot.Sessions.Set(cb.From.ID, admin.IntentSetTemplate)
		r.answer(ctx, cb, "", false)
		_, err := r.send(ctx, chatID,
			"💬 *Customize Key Message*\n\n"+
				"*Available variables:*\n"+
				"`{key}` \\- the key text\n"+
				"`{days}` \\- duration in days\n"+
				"`{user}` \\- user's name\n\n"+
				"Send your custom message:", nil)
		return err

	case cbAdminRecent:
		r.answer(ctx, cb, "", false)
		return r.sendRecentClaims(ctx, chatID)

	case cbAdminTop:
		r.answer(ctx, cb, "", false)
		return r.sendTopClaimers(ctx, chatID)

	case cbAdminPurge:
		r.answer(ctx, cb, "", false)
		_, err := r.send(ctx, chatID,
			"🧹 *Purge Key Pool*\n\n"+
				"This deletes *every key* and *every claim record*, and resets all user cooldowns\\. "+
				"Channels and settings are kept\\.\n\nThis cannot be undone\\.",
			purgeConfirmKeyboard())
		return err

	case cbPurgeConfirm:
		if err := r.bot.Keys.Purge(ctx); err != nil {
			r.answer(ctx, cb, internalErrMsg, true)
			return fmt.Errorf("purge: %w", err)
		}
		r.answer(ctx, cb, "🧹 Purge completed.", true)
		return r.replaceOrSend(ctx, cb, chatID,
			"✅ Key pool purged\\. All keys and claim history removed, user cooldowns reset\\.")

	case cbPurgeCancel:
		r.answer(ctx, cb, "Purge canceled.", false)
		return r.replaceOrSend(ctx, cb, chatID, "Purge canceled\\. Nothing was deleted\\.")
	}

	return nil
}

// replaceOrSend edits the originating menu message in place, removing
// its keyboard, and falls back to a fresh message when the original is
// not available on the callback.
func (r *Router) replaceOrSend(ctx context.Context, cb *telegram.CallbackQuery, chatID int64, text string) error {
	if cb.Message != nil {
		err := r.bot.Telegram.EditMessageText(ctx, cb.Message.Chat.ID, cb.Message.MessageID, text, nil, parseModeMarkdownV2)
		if err == nil {
			return nil
		}
	}
	_, err := r.send(ctx, chatID, text, nil)
	return err
}

// handleOperatorInput interprets the operator's free-text message
// according to the pending intent. The intent is cleared before
// parsing so a malformed message never wedges the menu flow.
func (r *Router) handleOperatorInput(ctx context.Context, msg *telegram.Message) error {
	intent := r.bot.Sessions.Consume(msg.From.ID)
	if intent == admin.IntentNone {
		return nil
	}

	switch intent {
	case admin.IntentAddKeys:
		return r.ingestKeys(ctx, msg)
	case admin.IntentAddChannel:
		return r.addChannel(ctx, msg)
	case admin.IntentRemoveChannel:
		return r.removeChannel(ctx, msg)
	case admin.IntentSetCooldown:
		return r.setCooldown(ctx, msg)
	case admin.IntentSetTemplate:
		return r.setTemplate(ctx, msg)
	}
	return nil
}

func (r *Router) ingestKeys(ctx context.Context, msg *telegram.Message) error {
	keys, skipped := keypool.ParseBatch(msg.Text)
	added, err := r.bot.Keys.BulkCreate(ctx, keys)
	if err != nil {
		r.sendPlain(ctx, msg.Chat.ID, internalErrMsg)
		return fmt.Errorf("bulk add keys: %w", err)
	}

	text := fmt.Sprintf("✅ Added *%d* keys\\.", added)
	if skipped > 0 {
		text += fmt.Sprintf("\n⚠️ Skipped *%d* malformed lines\\.", skipped)
	}
	_, err = r.send(ctx, msg.Chat.ID, text, nil)
	return err
}

func (r *Router) addChannel(ctx context.Context, msg *telegram.Message) error {
	channel, err := r.bot.Channels.Add(ctx, msg.Text)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateChannel) {
			r.sendPlain(ctx, msg.Chat.ID, "❌ That channel is already registered.")
			return nil
		}
		r.sendPlain(ctx, msg.Chat.ID, internalErrMsg)
		return fmt.Errorf("add channel: %w", err)
	}
	_, err = r.send(ctx, msg.Chat.ID,
		fmt.Sprintf("✅ Channel %s added\\.\n\n⚠️ Don't forget to add the bot as admin in the channel\\!",
			escapeMarkdown(channel.Handle)), nil)
	return err
}

func (r *Router) removeChannel(ctx context.Context, msg *telegram.Message) error {
	if err := r.bot.Channels.Remove(ctx, msg.Text); err != nil {
		if errors.Is(err, repositories.ErrChannelNotFound) {
			r.sendPlain(ctx, msg.Chat.ID, "❌ No such channel in the registry.")
			return nil
		}
		r.sendPlain(ctx, msg.Chat.ID, internalErrMsg)
		return fmt.Errorf("remove channel: %w", err)
	}
	_, err := r.send(ctx, msg.Chat.ID,
		fmt.Sprintf("✅ Channel %s removed\\.", escapeMarkdown(strings.TrimSpace(msg.Text))), nil)
	return err
}

func (r *Router) setCooldown(ctx context.Context, msg *telegram.Message) error {
	hours, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil || hours <= 0 {
		r.sendPlain(ctx, msg.Chat.ID, "❌ Invalid number. Send a positive number of hours.")
		return nil
	}
	if err := r.bot.Settings.SetCooldownHours(ctx, hours); err != nil {
		r.sendPlain(ctx, msg.Chat.ID, internalErrMsg)
		return fmt.Errorf("set cooldown: %w", err)
	}
	_, err = r.send(ctx, msg.Chat.ID, fmt.Sprintf("✅ Cooldown set to *%d hours*\\.", hours), nil)
	return err
}

func (r *Router) setTemplate(ctx context.Context, msg *telegram.Message) error {
	if err := r.bot.Settings.SetKeyMessage(ctx, msg.Text); err != nil {
		r.sendPlain(ctx, msg.Chat.ID, internalErrMsg)
		return fmt.Errorf("set key message: %w", err)
	}
	_, err := r.send(ctx, msg.Chat.ID,
		fmt.Sprintf("✅ Custom key message saved\\.\n\n*Preview:*\n%s", escapeMarkdown(msg.Text)), nil)
	return err
}

func (r *Router) sendStats(ctx context.Context, chatID int64) error {
	pool, err := r.bot.Keys.Stats(ctx)
	if err != nil {
		r.sendPlain(ctx, chatID, internalErrMsg)
		return fmt.Errorf("key stats: %w", err)
	}
	users, err := r.bot.Users.Count(ctx)
	if err != nil {
		r.sendPlain(ctx, chatID, internalErrMsg)
		return fmt.Errorf("user count: %w", err)
	}
	claimCount, err := r.bot.Claims.Count(ctx)
	if err != nil {
		r.sendPlain(ctx, chatID, internalErrMsg)
		return fmt.Errorf("claim count: %w", err)
	}

	text := "📊 *Bot Statistics*\n\n" +
		fmt.Sprintf("🔑 Unused keys: *%d*\n", pool.Unconsumed) +
		fmt.Sprintf("✅ Used keys: *%d*\n", pool.Consumed) +
		fmt.Sprintf("👥 Total users: *%d*\n", users) +
		fmt.Sprintf("📜 Total claims: *%d*", claimCount)
	_, err = r.send(ctx, chatID, text, nil)
	return err
}

func (r *Router) sendChannelList(ctx context.Context, chatID int64) error {
	channels, err := r.bot.Channels.List(ctx)
	if err != nil {
		r.sendPlain(ctx, chatID, internalErrMsg)
		return fmt.Errorf("list channels: %w", err)
	}
	if len(channels) == 0 {
		r.sendPlain(ctx, chatID, "📢 No channels configured yet.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("📋 *Configured Channels:*\n\n")
	for i, ch := range channels {
		title := r.bot.Telegram.GetChatTitle(ctx, ch.Handle)
		if title != ch.Handle {
			fmt.Fprintf(&sb, "%d\\. %s — %s\n", i+1, escapeMarkdown(ch.Handle), escapeMarkdown(title))
		} else {
			fmt.Fprintf(&sb, "%d\\. %s\n", i+1, escapeMarkdown(ch.Handle))
		}
	}
	_, err = r.send(ctx, chatID, sb.String(), nil)
	return err
}

func (r *Router) sendRecentClaims(ctx context.Context, chatID int64) error {
	records, err := r.bot.Claims.Recent(ctx, 10)
	if err != nil {
		r.sendPlain(ctx, chatID, internalErrMsg)
		return fmt.Errorf("recent claims: %w", err)
	}
	if len(records) == 0 {
		r.sendPlain(ctx, chatID, "🕘 No claims yet.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("🕘 *Recent Claims:*\n\n")
	for _, rec := range records {
		fmt.Fprintf(&sb, "• user `%d` → `%s` on %s\n",
			rec.UserID,
			escapeMarkdown(rec.KeyText),
			escapeMarkdown(rec.AssignedAt.Format("2006-01-02 15:04")))
	}
	_, err = r.send(ctx, chatID, sb.String(), nil)
	return err
}

func (r *Router) sendTopClaimers(ctx context.Context, chatID int64) error {
	users, err := r.bot.Users.TopClaimers(ctx, 10)
	if err != nil {
		r.sendPlain(ctx, chatID, internalErrMsg)
		return fmt.Errorf("top claimers: %w", err)
	}
	if len(users) == 0 {
		r.sendPlain(ctx, chatID, "🏆 No claimers yet.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("🏆 *Top Claimers:*\n\n")
	for i, u := range users {
		fmt.Fprintf(&sb, "%d\\. %s — *%d* claims\n", i+1, escapeMarkdown(u.DisplayName), u.TotalClaims)
	}
	_, err = r.send(ctx, chatID, sb.String(), nil)
	return err
}
