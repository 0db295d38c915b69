package handlers

import (
	"fmt"
	"strings"

	"keygate-bot/keygate/database/models"
	"keygate-bot/keygate/telegram"
)

// Callback data values routed by the update router.
const (
	cbVerify         = "verify"
	cbClaim          = "claim"
	cbAdminAddKeys   = "admin_add_keys"
	cbAdminStats     = "admin_stats"
	cbAdminAddChan   = "admin_add_channel"
	cbAdminRemChan   = "admin_remove_channel"
	cbAdminListChans = "admin_list_channels"
	cbAdminCooldown  = "admin_set_cooldown"
	cbAdminTemplate  = "admin_set_key_msg"
	cbAdminRecent    = "admin_recent_claims"
	cbAdminTop       = "admin_top_claimers"
	cbAdminPurge     = "admin_purge"
	cbPurgeConfirm   = "purge_confirm"
	cbPurgeCancel    = "purge_cancel"
)

func startKeyboard(channels []*models.Channel) *telegram.InlineKeyboardMarkup {
	kb := &telegram.InlineKeyboardMarkup{}
	for i, ch := range channels {
		kb.InlineKeyboard = append(kb.InlineKeyboard, []telegram.InlineKeyboardButton{{
			Text: fmt.Sprintf("📢 Join Channel %d", i+1),
			URL:  fmt.Sprintf("https://t.me/%s", strings.TrimPrefix(ch.Handle, "@")),
		}})
	}
	kb.InlineKeyboard = append(kb.InlineKeyboard,
		[]telegram.InlineKeyboardButton{{Text: "✅ Verify Membership", CallbackData: cbVerify}},
		[]telegram.InlineKeyboardButton{{Text: "🎁 Claim Your Key", CallbackData: cbClaim}},
	)
	return kb
}

func adminKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{
				{Text: "🔑 Add Keys", CallbackData: cbAdminAddKeys},
				{Text: "📊 View Stats", CallbackData: cbAdminStats},
			},
			{
				{Text: "📢 Add Channel", CallbackData: cbAdminAddChan},
				{Text: "❌ Remove Channel", CallbackData: cbAdminRemChan},
			},
			{
				{Text: "📋 List Channels", CallbackData: cbAdminListChans},
				{Text: "⏰ Set Cooldown", CallbackData: cbAdminCooldown},
			},
			{
				{Text: "💬 Custom Key Message", CallbackData: cbAdminTemplate},
				{Text: "🕘 Recent Claims", CallbackData: cbAdminRecent},
			},
			{
				{Text: "🏆 Top Claimers", CallbackData: cbAdminTop},
				{Text: "🧹 Purge Keys", CallbackData: cbAdminPurge},
			},
		},
	}
}

func purgeConfirmKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{
				{Text: "⚠️ Yes, delete everything", CallbackData: cbPurgeConfirm},
				{Text: "Cancel", CallbackData: cbPurgeCancel},
			},
		},
	}
}
