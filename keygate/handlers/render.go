package handlers

import (
	"fmt"
	"strconv"
	"strings"
)

const parseModeMarkdownV2 = "MarkdownV2"

// markdownEscaper covers every character MarkdownV2 treats as special.
var markdownEscaper = func() *strings.Replacer {
	const specials = `_*[]()~` + "`" + `>#+-=|{}.!`
	pairs := make([]string, 0, len(specials)*2)
	for _, ch := range specials {
		pairs = append(pairs, string(ch), `\`+string(ch))
	}
	return strings.NewReplacer(pairs...)
}()

func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// renderKeyMessage builds the message that delivers a key. When the
// operator configured a template, its {key}, {days} and {user}
// placeholders are substituted with already-escaped values; otherwise
// a default congratulation is used.
func renderKeyMessage(template, keyText string, durationDays int, userName string) string {
	escapedKey := escapeMarkdown(keyText)
	escapedDays := escapeMarkdown(strconv.Itoa(durationDays))
	escapedUser := escapeMarkdown(userName)

	if template != "" {
		msg := strings.ReplaceAll(template, "{key}", escapedKey)
		msg = strings.ReplaceAll(msg, "{days}", escapedDays)
		msg = strings.ReplaceAll(msg, "{user}", escapedUser)
		return msg
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🎉 *Congratulations %s\\!* 🎉\n\n", escapedUser)
	fmt.Fprintf(&sb, "🔑 *Your key:* `%s`\n", escapedKey)
	fmt.Fprintf(&sb, "⏰ *Valid for:* %s days\n\n", escapedDays)
	sb.WriteString("✅ Key activated successfully\\!")
	return sb.String()
}
