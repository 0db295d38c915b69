// Package keypool parses the operator's bulk key submissions.
package keypool

import (
	"strconv"
	"strings"

	"keygate-bot/keygate/database/models"
)

// ParseBatch parses free-form multi-line input, one key per line:
//
//	key text | duration_days [| label [| link]]
//
// Lines that are missing the duration or carry a non-positive or
// non-numeric duration are skipped and counted; the rest of the batch
// still goes through. Blank lines are ignored silently.
func ParseBatch(input string) (keys []*models.Key, skipped int) {
	for _, line := range strings.Split(input, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		if len(parts) < 2 || parts[0] == "" {
			skipped++
			continue
		}
		days, err := strconv.Atoi(parts[1])
		if err != nil || days <= 0 {
			skipped++
			continue
		}

		key := &models.Key{
			Text:         parts[0],
			DurationDays: days,
		}
		if len(parts) > 2 {
			key.Label = parts[2]
		}
		if len(parts) > 3 {
			key.Link = parts[3]
		}
		keys = append(keys, key)
	}
	return keys, skipped
}
