package models

import (
	"strings"

	"github.com/uptrace/bun"
)

// Channel is a membership gate: a group the user must belong to before
// they may claim a key.
type Channel struct {
	bun.BaseModel `bun:"table:channels,alias:ch"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Handle string `bun:"handle,notnull,unique"`
}

// NormalizeHandle canonicalizes a channel handle to the "@handle" form
// used for storage and comparison.
func NormalizeHandle(handle string) string {
	h := strings.TrimSpace(handle)
	if h == "" {
		return h
	}
	if !strings.HasPrefix(h, "@") {
		h = "@" + h
	}
	return h
}
