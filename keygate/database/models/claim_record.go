package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ClaimRecord is the append-only audit trail: one row per successful
// key assignment. KeyText is a snapshot taken at assignment time.
type ClaimRecord struct {
	bun.BaseModel `bun:"table:claim_records,alias:cr"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     int64     `bun:"user_id,notnull"`
	KeyID      int64     `bun:"key_id,notnull"`
	KeyText    string    `bun:"key_text,notnull"`
	AssignedAt time.Time `bun:"assigned_at,notnull"`
	ExpiresAt  time.Time `bun:"expires_at,notnull"`

	// Delivery reference: where the key message landed.
	ChatID    int64 `bun:"chat_id"`
	MessageID int64 `bun:"message_id"`
}
