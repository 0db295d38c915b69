package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	// UserID is the Telegram user id.
	UserID      int64      `bun:"user_id,pk"`
	DisplayName string     `bun:"display_name"`
	Verified    bool       `bun:"verified,notnull,default:false"`
	LastClaimAt *time.Time `bun:"last_claim_at"`
	TotalClaims int        `bun:"total_claims,notnull,default:0"`
	FirstSeen   time.Time  `bun:"first_seen,notnull"`
}
