package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Key struct {
	bun.BaseModel `bun:"table:keys,alias:k"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Text         string    `bun:"text,notnull"`
	DurationDays int       `bun:"duration_days,notnull"`
	Label        string    `bun:"label"`
	Link         string    `bun:"link"`
	Consumed     bool      `bun:"consumed,notnull,default:false"`
	AddedAt      time.Time `bun:"added_at,notnull"`
}
