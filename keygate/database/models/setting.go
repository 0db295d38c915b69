package models

import "github.com/uptrace/bun"

type Setting struct {
	bun.BaseModel `bun:"table:settings,alias:s"`

	Name  string `bun:"name,pk"`
	Value string `bun:"value,notnull"`
}

// Setting names.
const (
	SettingCooldownHours = "cooldown_hours"
	SettingKeyMessage    = "key_message"
)

// DefaultCooldownHours applies when no cooldown_hours setting exists.
const DefaultCooldownHours = 48
