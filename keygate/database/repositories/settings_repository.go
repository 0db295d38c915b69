package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"keygate-bot/keygate/database/models"

	"github.com/uptrace/bun"
)

type SettingsRepository interface {
	CooldownHours(ctx context.Context) (int, error)
	SetCooldownHours(ctx context.Context, hours int) error
	// KeyMessage returns the operator's message template, or "" when
	// the default message should be used.
	KeyMessage(ctx context.Context) (string, error)
	SetKeyMessage(ctx context.Context, template string) error
}

type settingsRepository struct {
	db *bun.DB
}

func NewSettingsRepository(db *bun.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) get(ctx context.Context, name string) (string, error) {
	setting := new(models.Setting)
	err := r.db.NewSelect().
		Model(setting).
		Where("name = ?", name).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (r *settingsRepository) set(ctx context.Context, name, value string) error {
	setting := &models.Setting{Name: name, Value: value}
	_, err := r.db.NewInsert().
		Model(setting).
		On("CONFLICT (name) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return err
}

func (r *settingsRepository) CooldownHours(ctx context.Context) (int, error) {
	value, err := r.get(ctx, models.SettingCooldownHours)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return models.DefaultCooldownHours, nil
	}
	hours, err := strconv.Atoi(value)
	if err != nil || hours <= 0 {
		// A corrupt row must never open the gate.
		return models.DefaultCooldownHours, nil
	}
	return hours, nil
}

func (r *settingsRepository) SetCooldownHours(ctx context.Context, hours int) error {
	return r.set(ctx, models.SettingCooldownHours, strconv.Itoa(hours))
}

func (r *settingsRepository) KeyMessage(ctx context.Context) (string, error) {
	return r.get(ctx, models.SettingKeyMessage)
}

func (r *settingsRepository) SetKeyMessage(ctx context.Context, template string) error {
	return r.set(ctx, models.SettingKeyMessage, template)
}
