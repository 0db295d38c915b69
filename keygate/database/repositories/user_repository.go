package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"keygate-bot/keygate/database/models"

	"github.com/uptrace/bun"
)

type UserRepository interface {
	// Ensure upserts the user record: created on first contact, only
	// the display name refreshed afterwards.
	Ensure(ctx context.Context, userID int64, displayName string) error
	GetByID(ctx context.Context, userID int64) (*models.User, error)
	MarkVerified(ctx context.Context, userID int64) error
	Count(ctx context.Context) (int, error)
	TopClaimers(ctx context.Context, limit int) ([]*models.User, error)
}

type userRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Ensure(ctx context.Context, userID int64, displayName string) error {
	user := &models.User{
		UserID:      userID,
		DisplayName: displayName,
		FirstSeen:   time.Now(),
	}
	_, err := r.db.NewInsert().
		Model(user).
		On("CONFLICT (user_id) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Exec(ctx)
	return err
}

func (r *userRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		slog.Error("Failed to load user",
			slog.String("type", "db"),
			slog.Int64("user_id", userID),
			slog.Any("error", err))
		return nil, err
	}
	return user, nil
}

func (r *userRepository) MarkVerified(ctx context.Context, userID int64) error {
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("verified = TRUE").
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*models.User)(nil)).Count(ctx)
}

func (r *userRepository) TopClaimers(ctx context.Context, limit int) ([]*models.User, error) {
	var users []*models.User
	err := r.db.NewSelect().
		Model(&users).
		Where("total_claims > 0").
		Order("total_claims DESC").
		Limit(limit).
		Scan(ctx)
	return users, err
}
