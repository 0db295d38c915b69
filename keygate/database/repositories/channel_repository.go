package repositories

import (
	"context"
	"errors"

	"keygate-bot/keygate/database/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

type ChannelRepository interface {
	Add(ctx context.Context, handle string) (*models.Channel, error)
	Remove(ctx context.Context, handle string) error
	List(ctx context.Context) ([]*models.Channel, error)
}

type channelRepository struct {
	db *bun.DB
}

func NewChannelRepository(db *bun.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) Add(ctx context.Context, handle string) (*models.Channel, error) {
	channel := &models.Channel{Handle: models.NormalizeHandle(handle)}
	_, err := r.db.NewInsert().Model(channel).Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
			return nil, ErrDuplicateChannel
		}
		return nil, err
	}
	return channel, nil
}

func (r *channelRepository) Remove(ctx context.Context, handle string) error {
	res, err := r.db.NewDelete().
		Model((*models.Channel)(nil)).
		Where("handle = ?", models.NormalizeHandle(handle)).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrChannelNotFound
	}
	return nil
}

// List returns channels in registration order; the verifier depends on
// this ordering for its short-circuit policy.
func (r *channelRepository) List(ctx context.Context) ([]*models.Channel, error) {
	var channels []*models.Channel
	err := r.db.NewSelect().
		Model(&channels).
		Order("id ASC").
		Scan(ctx)
	return channels, err
}
