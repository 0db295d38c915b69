package repositories

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"keygate-bot/keygate/database/models"

	"github.com/uptrace/bun"
)

// PoolStats are the operator-facing key pool counters.
type PoolStats struct {
	Unconsumed int
	Consumed   int
}

type KeyRepository interface {
	// BulkCreate inserts the given keys and returns how many were
	// added. Validation happens before this call; the batch is not
	// all-or-nothing at the parse level, but the insert itself is one
	// statement.
	BulkCreate(ctx context.Context, keys []*models.Key) (int, error)
	Stats(ctx context.Context) (PoolStats, error)
	// Purge irreversibly deletes every key and every claim record and
	// resets all users' claim counters and timestamps. Channels and
	// settings are untouched.
	Purge(ctx context.Context) error
}

type keyRepository struct {
	db *bun.DB
}

func NewKeyRepository(db *bun.DB) KeyRepository {
	return &keyRepository{db: db}
}

func (r *keyRepository) BulkCreate(ctx context.Context, keys []*models.Key) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	now := time.Now()
	for _, k := range keys {
		k.AddedAt = now
	}
	res, err := r.db.NewInsert().Model(&keys).Exec(ctx)
	if err != nil {
		return 0, err
	}
	added, err := res.RowsAffected()
	if err != nil {
		added = int64(len(keys))
	}
	return int(added), nil
}

func (r *keyRepository) Stats(ctx context.Context) (PoolStats, error) {
	var stats PoolStats
	var err error
	stats.Unconsumed, err = r.db.NewSelect().
		Model((*models.Key)(nil)).
		Where("consumed = FALSE").
		Count(ctx)
	if err != nil {
		return stats, err
	}
	stats.Consumed, err = r.db.NewSelect().
		Model((*models.Key)(nil)).
		Where("consumed = TRUE").
		Count(ctx)
	return stats, err
}

func (r *keyRepository) Purge(ctx context.Context) error {
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.Key)(nil)).Where("TRUE").Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.ClaimRecord)(nil)).Where("TRUE").Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("last_claim_at = NULL").
			Set("total_claims = 0").
			Where("TRUE").
			Exec(ctx)
		return err
	})
	if err != nil {
		slog.Error("Purge failed",
			slog.String("type", "db"),
			slog.Any("error", err))
		return err
	}
	slog.Warn("Key pool purged",
		slog.String("type", "db"))
	return nil
}
