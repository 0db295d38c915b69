package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"keygate-bot/keygate/database/models"

	"github.com/uptrace/bun"
)

type ClaimRepository interface {
	// AssignNext atomically consumes the lowest-id unconsumed key for
	// userID and writes the full claim: key marked consumed, user's
	// last_claim_at and total_claims advanced, claim record appended.
	// All four effects commit together or not at all. Returns
	// ErrPoolExhausted when no key is available.
	AssignNext(ctx context.Context, userID int64, now time.Time) (*models.ClaimRecord, error)
	// RecordDelivery stores where the key message landed, for the
	// audit trail only.
	RecordDelivery(ctx context.Context, claimID int64, chatID int64, messageID int64) error
	Recent(ctx context.Context, limit int) ([]*models.ClaimRecord, error)
	Count(ctx context.Context) (int, error)
}

type claimRepository struct {
	db *bun.DB
}

func NewClaimRepository(db *bun.DB) ClaimRepository {
	return &claimRepository{db: db}
}

func (r *claimRepository) AssignNext(ctx context.Context, userID int64, now time.Time) (*models.ClaimRecord, error) {
	var record *models.ClaimRecord

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for {
			key := new(models.Key)
			err := tx.NewSelect().
				Model(key).
				Where("consumed = FALSE").
				Order("id ASC").
				Limit(1).
				Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrPoolExhausted
			}
			if err != nil {
				return err
			}

			// Conditional consume: only wins if the key is still
			// unconsumed. A concurrent claim that beat us to this row
			// yields zero affected rows, and we move to the next
			// candidate.
			res, err := tx.NewUpdate().
				Model((*models.Key)(nil)).
				Set("consumed = TRUE").
				Where("id = ? AND consumed = FALSE", key.ID).
				Exec(ctx)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n == 0 {
				continue
			}

			if _, err := tx.NewUpdate().
				Model((*models.User)(nil)).
				Set("last_claim_at = ?", now).
				Set("total_claims = total_claims + 1").
				Where("user_id = ?", userID).
				Exec(ctx); err != nil {
				return err
			}

			record = &models.ClaimRecord{
				UserID:     userID,
				KeyID:      key.ID,
				KeyText:    key.Text,
				AssignedAt: now,
				ExpiresAt:  now.Add(time.Duration(key.DurationDays) * 24 * time.Hour),
			}
			_, err = tx.NewInsert().Model(record).Exec(ctx)
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *claimRepository) RecordDelivery(ctx context.Context, claimID int64, chatID int64, messageID int64) error {
	_, err := r.db.NewUpdate().
		Model((*models.ClaimRecord)(nil)).
		Set("chat_id = ?", chatID).
		Set("message_id = ?", messageID).
		Where("id = ?", claimID).
		Exec(ctx)
	return err
}

func (r *claimRepository) Recent(ctx context.Context, limit int) ([]*models.ClaimRecord, error) {
	var records []*models.ClaimRecord
	err := r.db.NewSelect().
		Model(&records).
		Order("assigned_at DESC").
		Limit(limit).
		Scan(ctx)
	return records, err
}

func (r *claimRepository) Count(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*models.ClaimRecord)(nil)).Count(ctx)
}
