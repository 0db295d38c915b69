package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"keygate-bot/keygate/database/models"
)

// newTestDB opens an isolated in-memory database with the full schema.
// A single connection keeps the memory database alive for the test.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	sqldb, err := sql.Open(sqliteshim.ShimName,
		fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	tables := []interface{}{
		(*models.Channel)(nil),
		(*models.User)(nil),
		(*models.Key)(nil),
		(*models.ClaimRecord)(nil),
		(*models.Setting)(nil),
	}
	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func TestUserRepository_EnsureIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)

	if err := users.Ensure(ctx, 42, "Ann"); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if err := users.MarkVerified(ctx, 42); err != nil {
		t.Fatalf("MarkVerified() error = %v", err)
	}
	if err := users.Ensure(ctx, 42, "Annie"); err != nil {
		t.Fatalf("second Ensure() error = %v", err)
	}

	count, err := users.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1 after repeated enrollment", count)
	}

	user, err := users.GetByID(ctx, 42)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if user.DisplayName != "Annie" {
		t.Errorf("DisplayName = %q, want the refreshed name", user.DisplayName)
	}
	if !user.Verified {
		t.Error("Verified flag lost on re-enrollment")
	}
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)

	_, err := users.GetByID(context.Background(), 999)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID() error = %v, want ErrUserNotFound", err)
	}
}

func TestClaimRepository_AssignNext(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	keys := NewKeyRepository(db)
	claims := NewClaimRepository(db)

	if err := users.Ensure(ctx, 42, "Ann"); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	added, err := keys.BulkCreate(ctx, []*models.Key{
		{Text: "K1", DurationDays: 30},
		{Text: "K2", DurationDays: 7},
	})
	if err != nil || added != 2 {
		t.Fatalf("BulkCreate() = %d, %v, want 2, nil", added, err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first, err := claims.AssignNext(ctx, 42, now)
	if err != nil {
		t.Fatalf("AssignNext() error = %v", err)
	}
	if first.KeyText != "K1" {
		t.Errorf("first key = %q, want the lowest-id key K1", first.KeyText)
	}
	if want := now.Add(30 * 24 * time.Hour); !first.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", first.ExpiresAt, want)
	}

	user, err := users.GetByID(ctx, 42)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if user.TotalClaims != 1 {
		t.Errorf("TotalClaims = %d, want 1", user.TotalClaims)
	}
	if user.LastClaimAt == nil || !user.LastClaimAt.Equal(now) {
		t.Errorf("LastClaimAt = %v, want %v", user.LastClaimAt, now)
	}

	second, err := claims.AssignNext(ctx, 42, now)
	if err != nil {
		t.Fatalf("second AssignNext() error = %v", err)
	}
	if second.KeyText != "K2" {
		t.Errorf("second key = %q, want K2", second.KeyText)
	}

	if _, err := claims.AssignNext(ctx, 42, now); !errors.Is(err, ErrPoolExhausted) {
		t.Errorf("AssignNext() on empty pool error = %v, want ErrPoolExhausted", err)
	}
}

func TestKeyRepository_Purge(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	channels := NewChannelRepository(db)
	users := NewUserRepository(db)
	keys := NewKeyRepository(db)
	claims := NewClaimRepository(db)
	settings := NewSettingsRepository(db)

	if _, err := channels.Add(ctx, "@gate"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := settings.SetCooldownHours(ctx, 24); err != nil {
		t.Fatalf("SetCooldownHours() error = %v", err)
	}
	if err := users.Ensure(ctx, 42, "Ann"); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if err := users.MarkVerified(ctx, 42); err != nil {
		t.Fatalf("MarkVerified() error = %v", err)
	}
	if _, err := keys.BulkCreate(ctx, []*models.Key{
		{Text: "K1", DurationDays: 30},
		{Text: "K2", DurationDays: 7},
	}); err != nil {
		t.Fatalf("BulkCreate() error = %v", err)
	}
	if _, err := claims.AssignNext(ctx, 42, time.Now()); err != nil {
		t.Fatalf("AssignNext() error = %v", err)
	}

	if err := keys.Purge(ctx); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}

	stats, err := keys.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Unconsumed != 0 || stats.Consumed != 0 {
		t.Errorf("key pool after purge = %+v, want empty", stats)
	}

	claimCount, err := claims.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if claimCount != 0 {
		t.Errorf("claim records after purge = %d, want 0", claimCount)
	}

	user, err := users.GetByID(ctx, 42)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if user.LastClaimAt != nil {
		t.Errorf("LastClaimAt = %v, want NULL after purge", user.LastClaimAt)
	}
	if user.TotalClaims != 0 {
		t.Errorf("TotalClaims = %d, want 0 after purge", user.TotalClaims)
	}
	if !user.Verified {
		t.Error("purge must not reset verification")
	}

	remaining, err := channels.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(remaining) != 1 || remaining[0].Handle != "@gate" {
		t.Errorf("channels after purge = %v, want the registry untouched", remaining)
	}

	hours, err := settings.CooldownHours(ctx)
	if err != nil {
		t.Fatalf("CooldownHours() error = %v", err)
	}
	if hours != 24 {
		t.Errorf("cooldown after purge = %d, want the stored 24", hours)
	}
}

func TestChannelRepository_AddNormalizesAndRemove(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	channels := NewChannelRepository(db)

	added, err := channels.Add(ctx, "  gate  ")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if added.Handle != "@gate" {
		t.Errorf("Handle = %q, want normalized @gate", added.Handle)
	}

	if err := channels.Remove(ctx, "gate"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := channels.Remove(ctx, "gate"); !errors.Is(err, ErrChannelNotFound) {
		t.Errorf("Remove() on missing handle error = %v, want ErrChannelNotFound", err)
	}
}

func TestSettingsRepository_CooldownFailsClosed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	settings := NewSettingsRepository(db)

	hours, err := settings.CooldownHours(ctx)
	if err != nil {
		t.Fatalf("CooldownHours() error = %v", err)
	}
	if hours != models.DefaultCooldownHours {
		t.Errorf("missing setting cooldown = %d, want default %d", hours, models.DefaultCooldownHours)
	}

	if err := settings.SetCooldownHours(ctx, 12); err != nil {
		t.Fatalf("SetCooldownHours() error = %v", err)
	}
	hours, err = settings.CooldownHours(ctx)
	if err != nil {
		t.Fatalf("CooldownHours() error = %v", err)
	}
	if hours != 12 {
		t.Errorf("cooldown = %d, want 12", hours)
	}
}
