package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/uptrace/bun"
)

// ErrInsufficientTokens is returned when a debit would push a balance
// negative. The balance guard lives in the conditional update itself so
// concurrent sessions cannot double-spend.
var ErrInsufficientTokens = errors.New("insufficient token balance")

type UserRepository interface {
	GetByDiscordID(ctx context.Context, discordID string) (*models.User, error)
	GetOrCreate(ctx context.Context, discordID, username string) (*models.User, error)
	AdjustTokens(ctx context.Context, discordID string, delta int64) error
	SetLastSummon(ctx context.Context, discordID string, at time.Time) error
}

type userRepository struct {
	*BaseRepository
}

func NewUserRepository(db *bun.DB) UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *userRepository) GetByDiscordID(ctx context.Context, discordID string) (*models.User, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var user models.User
	err := r.GetDB().NewSelect().
		Model(&user).
		Where("discord_id = ?", discordID).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("select", "user", discordID, err)
	}
	return &user, nil
}

func (r *userRepository) GetOrCreate(ctx context.Context, discordID, username string) (*models.User, error) {
	user, err := r.GetByDiscordID(ctx, discordID)
	if err == nil {
		return user, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	user = &models.User{
		DiscordID: discordID,
		Username:  username,
		UpdatedAt: time.Now(),
	}
	_, err = r.GetDB().NewInsert().
		Model(user).
		On("CONFLICT (discord_id) DO UPDATE SET username = EXCLUDED.username").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("insert", "user", discordID, err)
	}
	return user, nil
}

func (r *userRepository) AdjustTokens(ctx context.Context, discordID string, delta int64) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	q := r.GetDB().NewUpdate().
		Model(&models.User{}).
		Set("tokens = tokens + ?", delta).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("discord_id = ?", discordID)
	if delta < 0 {
		q = q.Where("tokens >= ?", -delta)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return r.HandleErrorWithID("update", "user", discordID, err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		if delta < 0 {
			return ErrInsufficientTokens
		}
		return r.HandleErrorWithID("update", "user", discordID, sql.ErrNoRows)
	}
	return nil
}

func (r *userRepository) SetLastSummon(ctx context.Context, discordID string, at time.Time) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewUpdate().
		Model(&models.User{}).
		Set("last_summon = ?", at).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("discord_id = ?", discordID).
		Exec(ctx)
	return r.HandleErrorWithID("update", "user", discordID, err)
}
