package repositories

import (
	"context"
	"time"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/uptrace/bun"
)

type ExpeditionRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Expedition, error)
	GetActiveByUserID(ctx context.Context, userID string) ([]*models.Expedition, error)
	GetDueBefore(ctx context.Context, t time.Time) ([]*models.Expedition, error)
	Create(ctx context.Context, exp *models.Expedition) error
	Delete(ctx context.Context, id int64) error
	SetEndsAt(ctx context.Context, id int64, at time.Time) error

	// MarkCollected flips an active expedition to collected and reports
	// whether this call won the transition. A false return means the
	// expedition was already collected (or never active) — the caller must
	// not credit anything.
	MarkCollected(ctx context.Context, id int64) (bool, error)

	// Reactivate undoes MarkCollected after a downstream persistence
	// failure so a retry can reprocess the expedition.
	Reactivate(ctx context.Context, id int64) error
}

type expeditionRepository struct {
	*BaseRepository
}

func NewExpeditionRepository(db *bun.DB) ExpeditionRepository {
	return &expeditionRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *expeditionRepository) GetByID(ctx context.Context, id int64) (*models.Expedition, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var exp models.Expedition
	err := r.GetDB().NewSelect().
		Model(&exp).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("select", "expedition", id, err)
	}
	return &exp, nil
}

func (r *expeditionRepository) GetActiveByUserID(ctx context.Context, userID string) ([]*models.Expedition, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var exps []*models.Expedition
	err := r.GetDB().NewSelect().
		Model(&exps).
		Where("user_id = ?", userID).
		Where("status = ?", models.ExpeditionStatusActive).
		Order("ends_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("select", "expedition", err)
	}
	return exps, nil
}

func (r *expeditionRepository) GetDueBefore(ctx context.Context, t time.Time) ([]*models.Expedition, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var exps []*models.Expedition
	err := r.GetDB().NewSelect().
		Model(&exps).
		Where("status = ?", models.ExpeditionStatusActive).
		Where("ends_at <= ?", t).
		Order("ends_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("select", "expedition", err)
	}
	return exps, nil
}

func (r *expeditionRepository) Create(ctx context.Context, exp *models.Expedition) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	exp.UpdatedAt = time.Now()
	_, err := r.GetDB().NewInsert().
		Model(exp).
		Exec(ctx)
	return r.HandleError("insert", "expedition", err)
}

func (r *expeditionRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewDelete().
		Model(&models.Expedition{}).
		Where("id = ?", id).
		Exec(ctx)
	return r.HandleErrorWithID("delete", "expedition", id, err)
}

func (r *expeditionRepository) SetEndsAt(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewUpdate().
		Model(&models.Expedition{}).
		Set("ends_at = ?", at).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Where("status = ?", models.ExpeditionStatusActive).
		Exec(ctx)
	return r.HandleErrorWithID("update", "expedition", id, err)
}

func (r *expeditionRepository) MarkCollected(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	res, err := r.GetDB().NewUpdate().
		Model(&models.Expedition{}).
		Set("status = ?", models.ExpeditionStatusCollected).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Where("status = ?", models.ExpeditionStatusActive).
		Exec(ctx)
	if err != nil {
		return false, r.HandleErrorWithID("update", "expedition", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, r.HandleErrorWithID("update", "expedition", id, err)
	}
	return rows > 0, nil
}

func (r *expeditionRepository) Reactivate(ctx context.Context, id int64) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewUpdate().
		Model(&models.Expedition{}).
		Set("status = ?", models.ExpeditionStatusActive).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Exec(ctx)
	return r.HandleErrorWithID("update", "expedition", id, err)
}
