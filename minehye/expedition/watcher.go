package expedition

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ellavondegurechaff/minehye/minehye/database/repositories"
)

const defaultWatchInterval = time.Minute

// Watcher periodically surfaces expeditions whose timers have elapsed.
// It only announces readiness; collection is always player-initiated, so the
// reward claim stays an explicit action.
type Watcher struct {
	exps     repositories.ExpeditionRepository
	interval time.Duration
	notified sync.Map // expeditionID -> struct{}
	shutdown chan struct{}
	once     sync.Once

	// Notify is called once per ready expedition with the owner's user ID
	// and the expedition ID. Nil means log-only.
	Notify func(userID string, expeditionID int64)
}

func NewWatcher(exps repositories.ExpeditionRepository) *Watcher {
	return &Watcher{
		exps:     exps,
		interval: defaultWatchInterval,
		shutdown: make(chan struct{}),
	}
}

// Start runs the watch loop until the context is cancelled or Shutdown is
// called.
func (w *Watcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.shutdown:
				return
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()
}

func (w *Watcher) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	due, err := w.exps.GetDueBefore(sweepCtx, time.Now())
	if err != nil {
		slog.Error("Expedition sweep failed",
			slog.String("type", "expedition"),
			slog.Any("error", err))
		return
	}

	for _, exp := range due {
		if _, seen := w.notified.LoadOrStore(exp.ID, struct{}{}); seen {
			continue
		}
		slog.Info("Expedition ready for collection",
			slog.String("type", "expedition"),
			slog.Int64("expedition_id", exp.ID),
			slog.String("user_id", exp.UserID),
			slog.String("rank", exp.Rank))
		if w.Notify != nil {
			w.Notify(exp.UserID, exp.ID)
		}
	}
}

// Shutdown stops the watch loop.
func (w *Watcher) Shutdown() {
	w.once.Do(func() {
		close(w.shutdown)
	})
}
