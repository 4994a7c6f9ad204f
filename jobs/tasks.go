// Package jobs wires background processing through Asynq.
package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/daftar-ledger/daftar/internal/ledger"
)

const (
	// QueueDefault is the only queue the worker consumes.
	QueueDefault = "default"

	// TaskTypeOfflineSync drains the offline mutation queue against the
	// remote store.
	TaskTypeOfflineSync = "sync:offline"
)

// NewOfflineSyncTask builds the periodic drain task. It carries no payload;
// the handler reads everything from the queue itself.
func NewOfflineSyncTask() *asynq.Task {
	return asynq.NewTask(TaskTypeOfflineSync, nil)
}

// OfflineSyncHandler returns the Asynq handler that pushes pending
// mutations upstream. A drain that leaves mutations behind is not a task
// failure: the next tick picks them up again.
func OfflineSyncHandler(logger *slog.Logger, service *ledger.Service) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, _ *asynq.Task) error {
		if !service.Online() {
			return nil
		}
		synced, err := service.SyncOfflineChanges(ctx)
		if err != nil {
			logger.Warn("offline sync left work behind",
				slog.Int("synced", synced), slog.Any("error", err))
			return nil
		}
		if synced > 0 {
			logger.Info("offline sync drained queue", slog.Int("synced", synced))
		}
		return nil
	}
}
