package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"seatpool_backend/internal/logger"
	"seatpool_backend/internal/services"
)

const statusSyncWorkerName = "status_sync"

// StatusSyncWorker запускает синхронизатор статусов по расписанию
type StatusSyncWorker struct {
	db       *gorm.DB
	service  services.StatusSyncService
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
}

func NewStatusSyncWorker(db *gorm.DB, service services.StatusSyncService, schedule string, timeout time.Duration) *StatusSyncWorker {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.GetLogger().Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))

	return &StatusSyncWorker{
		db:       db,
		service:  service,
		schedule: schedule,
		timeout:  timeout,
		cron:     c,
	}
}

// Run регистрирует задачу и блокируется до отмены ctx.
// После отмены ждет завершения текущего прохода.
func (w *StatusSyncWorker) Run(ctx context.Context) error {
	if _, err := w.cron.AddFunc(w.schedule, func() { w.RunOnce(ctx) }); err != nil {
		logger.Error("failed to schedule status sync job", "schedule", w.schedule, "error", err)
		return err
	}
	logger.Info("scheduled status sync job", "schedule", w.schedule)

	w.cron.Start()
	<-ctx.Done()

	stopped := w.cron.Stop()
	<-stopped.Done()
	logger.Info("status sync worker stopped")
	return nil
}

// RunOnce - один проход с таймаутом
func (w *StatusSyncWorker) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := w.service.RunSweep(runCtx, w.db)
	if err != nil {
		logger.WorkerLog(statusSyncWorkerName, "sweep", time.Since(start), err)
		return
	}
	logger.WorkerLog(statusSyncWorkerName, "sweep", time.Since(start), nil,
		"pools_expired", result.PoolsExpired,
		"subscriptions_marked_overdue", result.SubscriptionsMarkedOverdue,
		"failures", result.Failures,
	)
}
