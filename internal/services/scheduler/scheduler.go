// Package services содержит цикл планировщика, периодически запускающий
// полную синхронизацию подписок.
package services

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// DefaultStep — максимальный шаг ожидания между проверками отмены.
const DefaultStep = time.Minute

// DefaultInterval используется, если интервал не задан.
const DefaultInterval = 6 * time.Hour

// Syncer запускает полный прогон синхронизации.
type Syncer interface {
	SyncAll(ctx context.Context) models.SyncRunSummary
}

// SchedulerService повторяет синхронизацию с заданным интервалом до отмены контекста.
type SchedulerService struct {
	syncer   Syncer
	log      *slog.Logger
	interval time.Duration
	step     time.Duration
	running  atomic.Bool
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(syncer Syncer, interval time.Duration, log *slog.Logger) *SchedulerService {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &SchedulerService{
		syncer:   syncer,
		log:      log,
		interval: interval,
		step:     DefaultStep,
	}
}

// Running сообщает, работает ли цикл.
func (s *SchedulerService) Running() bool {
	return s.running.Load()
}

// Run сразу запускает синхронизацию, затем ждёт интервал шагами не длиннее step
// и повторяет. Возвращается после отмены ctx. Начатый прогон не прерывается.
// Повторный вызов при уже работающем цикле ничего не делает.
func (s *SchedulerService) Run(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("scheduler is already running")
		return
	}
	defer s.running.Store(false)

	s.log.Info("subscription sync worker started", slog.Duration("interval", s.interval))
	for ctx.Err() == nil {
		s.runOnce(ctx)

		s.log.Info("next sync scheduled", slog.Time("at", time.Now().Add(s.interval)))
		if !s.wait(ctx) {
			break
		}
	}
	s.log.Info("subscription sync worker stopped")
}

func (s *SchedulerService) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("sync run panicked", slog.Any("panic", r))
		}
	}()
	summary := s.syncer.SyncAll(context.WithoutCancel(ctx))
	s.log.Info("scheduled sync finished",
		slog.Int64("run_id", summary.RunID),
		slog.String("status", string(summary.Status)))
}

// wait возвращает false, если контекст отменён во время ожидания.
func (s *SchedulerService) wait(ctx context.Context) bool {
	remaining := s.interval
	for remaining > 0 {
		d := min(s.step, remaining)
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
			remaining -= d
		}
	}
	return true
}
