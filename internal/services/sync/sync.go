// Package services содержит оркестратор синхронизации подписок: синхронизацию
// одного пользователя и полный прогон по всем пользователям с записью итога в журнал.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/magabrotheeeer/subscription-sync/internal/cache"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/metrics"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// SubscriptionFetcher получает подписку пользователя из внешнего сервиса.
// nil означает, что подписки нет (или запрос не удался).
type SubscriptionFetcher interface {
	FetchByEmail(ctx context.Context, email string) *models.SubscriptionRecord
}

// UserRepository определяет операции над пользователями, нужные синхронизации.
type UserRepository interface {
	// ListAllUsers возвращает снимок всех пользователей.
	ListAllUsers(ctx context.Context) ([]*models.User, error)
	// UpdateSubscription сохраняет поля подписки в отдельной транзакции.
	UpdateSubscription(ctx context.Context, u *models.User) error
}

// SyncRunRepository определяет операции над журналом прогонов.
type SyncRunRepository interface {
	CreateSyncRun(ctx context.Context) (*models.SyncRun, error)
	FinishSyncRun(ctx context.Context, run *models.SyncRun) error
}

// Cache описывает инвалидацию закэшированных пользователей.
type Cache interface {
	Invalidate(ctx context.Context, key string) error
}

// EventPublisher публикует итог прогона во внешнюю шину.
type EventPublisher interface {
	PublishSyncCompleted(ctx context.Context, summary models.SyncRunSummary) error
}

// SyncService синхронизирует локальные копии пользователей с внешним сервисом.
// cache, publisher и metrics необязательны.
type SyncService struct {
	fetcher   SubscriptionFetcher
	users     UserRepository
	runs      SyncRunRepository
	cache     Cache
	publisher EventPublisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
	inflight  singleflight.Group
}

// NewSyncService создает новый экземпляр SyncService.
func NewSyncService(fetcher SubscriptionFetcher, users UserRepository, runs SyncRunRepository,
	cache Cache, publisher EventPublisher, m *metrics.Metrics, log *slog.Logger) *SyncService {
	return &SyncService{
		fetcher:   fetcher,
		users:     users,
		runs:      runs,
		cache:     cache,
		publisher: publisher,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

type userResult struct {
	user models.User
	ok   bool
}

// SyncUser обновляет подписку пользователя по данным внешнего сервиса.
// При успехе user обновляется на месте. При ошибке изменения откатываются,
// user остаётся прежним, а метод возвращает false. Ошибка только логируется.
// Одновременные вызовы для одного email внутри процесса объединяются.
// Общий вызов не зависит от отмены ctx первого вызывающего: к нему могут
// присоединиться другие, чей контекст ещё жив.
func (s *SyncService) SyncUser(ctx context.Context, user *models.User) bool {
	shared := context.WithoutCancel(ctx)
	v, _, _ := s.inflight.Do(user.Email, func() (any, error) {
		return s.syncUser(shared, *user), nil
	})
	res := v.(userResult)
	if res.ok {
		*user = res.user
	}
	return res.ok
}

func (s *SyncService) syncUser(ctx context.Context, u models.User) (res userResult) {
	const op = "services.sync.SyncUser"
	log := s.log.With(slog.String("op", op), slog.String("email", u.Email))

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while syncing user", slog.Any("panic", r))
			res = userResult{}
		}
	}()

	rec := s.fetcher.FetchByEmail(ctx, u.Email)
	now := s.now().UTC()
	if rec != nil {
		u.ApplySubscription(rec, now)
	} else {
		u.ClearSubscription(now)
	}

	if err := s.users.UpdateSubscription(ctx, &u); err != nil {
		log.Error("failed to sync user", sl.Err(err))
		return userResult{}
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, cache.UserKey(u.Email)); err != nil {
			log.Warn("failed to invalidate cached user", sl.Err(err))
		}
	}

	if rec != nil {
		log.Info("updated user",
			slog.String("status", string(rec.Status)),
			slog.Int64("plan", rec.PlanID),
			slog.String("period", rec.StartDate.Format(time.DateOnly)+" to "+rec.EndDate.Format(time.DateOnly)),
		)
	} else {
		log.Info("updated user", slog.String("status", "NO_SUBSCRIPTION"))
	}
	return userResult{user: u, ok: true}
}

// SyncAll синхронизирует всех пользователей из снимка, взятого в начале прогона,
// и записывает итог в журнал. Метод не возвращает ошибок: всё отражается в итоге
// и в записи журнала.
func (s *SyncService) SyncAll(ctx context.Context) models.SyncRunSummary {
	const op = "services.sync.SyncAll"
	log := s.log.With(slog.String("op", op))
	started := s.now()

	run, err := s.runs.CreateSyncRun(ctx)
	if err != nil {
		log.Error("failed to create sync run", sl.Err(err))
		summary := models.SyncRunSummary{
			Status: models.SyncFailed,
			Error:  err.Error(),
		}
		s.metrics.ObserveRun(summary, s.now().Sub(started))
		return summary
	}
	log = log.With(slog.Int64("run_id", run.ID))

	summary := models.SyncRunSummary{RunID: run.ID}
	users, err := s.users.ListAllUsers(ctx)
	if err != nil {
		log.Error("critical error during sync", sl.Err(err))
		summary.Status = models.SyncFailed
		summary.Error = err.Error()
	} else {
		summary.TotalUsers = len(users)
		log.Info("starting subscription sync", slog.Int("users", len(users)))

		for _, u := range users {
			if !s.SyncUser(ctx, u) {
				summary.UsersFailed++
				continue
			}
			summary.UsersSynced++
			if u.HasActiveSubscription() {
				summary.ActiveSubscriptions++
			} else {
				summary.InactiveSubscriptions++
			}
		}
		summary.Status = models.SyncStatusFor(summary.UsersSynced, summary.UsersFailed)
	}

	s.finish(ctx, log, run, &summary)
	s.metrics.ObserveRun(summary, s.now().Sub(started))

	if s.publisher != nil {
		if err := s.publisher.PublishSyncCompleted(ctx, summary); err != nil {
			log.Warn("failed to publish sync summary", sl.Err(err))
		}
	}
	return summary
}

func (s *SyncService) finish(ctx context.Context, log *slog.Logger, run *models.SyncRun, summary *models.SyncRunSummary) {
	completed := s.now().UTC()
	run.CompletedAt = &completed
	run.UsersSynced = summary.UsersSynced
	run.UsersFailed = summary.UsersFailed
	run.Status = summary.Status
	if summary.Error != "" {
		msg := summary.Error
		run.ErrorMessage = &msg
	}

	if err := s.runs.FinishSyncRun(ctx, run); err != nil {
		log.Error("failed to finalize sync run", sl.Err(err))
		finErr := fmt.Sprintf("failed to finalize sync run: %s", err)
		if summary.Error == "" {
			summary.Error = finErr
		} else {
			summary.Error += "; " + finErr
		}
	}

	if summary.Status == models.SyncFailed && summary.Error != "" {
		log.Error("sync failed",
			slog.Int("users_synced", summary.UsersSynced),
			slog.String("error", summary.Error))
		return
	}
	log.Info("sync completed",
		slog.String("status", string(summary.Status)),
		slog.Int("users_synced", summary.UsersSynced),
		slog.Int("users_failed", summary.UsersFailed),
		slog.Int("active", summary.ActiveSubscriptions),
		slog.Int("inactive", summary.InactiveSubscriptions),
	)
	if summary.UsersFailed > 0 {
		log.Warn("some users failed to sync, check logs above for details", slog.Int("failed", summary.UsersFailed))
	}
}
