// Package services содержит бизнес-логику работы с локальными пользователями:
// регистрацию с немедленной синхронизацией, чтение с кэшированием в Redis
// и локальное представление подписки.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-sync/internal/cache"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
	"github.com/magabrotheeeer/subscription-sync/internal/storage/repository"
)

var (
	// ErrSyncFailed — синхронизация пользователя не удалась.
	ErrSyncFailed = errors.New("failed to sync subscription")
	// ErrNoSubscription — у пользователя нет данных о подписке.
	ErrNoSubscription = errors.New("no subscription data available")
)

// UserRepository описывает доступ к хранилищу пользователей.
type UserRepository interface {
	CreateUser(ctx context.Context, email string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// Cache описывает кэш пользователей.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Syncer синхронизирует одного пользователя с внешним сервисом.
type Syncer interface {
	SyncUser(ctx context.Context, user *models.User) bool
}

// UserService реализует операции над пользователями для HTTP-обработчиков.
// cache может быть nil, тогда чтение идёт напрямую из базы.
type UserService struct {
	repo   UserRepository
	cache  Cache
	syncer Syncer
	ttl    time.Duration
	log    *slog.Logger

	validate *validator.Validate
}

// NewUserService создает новый экземпляр UserService.
func NewUserService(repo UserRepository, cache Cache, syncer Syncer, ttl time.Duration, log *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		cache:  cache,
		syncer: syncer,
		ttl:    ttl,
		log:    log,

		validate: validator.New(),
	}
}

// Register возвращает пользователя с указанным email, создавая его при необходимости,
// и сразу синхронизирует его подписку. Неудачная синхронизация не считается ошибкой:
// пользователь возвращается с прежними полями подписки.
func (s *UserService) Register(ctx context.Context, email string) (*models.User, error) {
	const op = "services.user.Register"

	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		user, err = s.repo.CreateUser(ctx, email)
		if errors.Is(err, repository.ErrUserExists) {
			// пользователя успел создать параллельный запрос
			user, err = s.repo.GetUserByEmail(ctx, email)
		} else if err == nil {
			s.log.Info("created new user", slog.Int64("id", user.ID))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !s.syncer.SyncUser(ctx, user) {
		s.log.Warn("registered user without fresh subscription data", slog.String("email", email))
	}
	return user, nil
}

// List возвращает страницу пользователей.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return s.repo.ListUsers(ctx, limit, offset)
}

// GetByEmail возвращает пользователя, сначала обращаясь к кэшу.
// Ошибки кэша не мешают чтению из базы.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.cache == nil {
		return s.repo.GetUserByEmail(ctx, email)
	}
	key := cache.UserKey(email)

	var cached models.User
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, user, s.ttl); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", key), sl.Err(err))
	}
	return user, nil
}

// SyncByID синхронизирует пользователя по идентификатору.
func (s *UserService) SyncByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.syncer.SyncUser(ctx, user) {
		return nil, ErrSyncFailed
	}
	return user, nil
}

// CachedSubscription возвращает подписку пользователя по локальной копии,
// которая может отставать от внешнего сервиса на интервал синхронизации.
func (s *UserService) CachedSubscription(ctx context.Context, email string) (*models.CachedSubscription, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.SubscriptionStatus == nil {
		return nil, ErrNoSubscription
	}
	return &models.CachedSubscription{
		Email:      user.Email,
		Status:     *user.SubscriptionStatus,
		PlanID:     user.PlanID,
		StartDate:  user.StartDate,
		EndDate:    user.EndDate,
		LastSynced: user.LastSynced,
	}, nil
}

// SyncRequest — сообщение из очереди sync.requested.
type SyncRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleSyncRequest обрабатывает запрос на синхронизацию из очереди:
// регистрирует пользователя, если его ещё нет, и синхронизирует подписку.
// Некорректные сообщения отбрасываются, ошибка возвращается только при сбое
// хранилища, чтобы сообщение вернулось в очередь.
func (s *UserService) HandleSyncRequest(ctx context.Context, body []byte) error {
	const op = "services.user.HandleSyncRequest"

	var req SyncRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.log.Warn("dropping malformed sync request", slog.String("op", op), sl.Err(err))
		return nil
	}
	if err := s.validate.Struct(req); err != nil {
		s.log.Warn("dropping invalid sync request", slog.String("op", op), slog.String("email", req.Email))
		return nil
	}

	if _, err := s.Register(ctx, req.Email); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
