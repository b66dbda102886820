package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-sync/internal/cache"
	"github.com/magabrotheeeer/subscription-sync/internal/config"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
	"github.com/magabrotheeeer/subscription-sync/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateUser(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *RepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *RepoMock) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *RepoMock) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, limit, offset)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Error(1)
}

type SyncerMock struct{ mock.Mock }

func (m *SyncerMock) SyncUser(ctx context.Context, user *models.User) bool {
	return m.Called(ctx, user).Bool(0)
}

func NewNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func setupCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := cache.InitServer(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func notFound() error {
	return fmt.Errorf("storage.GetUserByEmail: %w", repository.ErrUserNotFound)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and syncs new user", func(t *testing.T) {
		repo, syncer := new(RepoMock), new(SyncerMock)
		c, _ := setupCache(t)
		created := &models.User{ID: 1, Email: "new@x.com"}

		repo.On("GetUserByEmail", mock.Anything, "new@x.com").Return(nil, notFound())
		repo.On("CreateUser", mock.Anything, "new@x.com").Return(created, nil)
		syncer.On("SyncUser", mock.Anything, created).Return(true)

		svc := NewUserService(repo, c, syncer, time.Hour, NewNoopLogger())
		got, err := svc.Register(ctx, "new@x.com")

		require.NoError(t, err)
		assert.Same(t, created, got)
		repo.AssertExpectations(t)
		syncer.AssertExpectations(t)
	})

	t.Run("returns existing user after sync", func(t *testing.T) {
		repo, syncer := new(RepoMock), new(SyncerMock)
		c, _ := setupCache(t)
		existing := &models.User{ID: 2, Email: "old@x.com"}

		repo.On("GetUserByEmail", mock.Anything, "old@x.com").Return(existing, nil)
		syncer.On("SyncUser", mock.Anything, existing).Return(true)

		svc := NewUserService(repo, c, syncer, time.Hour, NewNoopLogger())
		got, err := svc.Register(ctx, "old@x.com")

		require.NoError(t, err)
		assert.Equal(t, int64(2), got.ID)
		repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("concurrent create falls back to existing", func(t *testing.T) {
		repo, syncer := new(RepoMock), new(SyncerMock)
		c, _ := setupCache(t)
		existing := &models.User{ID: 3, Email: "race@x.com"}

		repo.On("GetUserByEmail", mock.Anything, "race@x.com").Return(nil, notFound()).Once()
		repo.On("CreateUser", mock.Anything, "race@x.com").
			Return(nil, fmt.Errorf("storage.CreateUser: %w", repository.ErrUserExists))
		repo.On("GetUserByEmail", mock.Anything, "race@x.com").Return(existing, nil).Once()
		syncer.On("SyncUser", mock.Anything, existing).Return(false)

		svc := NewUserService(repo, c, syncer, time.Hour, NewNoopLogger())
		got, err := svc.Register(ctx, "race@x.com")

		require.NoError(t, err)
		assert.Equal(t, int64(3), got.ID)
	})

	t.Run("storage error", func(t *testing.T) {
		repo, syncer := new(RepoMock), new(SyncerMock)
		c, _ := setupCache(t)
		repo.On("GetUserByEmail", mock.Anything, "e@x.com").Return(nil, errors.New("db down"))

		svc := NewUserService(repo, c, syncer, time.Hour, NewNoopLogger())
		_, err := svc.Register(ctx, "e@x.com")

		require.Error(t, err)
		syncer.AssertNotCalled(t, "SyncUser", mock.Anything, mock.Anything)
	})
}

func TestGetByEmail_ReadThroughCache(t *testing.T) {
	ctx := context.Background()
	repo, syncer := new(RepoMock), new(SyncerMock)
	c, mr := setupCache(t)
	user := &models.User{ID: 7, Email: "c@x.com", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}

	repo.On("GetUserByEmail", mock.Anything, "c@x.com").Return(user, nil).Once()
	svc := NewUserService(repo, c, syncer, time.Minute, NewNoopLogger())

	first, err := svc.GetByEmail(ctx, "c@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(7), first.ID)
	assert.True(t, mr.Exists(cache.UserKey("c@x.com")))

	second, err := svc.GetByEmail(ctx, "c@x.com")
	require.NoError(t, err)
	assert.Equal(t, *user, *second)
	repo.AssertNumberOfCalls(t, "GetUserByEmail", 1)
}

func TestGetByEmail_CacheDownFallsBackToStorage(t *testing.T) {
	repo, syncer := new(RepoMock), new(SyncerMock)
	c, mr := setupCache(t)
	mr.Close()

	repo.On("GetUserByEmail", mock.Anything, "d@x.com").Return(&models.User{ID: 8, Email: "d@x.com"}, nil)
	svc := NewUserService(repo, c, syncer, time.Minute, NewNoopLogger())

	got, err := svc.GetByEmail(context.Background(), "d@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.ID)
}

func TestSyncByID(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		repo, syncer := new(RepoMock), new(SyncerMock)
		c, _ := setupCache(t)
		repo.On("GetUserByID", mock.Anything, int64(9)).
			Return(nil, fmt.Errorf("storage.GetUserByID: %w", repository.ErrUserNotFound))

		_, err := NewUserService(repo, c, syncer, time.Minute, NewNoopLogger()).SyncByID(ctx, 9)
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})

	t.Run("sync fails", func(t *testing.T) {
		repo, syncer := new(RepoMock), new(SyncerMock)
		c, _ := setupCache(t)
		u := &models.User{ID: 9, Email: "s@x.com"}
		repo.On("GetUserByID", mock.Anything, int64(9)).Return(u, nil)
		syncer.On("SyncUser", mock.Anything, u).Return(false)

		_, err := NewUserService(repo, c, syncer, time.Minute, NewNoopLogger()).SyncByID(ctx, 9)
		assert.ErrorIs(t, err, ErrSyncFailed)
	})

	t.Run("success", func(t *testing.T) {
		repo, syncer := new(RepoMock), new(SyncerMock)
		c, _ := setupCache(t)
		u := &models.User{ID: 9, Email: "s@x.com"}
		repo.On("GetUserByID", mock.Anything, int64(9)).Return(u, nil)
		syncer.On("SyncUser", mock.Anything, u).Return(true)

		got, err := NewUserService(repo, c, syncer, time.Minute, NewNoopLogger()).SyncByID(ctx, 9)
		require.NoError(t, err)
		assert.Same(t, u, got)
	})
}

func TestCachedSubscription(t *testing.T) {
	ctx := context.Background()
	status := models.StatusPaid
	plan := int64(3)

	repo, syncer := new(RepoMock), new(SyncerMock)
	c, _ := setupCache(t)
	repo.On("GetUserByEmail", mock.Anything, "paid@x.com").
		Return(&models.User{Email: "paid@x.com", SubscriptionStatus: &status, PlanID: &plan}, nil)
	repo.On("GetUserByEmail", mock.Anything, "none@x.com").
		Return(&models.User{Email: "none@x.com"}, nil)
	repo.On("GetUserByEmail", mock.Anything, "ghost@x.com").Return(nil, notFound())
	svc := NewUserService(repo, c, syncer, time.Minute, NewNoopLogger())

	got, err := svc.CachedSubscription(ctx, "paid@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, got.Status)
	assert.Equal(t, int64(3), *got.PlanID)

	_, err = svc.CachedSubscription(ctx, "none@x.com")
	assert.ErrorIs(t, err, ErrNoSubscription)

	_, err = svc.CachedSubscription(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestGetByEmail_WithoutCache(t *testing.T) {
	repo, syncer := new(RepoMock), new(SyncerMock)
	repo.On("GetUserByEmail", mock.Anything, "n@x.com").Return(&models.User{ID: 4, Email: "n@x.com"}, nil).Twice()
	svc := NewUserService(repo, nil, syncer, time.Minute, NewNoopLogger())

	for range 2 {
		got, err := svc.GetByEmail(context.Background(), "n@x.com")
		require.NoError(t, err)
		assert.Equal(t, int64(4), got.ID)
	}
	repo.AssertExpectations(t)
}

func TestHandleSyncRequest(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		body    string
		setup   func(repo *RepoMock, syncer *SyncerMock)
		wantErr bool
	}{
		{
			name: "registers and syncs",
			body: `{"email":"q@x.com"}`,
			setup: func(repo *RepoMock, syncer *SyncerMock) {
				repo.On("GetUserByEmail", mock.Anything, "q@x.com").Return(&models.User{ID: 9, Email: "q@x.com"}, nil)
				syncer.On("SyncUser", mock.Anything, mock.Anything).Return(true)
			},
		},
		{
			name:  "malformed json is dropped",
			body:  `{"email":`,
			setup: func(*RepoMock, *SyncerMock) {},
		},
		{
			name:  "invalid email is dropped",
			body:  `{"email":"not-an-email"}`,
			setup: func(*RepoMock, *SyncerMock) {},
		},
		{
			name: "storage failure is returned",
			body: `{"email":"q@x.com"}`,
			setup: func(repo *RepoMock, _ *SyncerMock) {
				repo.On("GetUserByEmail", mock.Anything, "q@x.com").Return(nil, errors.New("db down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, syncer := new(RepoMock), new(SyncerMock)
			tt.setup(repo, syncer)
			svc := NewUserService(repo, nil, syncer, time.Minute, NewNoopLogger())

			err := svc.HandleSyncRequest(ctx, []byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "services.user.HandleSyncRequest")
			} else {
				require.NoError(t, err)
			}
			repo.AssertExpectations(t)
			syncer.AssertExpectations(t)
		})
	}
}
