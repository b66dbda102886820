package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/subscription-sync/internal/migrations"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, dsn)
	require.NoError(t, err, "failed to create storage")

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))

	t.Cleanup(func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	return storage
}

func truncate(t *testing.T, s *Storage) {
	_, err := s.DB.Exec(`TRUNCATE users, sync_logs RESTART IDENTITY`)
	require.NoError(t, err)
}

func TestStorage_Users(t *testing.T) {
	storage := setupTestDatabase(t)
	ctx := context.Background()

	t.Run("create and read user", func(t *testing.T) {
		truncate(t, storage)

		created, err := storage.CreateUser(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Positive(t, created.ID)
		assert.Equal(t, "a@x.com", created.Email)
		assert.Nil(t, created.SubscriptionStatus)
		assert.False(t, created.CreatedAt.IsZero())

		byEmail, err := storage.GetUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEmail.ID)

		byID, err := storage.GetUserByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", byID.Email)
	})

	t.Run("duplicate email", func(t *testing.T) {
		truncate(t, storage)

		_, err := storage.CreateUser(ctx, "dup@x.com")
		require.NoError(t, err)
		_, err = storage.CreateUser(ctx, "dup@x.com")
		require.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("user not found", func(t *testing.T) {
		truncate(t, storage)

		_, err := storage.GetUserByEmail(ctx, "missing@x.com")
		require.ErrorIs(t, err, ErrUserNotFound)
		_, err = storage.GetUserByID(ctx, 999)
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("update subscription then clear", func(t *testing.T) {
		truncate(t, storage)

		u, err := storage.CreateUser(ctx, "b@x.com")
		require.NoError(t, err)

		syncedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		u.ApplySubscription(&models.SubscriptionRecord{
			Email:       "b@x.com",
			Status:      models.StatusPaid,
			PlanID:      3,
			StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			MySaasAppID: "app1",
			ClientID:    42,
		}, syncedAt)
		require.NoError(t, storage.UpdateSubscription(ctx, u))

		got, err := storage.GetUserByEmail(ctx, "b@x.com")
		require.NoError(t, err)
		require.NotNil(t, got.SubscriptionStatus)
		assert.Equal(t, models.StatusPaid, *got.SubscriptionStatus)
		assert.Equal(t, int64(3), *got.PlanID)
		assert.Equal(t, int64(42), *got.BeagClientID)
		assert.Equal(t, "app1", *got.MySaasAppID)
		assert.True(t, got.StartDate.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		assert.True(t, got.LastSynced.Equal(syncedAt))
		assert.NotNil(t, got.UpdatedAt)

		got.ClearSubscription(syncedAt.Add(time.Hour))
		require.NoError(t, storage.UpdateSubscription(ctx, got))

		cleared, err := storage.GetUserByID(ctx, got.ID)
		require.NoError(t, err)
		assert.Nil(t, cleared.SubscriptionStatus)
		assert.Nil(t, cleared.PlanID)
		assert.Nil(t, cleared.StartDate)
		assert.Nil(t, cleared.EndDate)
		assert.Equal(t, "b@x.com", cleared.Email)
		assert.True(t, cleared.LastSynced.Equal(syncedAt.Add(time.Hour)))
	})

	t.Run("update missing user rolls back", func(t *testing.T) {
		truncate(t, storage)

		err := storage.UpdateSubscription(ctx, &models.User{ID: 12345, Email: "ghost@x.com"})
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("failed update leaves populated row unchanged", func(t *testing.T) {
		truncate(t, storage)

		u, err := storage.CreateUser(ctx, "c@x.com")
		require.NoError(t, err)
		syncedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		u.ApplySubscription(&models.SubscriptionRecord{
			Email:       "c@x.com",
			Status:      models.StatusPaid,
			PlanID:      3,
			StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			MySaasAppID: "app1",
			ClientID:    42,
		}, syncedAt)
		require.NoError(t, storage.UpdateSubscription(ctx, u))

		before, err := storage.GetUserByID(ctx, u.ID)
		require.NoError(t, err)

		// триггер обрывает UPDATE уже внутри транзакции
		_, err = storage.DB.ExecContext(ctx, `
			CREATE FUNCTION reject_plan_999() RETURNS trigger AS $$
			BEGIN
				IF NEW.plan_id = 999 THEN
					RAISE EXCEPTION 'plan 999 rejected';
				END IF;
				RETURN NEW;
			END;
			$$ LANGUAGE plpgsql;
			CREATE TRIGGER reject_plan_999 BEFORE UPDATE ON users
				FOR EACH ROW EXECUTE FUNCTION reject_plan_999();`)
		require.NoError(t, err)
		t.Cleanup(func() {
			_, _ = storage.DB.Exec(`DROP TRIGGER IF EXISTS reject_plan_999 ON users;
				DROP FUNCTION IF EXISTS reject_plan_999();`)
		})

		changed := *before
		changed.ApplySubscription(&models.SubscriptionRecord{
			Email:       "c@x.com",
			Status:      models.StatusCancelled,
			PlanID:      999,
			StartDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			MySaasAppID: "app2",
			ClientID:    43,
		}, syncedAt.Add(time.Hour))
		require.Error(t, storage.UpdateSubscription(ctx, &changed))

		after, err := storage.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, *before.SubscriptionStatus, *after.SubscriptionStatus)
		assert.Equal(t, *before.PlanID, *after.PlanID)
		assert.Equal(t, *before.BeagClientID, *after.BeagClientID)
		assert.Equal(t, *before.MySaasAppID, *after.MySaasAppID)
		assert.True(t, before.StartDate.Equal(*after.StartDate))
		assert.True(t, before.EndDate.Equal(*after.EndDate))
		assert.True(t, before.LastSynced.Equal(*after.LastSynced))
		assert.True(t, before.UpdatedAt.Equal(*after.UpdatedAt))
	})

	t.Run("panic inside transaction releases connection", func(t *testing.T) {
		truncate(t, storage)

		func() {
			defer func() { _ = recover() }()
			_ = storage.withTx(ctx, func(tx *sql.Tx) error {
				if _, err := tx.ExecContext(ctx, `SELECT 1`); err != nil {
					return err
				}
				panic("boom")
			})
		}()
		assert.Equal(t, 0, storage.DB.Stats().InUse)

		err := storage.withTx(ctx, func(*sql.Tx) error { return errors.New("fail") })
		require.EqualError(t, err, "fail")
		assert.Equal(t, 0, storage.DB.Stats().InUse)

		_, err = storage.CreateUser(ctx, "after-panic@x.com")
		require.NoError(t, err)
	})

	t.Run("list users", func(t *testing.T) {
		truncate(t, storage)

		for _, email := range []string{"1@x.com", "2@x.com", "3@x.com"} {
			_, err := storage.CreateUser(ctx, email)
			require.NoError(t, err)
		}

		page, err := storage.ListUsers(ctx, 2, 1)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "2@x.com", page[0].Email)
		assert.Equal(t, "3@x.com", page[1].Email)

		all, err := storage.ListAllUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

func TestStorage_SyncRuns(t *testing.T) {
	storage := setupTestDatabase(t)
	ctx := context.Background()

	t.Run("create and finish", func(t *testing.T) {
		truncate(t, storage)

		run, err := storage.CreateSyncRun(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.SyncInProgress, run.Status)
		assert.Nil(t, run.CompletedAt)

		completed := time.Now().UTC()
		msg := "boom"
		run.CompletedAt = &completed
		run.UsersSynced = 2
		run.UsersFailed = 1
		run.Status = models.SyncPartial
		run.ErrorMessage = &msg
		require.NoError(t, storage.FinishSyncRun(ctx, run))

		got, err := storage.GetSyncRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SyncPartial, got.Status)
		assert.Equal(t, 2, got.UsersSynced)
		assert.Equal(t, 1, got.UsersFailed)
		require.NotNil(t, got.CompletedAt)
		require.NotNil(t, got.ErrorMessage)
		assert.Equal(t, "boom", *got.ErrorMessage)

		err = storage.FinishSyncRun(ctx, run)
		require.ErrorIs(t, err, ErrSyncRunFinalized)
	})

	t.Run("finish missing run", func(t *testing.T) {
		truncate(t, storage)

		now := time.Now()
		err := storage.FinishSyncRun(ctx, &models.SyncRun{ID: 777, CompletedAt: &now, Status: models.SyncSuccess})
		require.ErrorIs(t, err, ErrSyncRunNotFound)
	})

	t.Run("latest and list", func(t *testing.T) {
		truncate(t, storage)

		_, err := storage.LatestSyncRun(ctx)
		require.ErrorIs(t, err, ErrSyncRunNotFound)

		first, err := storage.CreateSyncRun(ctx)
		require.NoError(t, err)
		second, err := storage.CreateSyncRun(ctx)
		require.NoError(t, err)

		latest, err := storage.LatestSyncRun(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)

		runs, err := storage.ListSyncRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, second.ID, runs[0].ID)
		assert.Equal(t, first.ID, runs[1].ID)
	})

	t.Run("database ready", func(t *testing.T) {
		require.NoError(t, CheckDatabaseReady(ctx, storage))
		require.NoError(t, storage.Ping(ctx))
	})
}
