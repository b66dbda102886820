package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

const syncRunColumns = `id, started_at, completed_at, users_synced, users_failed, status, error_message`

// CreateSyncRun добавляет запись о начавшемся прогоне со статусом IN_PROGRESS.
// Запись фиксируется сразу, чтобы аварийное завершение прогона оставило след.
func (s *Storage) CreateSyncRun(ctx context.Context) (*models.SyncRun, error) {
	const op = "storage.CreateSyncRun"

	query := `INSERT INTO sync_logs (status)
			  VALUES ($1)
			  RETURNING ` + syncRunColumns
	run, err := scanSyncRun(s.DB.QueryRowContext(ctx, query, string(models.SyncInProgress)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return run, nil
}

// FinishSyncRun завершает прогон: записывает время окончания, счётчики, статус и ошибку.
// Завершить можно только незавершённый прогон.
func (s *Storage) FinishSyncRun(ctx context.Context, run *models.SyncRun) error {
	const op = "storage.FinishSyncRun"

	query := `UPDATE sync_logs
			  SET completed_at = $1,
			      users_synced = $2,
			      users_failed = $3,
			      status = $4,
			      error_message = $5
			  WHERE id = $6 AND completed_at IS NULL`
	res, err := s.DB.ExecContext(ctx, query, run.CompletedAt, run.UsersSynced,
		run.UsersFailed, string(run.Status), run.ErrorMessage, run.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		if _, err := s.GetSyncRun(ctx, run.ID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return fmt.Errorf("%s: %w", op, ErrSyncRunFinalized)
	}
	return nil
}

// GetSyncRun возвращает прогон по ID.
func (s *Storage) GetSyncRun(ctx context.Context, id int64) (*models.SyncRun, error) {
	const op = "storage.GetSyncRun"

	query := `SELECT ` + syncRunColumns + `
			  FROM sync_logs
			  WHERE id = $1`
	run, err := scanSyncRun(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrSyncRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return run, nil
}

// LatestSyncRun возвращает последний начатый прогон.
func (s *Storage) LatestSyncRun(ctx context.Context) (*models.SyncRun, error) {
	const op = "storage.LatestSyncRun"

	query := `SELECT ` + syncRunColumns + `
			  FROM sync_logs
			  ORDER BY id DESC
			  LIMIT 1`
	run, err := scanSyncRun(s.DB.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrSyncRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return run, nil
}

// ListSyncRuns возвращает последние limit прогонов, новые первыми.
func (s *Storage) ListSyncRuns(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	const op = "storage.ListSyncRuns"

	query := `SELECT ` + syncRunColumns + `
			  FROM sync_logs
			  ORDER BY id DESC
			  LIMIT $1`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.SyncRun, 0)
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, run)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func scanSyncRun(row scanner) (*models.SyncRun, error) {
	var (
		run         models.SyncRun
		status      string
		completedAt sql.NullTime
		errMsg      sql.NullString
	)
	if err := row.Scan(&run.ID, &run.StartedAt, &completedAt, &run.UsersSynced,
		&run.UsersFailed, &status, &errMsg); err != nil {
		return nil, err
	}
	run.Status = models.SyncStatus(status)
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if errMsg.Valid {
		run.ErrorMessage = &errMsg.String
	}
	return &run, nil
}
