package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

const uniqueViolation = "23505"

const userColumns = `id, email, beag_client_id, subscription_status, plan_id, start_date,
			      end_date, my_saas_app_id, last_synced, created_at, updated_at`

// CreateUser сохраняет нового пользователя и возвращает его вместе с присвоенным ID.
func (s *Storage) CreateUser(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.CreateUser"

	query := `INSERT INTO users (email)
			  VALUES ($1)
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE email = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByID возвращает пользователя по ID.
func (s *Storage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUserByID"

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ListUsers возвращает страницу пользователей, упорядоченных по ID.
func (s *Storage) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	const op = "storage.ListUsers"

	query := `SELECT ` + userColumns + `
			  FROM users
			  ORDER BY id
			  LIMIT $1 OFFSET $2`
	users, err := s.queryUsers(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// ListAllUsers возвращает всех пользователей одним снимком.
// Пользователи, добавленные после чтения, в снимок не попадают.
func (s *Storage) ListAllUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListAllUsers"

	query := `SELECT ` + userColumns + `
			  FROM users
			  ORDER BY id`
	users, err := s.queryUsers(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// UpdateSubscription записывает поля подписки пользователя в отдельной транзакции.
// Если пользователь не найден, транзакция откатывается и возвращается ErrUserNotFound.
func (s *Storage) UpdateSubscription(ctx context.Context, u *models.User) error {
	const op = "storage.UpdateSubscription"

	var status *string
	if u.SubscriptionStatus != nil {
		v := string(*u.SubscriptionStatus)
		status = &v
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `UPDATE users
				  SET beag_client_id = $1,
				      subscription_status = $2,
				      plan_id = $3,
				      start_date = $4,
				      end_date = $5,
				      my_saas_app_id = $6,
				      last_synced = $7,
				      updated_at = NOW()
				  WHERE id = $8`
		res, err := tx.ExecContext(ctx, query,
			u.BeagClientID, status, u.PlanID, u.StartDate, u.EndDate,
			u.MySaasAppID, u.LastSynced, u.ID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) queryUsers(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u                                 models.User
		clientID, planID                  sql.NullInt64
		status, appID                     sql.NullString
		startDate, endDate, synced, updAt sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &clientID, &status, &planID, &startDate,
		&endDate, &appID, &synced, &u.CreatedAt, &updAt); err != nil {
		return nil, err
	}

	if clientID.Valid {
		u.BeagClientID = &clientID.Int64
	}
	if status.Valid {
		st := models.SubscriptionStatus(status.String)
		u.SubscriptionStatus = &st
	}
	if planID.Valid {
		u.PlanID = &planID.Int64
	}
	if startDate.Valid {
		u.StartDate = &startDate.Time
	}
	if endDate.Valid {
		u.EndDate = &endDate.Time
	}
	if appID.Valid {
		u.MySaasAppID = &appID.String
	}
	if synced.Valid {
		u.LastSynced = &synced.Time
	}
	if updAt.Valid {
		u.UpdatedAt = &updAt.Time
	}
	return &u, nil
}
