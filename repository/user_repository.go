package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"trackanalyzer/logger"
	"trackanalyzer/model"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	PurgeUserData(ctx context.Context, userID int64) (*PurgeResult, error)
}

// PurgeResult reports what the account-deletion cascade removed. The
// reading IDs feed the best-effort photo-object cleanup.
type PurgeResult struct {
	ReadingIDs      []string
	TracksDeleted   int64
	ReadingsDeleted int64
	UserDeleted     bool
}

// mysqlUserRepository implements UserRepository for MySQL.
type mysqlUserRepository struct {
	DB *sql.DB
}

// NewMySQLUserRepository creates a new instance of mysqlUserRepository.
func NewMySQLUserRepository(db *sql.DB) UserRepository {
	return &mysqlUserRepository{DB: db}
}

// Create adds a new user to the database.
func (r *mysqlUserRepository) Create(ctx context.Context, user *model.User) (int64, error) {
	query := `INSERT INTO users (username, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	stmt, err := r.DB.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for Create user: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	res, err := stmt.ExecContext(ctx, user.Username, user.Email, user.PasswordHash, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute Create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for Create user: %w", err)
	}
	logger.Info("User created", logger.Int64("userId", id), logger.String("username", user.Username))
	return id, nil
}

func (r *mysqlUserRepository) getBy(ctx context.Context, where string, arg any) (*model.User, error) {
	query := `SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE ` + where
	row := r.DB.QueryRowContext(ctx, query, arg)

	user := &model.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by id. Returns nil, nil when not found.
func (r *mysqlUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getBy(ctx, "id = ?", id)
}

// GetByEmail retrieves a user by email. Returns nil, nil when not found.
func (r *mysqlUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getBy(ctx, "email = ?", email)
}

// GetByUsername retrieves a user by username. Returns nil, nil when not found.
func (r *mysqlUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getBy(ctx, "username = ?", username)
}

// PurgeUserData is the privileged account-deletion cascade: every reading
// the user wrote or that lives under one of their tracks, then their
// tracks, then the user row itself, all in one transaction. Not reachable
// from the normal gateway CRUD surface.
func (r *mysqlUserRepository) PurgeUserData(ctx context.Context, userID int64) (*PurgeResult, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for PurgeUserData: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM readings WHERE user_id = ? OR track_id IN (SELECT id FROM tracks WHERE user_id = ?)`,
		userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to collect reading IDs for user %d: %w", userID, err)
	}

	result := &PurgeResult{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan reading ID for user %d: %w", userID, err)
		}
		result.ReadingIDs = append(result.ReadingIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error during reading ID iteration for user %d: %w", userID, err)
	}
	rows.Close()

	readingsRes, err := tx.ExecContext(ctx,
		`DELETE FROM readings WHERE user_id = ? OR track_id IN (SELECT id FROM tracks WHERE user_id = ?)`,
		userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete readings for user %d: %w", userID, err)
	}
	result.ReadingsDeleted, _ = readingsRes.RowsAffected()

	tracksRes, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete tracks for user %d: %w", userID, err)
	}
	result.TracksDeleted, _ = tracksRes.RowsAffected()

	userRes, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete user %d: %w", userID, err)
	}
	userDeleted, _ := userRes.RowsAffected()
	result.UserDeleted = userDeleted > 0

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit PurgeUserData for user %d: %w", userID, err)
	}

	logger.Info("User data purged",
		logger.Int64("userId", userID),
		logger.Int64("readingsDeleted", result.ReadingsDeleted),
		logger.Int64("tracksDeleted", result.TracksDeleted),
	)
	return result, nil
}
