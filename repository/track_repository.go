package repository

import (
	"context"
	"database/sql"
	"fmt"

	"trackanalyzer/logger"
	"trackanalyzer/model"
)

// TrackRepository defines the interface for track data operations. Tracks
// are a shared-team dataset: every authenticated identity reads all rows,
// writes are attributed via user_id but not restricted to the owner.
type TrackRepository interface {
	Insert(ctx context.Context, track *model.Track) error
	GetByID(ctx context.Context, id string) (*model.Track, error)
	List(ctx context.Context) ([]model.Track, error)
	DeleteWithReadings(ctx context.Context, trackID string) (bool, error)
	ReadingPhotoPaths(ctx context.Context, trackID string) ([]string, error)
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository(db *sql.DB) TrackRepository {
	return &mysqlTrackRepository{DB: db}
}

// Insert adds a new track to the database.
func (r *mysqlTrackRepository) Insert(ctx context.Context, track *model.Track) error {
	query := `INSERT INTO tracks (id, user_id, name, location, created_at) VALUES (?, ?, ?, ?, ?)`
	stmt, err := r.DB.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for Insert track: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, track.ID, track.UserID, track.Name, track.Location, track.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute Insert track: %w", err)
	}
	logger.Info("Track created", logger.String("trackId", track.ID), logger.String("name", track.Name))
	return nil
}

// GetByID retrieves a track by its ID. Returns nil, nil when not found.
func (r *mysqlTrackRepository) GetByID(ctx context.Context, id string) (*model.Track, error) {
	query := `SELECT id, user_id, name, location, created_at FROM tracks WHERE id = ?`
	row := r.DB.QueryRowContext(ctx, query, id)

	track := &model.Track{}
	err := row.Scan(&track.ID, &track.UserID, &track.Name, &track.Location, &track.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan track by ID %s: %w", id, err)
	}
	return track, nil
}

// List retrieves the whole team's tracks, newest first.
func (r *mysqlTrackRepository) List(ctx context.Context) ([]model.Track, error) {
	query := `SELECT id, user_id, name, location, created_at FROM tracks ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := make([]model.Track, 0)
	for rows.Next() {
		var track model.Track
		if err := rows.Scan(&track.ID, &track.UserID, &track.Name, &track.Location, &track.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan track in List: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in List: %w", err)
	}

	return tracks, nil
}

// DeleteWithReadings removes a track and its readings in one transaction.
// The readings delete executes first: a track row must never be deleted
// while readings referencing it still exist.
func (r *mysqlTrackRepository) DeleteWithReadings(ctx context.Context, trackID string) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction for DeleteWithReadings: %w", err)
	}
	defer tx.Rollback()

	readingsRes, err := tx.ExecContext(ctx, `DELETE FROM readings WHERE track_id = ?`, trackID)
	if err != nil {
		return false, fmt.Errorf("failed to delete readings for track %s: %w", trackID, err)
	}

	trackRes, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, trackID)
	if err != nil {
		return false, fmt.Errorf("failed to delete track %s: %w", trackID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit DeleteWithReadings for track %s: %w", trackID, err)
	}

	readingsDeleted, _ := readingsRes.RowsAffected()
	trackDeleted, _ := trackRes.RowsAffected()
	logger.Info("Track deleted with readings",
		logger.String("trackId", trackID),
		logger.Int64("readingsDeleted", readingsDeleted),
	)
	return trackDeleted > 0, nil
}

// ReadingPhotoPaths collects the stored photo paths under a track, for
// best-effort blob cleanup before the rows go away.
func (r *mysqlTrackRepository) ReadingPhotoPaths(ctx context.Context, trackID string) ([]string, error) {
	query := `SELECT left_photo_path, right_photo_path FROM readings WHERE track_id = ?`
	rows, err := r.DB.QueryContext(ctx, query, trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to query photo paths for track %s: %w", trackID, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var left, right sql.NullString
		if err := rows.Scan(&left, &right); err != nil {
			return nil, fmt.Errorf("failed to scan photo paths for track %s: %w", trackID, err)
		}
		if left.Valid && left.String != "" {
			paths = append(paths, left.String)
		}
		if right.Valid && right.String != "" {
			paths = append(paths, right.String)
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in ReadingPhotoPaths: %w", err)
	}

	return paths, nil
}
