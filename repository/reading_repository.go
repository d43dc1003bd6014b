package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"trackanalyzer/logger"
	"trackanalyzer/model"
)

// Lane names used in photo columns and object keys.
const (
	LaneLeft  = "left"
	LaneRight = "right"
)

// readingColumns is the full select list for the readings table, in scan order.
const readingColumns = `id, track_id, user_id, timestamp, time_zone, track_date, date, time, year,
	session, pair, class_currently_running, left_lane, right_lane,
	left_photo_path, right_photo_path,
	temp_f, humidity_pct, baro_inhg, adr, correction, weather_ts, uv_index`

// ReadingRepository defines the interface for reading data operations. The
// read path returns raw rows; reconciliation into the canonical entity
// happens above this layer.
type ReadingRepository interface {
	Insert(ctx context.Context, reading *model.Reading) error
	GetByID(ctx context.Context, id string) (*model.RawReading, error)
	ListByTrack(ctx context.Context, trackID string, year *int) ([]model.RawReading, error)
	Update(ctx context.Context, id string, patch *model.ReadingPatch) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	SetPhotoPath(ctx context.Context, id, lane, path string) error
	PhotoPaths(ctx context.Context, id string) ([]string, error)
}

// mysqlReadingRepository implements ReadingRepository for MySQL.
type mysqlReadingRepository struct {
	DB *sql.DB
}

// NewMySQLReadingRepository creates a new instance of mysqlReadingRepository.
func NewMySQLReadingRepository(db *sql.DB) ReadingRepository {
	return &mysqlReadingRepository{DB: db}
}

// Insert writes a fully-shaped reading, weather snapshot included. The
// snapshot is written once here and never updated afterwards.
func (r *mysqlReadingRepository) Insert(ctx context.Context, reading *model.Reading) error {
	query := `INSERT INTO readings (` + readingColumns + `, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.DB.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for Insert reading: %w", err)
	}
	defer stmt.Close()

	leftLane, err := laneJSON(reading.LeftLane)
	if err != nil {
		return err
	}
	rightLane, err := laneJSON(reading.RightLane)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = stmt.ExecContext(ctx,
		reading.ID,
		reading.TrackID,
		nullInt64(reading.UserID),
		nullInt64(reading.Timestamp),
		nullString(reading.TimeZone),
		nullString(reading.TrackDate),
		nullString(reading.Date),
		nullString(reading.Time),
		yearValue(reading.Year),
		nullString(reading.Session),
		nullString(reading.Pair),
		nullString(reading.ClassCurrentlyRunning),
		leftLane,
		rightLane,
		nullString(reading.LeftPhotoPath),
		nullString(reading.RightPhotoPath),
		floatValue(reading.TempF),
		floatValue(reading.HumidityPct),
		floatValue(reading.BaroInHg),
		floatValue(reading.ADR),
		floatValue(reading.Correction),
		int64Value(reading.WeatherTS),
		floatValue(reading.UVIndex),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to execute Insert reading: %w", err)
	}
	logger.Info("Reading created", logger.String("readingId", reading.ID), logger.String("trackId", reading.TrackID))
	return nil
}

// GetByID retrieves a single raw row. Returns nil, nil when not found.
func (r *mysqlReadingRepository) GetByID(ctx context.Context, id string) (*model.RawReading, error) {
	query := `SELECT ` + readingColumns + ` FROM readings WHERE id = ?`
	row := r.DB.QueryRowContext(ctx, query, id)

	raw, err := scanRawReading(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan reading by ID %s: %w", id, err)
	}
	return raw, nil
}

// ListByTrack retrieves a track's raw rows, newest first. The year filter
// is a remote-side equality filter, not applied client-side.
func (r *mysqlReadingRepository) ListByTrack(ctx context.Context, trackID string, year *int) ([]model.RawReading, error) {
	query := `SELECT ` + readingColumns + ` FROM readings WHERE track_id = ?`
	args := []any{trackID}
	if year != nil {
		query += ` AND year = ?`
		args = append(args, *year)
	}
	query += ` ORDER BY timestamp DESC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings for track %s: %w", trackID, err)
	}
	defer rows.Close()

	raws := make([]model.RawReading, 0)
	for rows.Next() {
		raw, err := scanRawReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading in ListByTrack: %w", err)
		}
		raws = append(raws, *raw)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in ListByTrack: %w", err)
	}

	return raws, nil
}

// Update applies a sparse patch: only columns with a non-nil pointer are
// included in the UPDATE, so omitted fields stay untouched and explicit
// invalid Null* values clear their column.
func (r *mysqlReadingRepository) Update(ctx context.Context, id string, patch *model.ReadingPatch) (bool, error) {
	if patch == nil || patch.IsEmpty() {
		return true, nil
	}

	var sets []string
	var args []any

	if patch.Timestamp != nil {
		sets = append(sets, "timestamp = ?")
		args = append(args, *patch.Timestamp)
	}
	if patch.TimeZone != nil {
		sets = append(sets, "time_zone = ?")
		args = append(args, *patch.TimeZone)
	}
	if patch.TrackDate != nil {
		sets = append(sets, "track_date = ?")
		args = append(args, *patch.TrackDate)
	}
	if patch.Year != nil {
		sets = append(sets, "year = ?")
		args = append(args, *patch.Year)
	}
	if patch.Session != nil {
		sets = append(sets, "session = ?")
		args = append(args, *patch.Session)
	}
	if patch.Pair != nil {
		sets = append(sets, "pair = ?")
		args = append(args, *patch.Pair)
	}
	if patch.ClassCurrentlyRunning != nil {
		sets = append(sets, "class_currently_running = ?")
		args = append(args, *patch.ClassCurrentlyRunning)
	}
	if patch.LeftLane != nil {
		lane, err := laneJSON(*patch.LeftLane)
		if err != nil {
			return false, err
		}
		sets = append(sets, "left_lane = ?")
		args = append(args, lane)
	}
	if patch.RightLane != nil {
		lane, err := laneJSON(*patch.RightLane)
		if err != nil {
			return false, err
		}
		sets = append(sets, "right_lane = ?")
		args = append(args, lane)
	}
	if patch.LeftPhotoPath != nil {
		sets = append(sets, "left_photo_path = ?")
		args = append(args, *patch.LeftPhotoPath)
	}
	if patch.RightPhotoPath != nil {
		sets = append(sets, "right_photo_path = ?")
		args = append(args, *patch.RightPhotoPath)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now())
	args = append(args, id)

	query := `UPDATE readings SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to execute Update for reading %s: %w", id, err)
	}

	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// Delete removes a reading row.
func (r *mysqlReadingRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM readings WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to execute Delete for reading %s: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// SetPhotoPath stores an uploaded object path on the given lane's path
// column and drops the lane's device-local imageUri: the path column is
// authoritative once present.
func (r *mysqlReadingRepository) SetPhotoPath(ctx context.Context, id, lane, path string) error {
	var column, laneColumn string
	switch lane {
	case LaneLeft:
		column, laneColumn = "left_photo_path", "left_lane"
	case LaneRight:
		column, laneColumn = "right_photo_path", "right_lane"
	default:
		return fmt.Errorf("unknown lane %q", lane)
	}

	query := fmt.Sprintf(
		`UPDATE readings SET %s = ?, %s = JSON_REMOVE(COALESCE(%s, '{}'), '$.imageUri'), updated_at = ? WHERE id = ?`,
		column, laneColumn, laneColumn,
	)
	_, err := r.DB.ExecContext(ctx, query, path, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set %s photo path for reading %s: %w", lane, id, err)
	}
	return nil
}

// PhotoPaths returns the stored photo paths for one reading.
func (r *mysqlReadingRepository) PhotoPaths(ctx context.Context, id string) ([]string, error) {
	query := `SELECT left_photo_path, right_photo_path FROM readings WHERE id = ?`
	var left, right sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&left, &right)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query photo paths for reading %s: %w", id, err)
	}

	var paths []string
	if left.Valid && left.String != "" {
		paths = append(paths, left.String)
	}
	if right.Valid && right.String != "" {
		paths = append(paths, right.String)
	}
	return paths, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRawReading maps a row onto the loosely-typed RawReading. NULL columns
// stay absent (nil / empty string) so the reconciler can apply its fallback
// rules.
func scanRawReading(s scanner) (*model.RawReading, error) {
	var (
		id, trackID                    string
		userID, timestamp, year        sql.NullInt64
		timeZone, trackDate            sql.NullString
		date, timeStr                  sql.NullString
		session, pair, classRunning    sql.NullString
		leftLane, rightLane            sql.NullString
		leftPhotoPath, rightPhotoPath  sql.NullString
		tempF, humidityPct, baroInHg   sql.NullFloat64
		adr, correction, uvIndex       sql.NullFloat64
		weatherTS                      sql.NullInt64
	)

	if err := s.Scan(
		&id, &trackID, &userID, &timestamp, &timeZone, &trackDate, &date, &timeStr, &year,
		&session, &pair, &classRunning, &leftLane, &rightLane,
		&leftPhotoPath, &rightPhotoPath,
		&tempF, &humidityPct, &baroInHg, &adr, &correction, &weatherTS, &uvIndex,
	); err != nil {
		return nil, err
	}

	raw := &model.RawReading{
		ID:      id,
		TrackID: trackID,

		TimeZone:  timeZone.String,
		TrackDate: trackDate.String,
		Date:      date.String,
		Time:      timeStr.String,

		Session:               session.String,
		Pair:                  pair.String,
		ClassCurrentlyRunning: classRunning.String,

		LeftPhotoPath:  leftPhotoPath.String,
		RightPhotoPath: rightPhotoPath.String,
	}

	if userID.Valid {
		raw.UserID = userID.Int64
	}
	if timestamp.Valid {
		raw.Timestamp = timestamp.Int64
	}
	if year.Valid {
		raw.Year = year.Int64
	}

	raw.LeftLane = parseLane(leftLane)
	raw.RightLane = parseLane(rightLane)

	if tempF.Valid {
		raw.TempF = tempF.Float64
	}
	if humidityPct.Valid {
		raw.HumidityPct = humidityPct.Float64
	}
	if baroInHg.Valid {
		raw.BaroInHg = baroInHg.Float64
	}
	if adr.Valid {
		raw.ADR = adr.Float64
	}
	if correction.Valid {
		raw.Correction = correction.Float64
	}
	if weatherTS.Valid {
		raw.WeatherTS = weatherTS.Int64
	}
	if uvIndex.Valid {
		raw.UVIndex = uvIndex.Float64
	}

	return raw, nil
}

// parseLane decodes a JSON lane column. Malformed lane JSON degrades to an
// absent lane rather than failing the whole row.
func parseLane(col sql.NullString) *model.LaneReading {
	if !col.Valid || col.String == "" {
		return nil
	}
	lane := &model.LaneReading{}
	if err := json.Unmarshal([]byte(col.String), lane); err != nil {
		logger.Warn("Malformed lane JSON in readings row", logger.ErrorField(err))
		return nil
	}
	return lane
}

func laneJSON(lane model.LaneReading) (string, error) {
	data, err := json.Marshal(lane)
	if err != nil {
		return "", fmt.Errorf("failed to marshal lane object: %w", err)
	}
	return string(data), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func yearValue(y *int) sql.NullInt64 {
	if y == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*y), Valid: true}
}

func floatValue(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func int64Value(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
