package model

import (
	"database/sql"
	"time"
)

// Schema row structs. These exist for GORM AutoMigrate only; the
// repositories read and write through database/sql, and the reconciler
// consumes RawReading. Column names match the remote row shape exactly.

// TrackRow is the tracks table schema.
type TrackRow struct {
	ID        string    `gorm:"column:id;type:char(36);primaryKey"`
	UserID    int64     `gorm:"column:user_id;index"`
	Name      string    `gorm:"column:name;type:varchar(255);not null"`
	Location  string    `gorm:"column:location;type:varchar(255)"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName maps TrackRow to the tracks table.
func (TrackRow) TableName() string { return "tracks" }

// ReadingRow is the readings table schema. Lane objects are stored as JSON
// columns; weather fields are nullable and written once at creation.
type ReadingRow struct {
	ID      string        `gorm:"column:id;type:char(36);primaryKey"`
	TrackID string        `gorm:"column:track_id;type:char(36);index;not null"`
	UserID  sql.NullInt64 `gorm:"column:user_id"`

	Timestamp sql.NullInt64  `gorm:"column:timestamp"`
	TimeZone  sql.NullString `gorm:"column:time_zone;type:varchar(64)"`
	TrackDate sql.NullString `gorm:"column:track_date;type:varchar(10);index"`
	Date      sql.NullString `gorm:"column:date;type:varchar(32)"`
	Time      sql.NullString `gorm:"column:time;type:varchar(16)"`
	Year      sql.NullInt64  `gorm:"column:year;index"`

	Session               sql.NullString `gorm:"column:session;type:varchar(64)"`
	Pair                  sql.NullString `gorm:"column:pair;type:varchar(64)"`
	ClassCurrentlyRunning sql.NullString `gorm:"column:class_currently_running;type:varchar(128)"`

	LeftLane  sql.NullString `gorm:"column:left_lane;type:json"`
	RightLane sql.NullString `gorm:"column:right_lane;type:json"`

	LeftPhotoPath  sql.NullString `gorm:"column:left_photo_path;type:varchar(512)"`
	RightPhotoPath sql.NullString `gorm:"column:right_photo_path;type:varchar(512)"`

	TempF       sql.NullFloat64 `gorm:"column:temp_f"`
	HumidityPct sql.NullFloat64 `gorm:"column:humidity_pct"`
	BaroInHg    sql.NullFloat64 `gorm:"column:baro_inhg"`
	ADR         sql.NullFloat64 `gorm:"column:adr"`
	Correction  sql.NullFloat64 `gorm:"column:correction"`
	WeatherTS   sql.NullInt64   `gorm:"column:weather_ts"`
	UVIndex     sql.NullFloat64 `gorm:"column:uv_index"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName maps ReadingRow to the readings table.
func (ReadingRow) TableName() string { return "readings" }

// UserRow is the users table schema.
type UserRow struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Username     string    `gorm:"column:username;type:varchar(100);uniqueIndex;not null"`
	Email        string    `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255);not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName maps UserRow to the users table.
func (UserRow) TableName() string { return "users" }
