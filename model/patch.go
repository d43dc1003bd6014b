package model

import (
	"database/sql"
	"encoding/json"
)

// ReadingPatch is a sparse update. A nil pointer means "leave the column
// unchanged"; a non-nil pointer to an invalid Null* value means "explicitly
// clear". The weather snapshot is immutable after creation and therefore
// has no patch fields.
type ReadingPatch struct {
	Timestamp             *int64
	TimeZone              *sql.NullString
	TrackDate             *sql.NullString
	Year                  *sql.NullInt64
	Session               *sql.NullString
	Pair                  *sql.NullString
	ClassCurrentlyRunning *sql.NullString
	LeftLane              *LaneReading
	RightLane             *LaneReading
	LeftPhotoPath         *sql.NullString
	RightPhotoPath        *sql.NullString
}

// IsEmpty reports whether the patch touches no columns.
func (p *ReadingPatch) IsEmpty() bool {
	return p.Timestamp == nil && p.TimeZone == nil && p.TrackDate == nil &&
		p.Year == nil && p.Session == nil && p.Pair == nil &&
		p.ClassCurrentlyRunning == nil && p.LeftLane == nil && p.RightLane == nil &&
		p.LeftPhotoPath == nil && p.RightPhotoPath == nil
}

// SetSession marks the session column for update.
func (p *ReadingPatch) SetSession(v string) *ReadingPatch {
	p.Session = &sql.NullString{String: v, Valid: true}
	return p
}

// UnmarshalJSON preserves the omitted-vs-null distinction: a key absent
// from the payload leaves its pointer nil, a key present with a JSON null
// produces an explicit clear.
func (p *ReadingPatch) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	str := func(raw json.RawMessage) (*sql.NullString, error) {
		if string(raw) == "null" {
			return &sql.NullString{}, nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return &sql.NullString{String: s, Valid: true}, nil
	}

	for key, raw := range fields {
		var err error
		switch key {
		case "timestamp":
			if string(raw) != "null" {
				var ts int64
				if err = json.Unmarshal(raw, &ts); err == nil {
					p.Timestamp = &ts
				}
			}
		case "timeZone", "time_zone":
			p.TimeZone, err = str(raw)
		case "trackDate", "track_date":
			p.TrackDate, err = str(raw)
		case "year":
			if string(raw) == "null" {
				p.Year = &sql.NullInt64{}
			} else {
				var y int64
				if err = json.Unmarshal(raw, &y); err == nil {
					p.Year = &sql.NullInt64{Int64: y, Valid: true}
				}
			}
		case "session":
			p.Session, err = str(raw)
		case "pair":
			p.Pair, err = str(raw)
		case "classCurrentlyRunning", "class_currently_running":
			p.ClassCurrentlyRunning, err = str(raw)
		case "leftLane", "left_lane":
			if string(raw) != "null" {
				lane := &LaneReading{}
				if err = json.Unmarshal(raw, lane); err == nil {
					p.LeftLane = lane
				}
			}
		case "rightLane", "right_lane":
			if string(raw) != "null" {
				lane := &LaneReading{}
				if err = json.Unmarshal(raw, lane); err == nil {
					p.RightLane = lane
				}
			}
		case "leftPhotoPath", "left_photo_path":
			p.LeftPhotoPath, err = str(raw)
		case "rightPhotoPath", "right_photo_path":
			p.RightPhotoPath, err = str(raw)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
