package model

// RawReading is the loosely-typed remote row shape. Older rows predate
// several schema additions, so every field is optional, and numeric-ish
// fields are declared as any: legacy writers stored numbers and numeric
// strings interchangeably. The reconciler owns all coercion; nothing else
// may interpret these fields.
type RawReading struct {
	ID      string `json:"id,omitempty"`
	TrackID string `json:"track_id,omitempty"`
	UserID  any    `json:"user_id,omitempty"`

	Timestamp any    `json:"timestamp,omitempty"`
	TimeZone  string `json:"time_zone,omitempty"`
	TrackDate string `json:"track_date,omitempty"`
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
	Year      any    `json:"year,omitempty"`

	Session               string `json:"session,omitempty"`
	Pair                  string `json:"pair,omitempty"`
	ClassCurrentlyRunning string `json:"class_currently_running,omitempty"`

	LeftLane  *LaneReading `json:"left_lane,omitempty"`
	RightLane *LaneReading `json:"right_lane,omitempty"`

	LeftPhotoPath  string `json:"left_photo_path,omitempty"`
	RightPhotoPath string `json:"right_photo_path,omitempty"`

	TempF       any `json:"temp_f,omitempty"`
	HumidityPct any `json:"humidity_pct,omitempty"`
	BaroInHg    any `json:"baro_inhg,omitempty"`
	ADR         any `json:"adr,omitempty"`
	Correction  any `json:"correction,omitempty"`
	WeatherTS   any `json:"weather_ts,omitempty"`
	UVIndex     any `json:"uv_index,omitempty"`
}
