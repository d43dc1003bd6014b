package model

// LaneReading holds one lane's measurements. All measurement fields are
// free-form strings; validation, if any, happens in the app UI. ImageURI is
// a device-local reference that only exists before the photo is uploaded;
// once a photo path is stored on the parent reading it is authoritative.
type LaneReading struct {
	TrackTemp string `json:"trackTemp,omitempty"`
	UVIndex   string `json:"uvIndex,omitempty"`
	KegSL     string `json:"kegSL,omitempty"`
	KegOut    string `json:"kegOut,omitempty"`
	GrippoSL  string `json:"grippoSL,omitempty"`
	GrippoOut string `json:"grippoOut,omitempty"`
	Shine     string `json:"shine,omitempty"`
	Notes     string `json:"notes,omitempty"`
	ImageURI  string `json:"imageUri,omitempty"`
}

// Reading is the canonical, post-reconciliation entity. TrackDate is the
// calendar date as observed in the track's timezone, fixed at creation; it
// must never be re-derived from a viewer's device timezone.
type Reading struct {
	ID      string `json:"id"`
	TrackID string `json:"trackId"`
	UserID  int64  `json:"userId,omitempty"`

	Timestamp int64  `json:"timestamp"`
	TimeZone  string `json:"timeZone,omitempty"`
	TrackDate string `json:"trackDate"`
	Date      string `json:"date,omitempty"` // legacy display string
	Time      string `json:"time,omitempty"` // legacy display string
	Year      *int   `json:"year,omitempty"`

	Session               string `json:"session,omitempty"`
	Pair                  string `json:"pair,omitempty"`
	ClassCurrentlyRunning string `json:"classCurrentlyRunning,omitempty"`

	LeftLane  LaneReading `json:"leftLane"`
	RightLane LaneReading `json:"rightLane"`

	LeftPhotoPath  string `json:"leftPhotoPath,omitempty"`
	RightPhotoPath string `json:"rightPhotoPath,omitempty"`

	// Weather snapshot, captured once at creation and immutable after.
	TempF       *float64 `json:"tempF,omitempty"`
	HumidityPct *float64 `json:"humidityPct,omitempty"`
	BaroInHg    *float64 `json:"baroInHg,omitempty"`
	ADR         *float64 `json:"adr,omitempty"`
	Correction  *float64 `json:"correction,omitempty"`
	WeatherTS   *int64   `json:"weatherTs,omitempty"`
	UVIndex     *float64 `json:"uvIndex,omitempty"`
}

// HasWeather reports whether any snapshot field is populated. Partial
// presence counts as "has weather"; the flag drives conditional UI only.
func (r *Reading) HasWeather() bool {
	return r.TempF != nil || r.HumidityPct != nil || r.BaroInHg != nil ||
		r.ADR != nil || r.Correction != nil || r.WeatherTS != nil || r.UVIndex != nil
}

// DayReadings is a pure view grouping of readings by display date. It is
// recomputed on every load and never persisted.
type DayReadings struct {
	Date     string    `json:"date"`
	Readings []Reading `json:"readings"`
}
