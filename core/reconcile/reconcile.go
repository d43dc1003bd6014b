// Package reconcile maps loosely-typed remote reading rows into the
// canonical Reading entity. Reconciliation is pure and deterministic: the
// current instant is never consulted, so repeated calls on the same input
// are stable.
package reconcile

import (
	"trackanalyzer/core/temporal"
	"trackanalyzer/model"
)

// Reconcile normalizes a raw remote record. Field names may be current or
// missing entirely on rows that predate a schema addition; absence degrades
// to zero values, never to an error.
func Reconcile(raw model.RawReading) model.Reading {
	ts := temporal.SafeInt64(raw.Timestamp)

	var timestamp int64
	if ts != nil {
		timestamp = *ts
	}

	zone := raw.TimeZone
	if zone == "" {
		zone = "UTC"
	}

	// trackDate precedence: explicit column, then the legacy date column,
	// then derivation from the timestamp in the reading's zone.
	trackDate := raw.TrackDate
	if trackDate == "" {
		trackDate = raw.Date
	}
	if trackDate == "" && ts != nil {
		trackDate = temporal.TrackDate(timestamp, zone)
	}

	// year precedence: explicit stored year, then track-local date, then
	// UTC calendar year of the timestamp.
	year := toYear(temporal.SafeInt64(raw.Year))
	if year == nil {
		year = temporal.Year(trackDate, ts)
	}

	displayDate := raw.Date
	if displayDate == "" && ts != nil {
		displayDate = temporal.LegacyDate(timestamp, zone)
	}
	displayTime := raw.Time
	if displayTime == "" && ts != nil {
		displayTime = temporal.Clock(timestamp, zone)
	}

	var userID int64
	if id := temporal.SafeInt64(raw.UserID); id != nil {
		userID = *id
	}

	reading := model.Reading{
		ID:      raw.ID,
		TrackID: raw.TrackID,
		UserID:  userID,

		Timestamp: timestamp,
		TimeZone:  raw.TimeZone,
		TrackDate: trackDate,
		Date:      displayDate,
		Time:      displayTime,
		Year:      year,

		Session:               raw.Session,
		Pair:                  raw.Pair,
		ClassCurrentlyRunning: raw.ClassCurrentlyRunning,

		LeftPhotoPath:  raw.LeftPhotoPath,
		RightPhotoPath: raw.RightPhotoPath,

		TempF:       temporal.SafeNumber(raw.TempF),
		HumidityPct: temporal.SafeNumber(raw.HumidityPct),
		BaroInHg:    temporal.SafeNumber(raw.BaroInHg),
		ADR:         temporal.SafeNumber(raw.ADR),
		Correction:  temporal.SafeNumber(raw.Correction),
		WeatherTS:   temporal.SafeInt64(raw.WeatherTS),
		UVIndex:     temporal.SafeNumber(raw.UVIndex),
	}

	if raw.LeftLane != nil {
		reading.LeftLane = *raw.LeftLane
	}
	if raw.RightLane != nil {
		reading.RightLane = *raw.RightLane
	}

	return reading
}

// ToRaw shapes a canonical Reading back into the remote row shape. Used by
// the write path and by round-trip tests; Reconcile(ToRaw(r)) equals r for
// any reconciled r.
func ToRaw(r model.Reading) model.RawReading {
	raw := model.RawReading{
		ID:      r.ID,
		TrackID: r.TrackID,

		TimeZone:  r.TimeZone,
		TrackDate: r.TrackDate,
		Date:      r.Date,
		Time:      r.Time,

		Session:               r.Session,
		Pair:                  r.Pair,
		ClassCurrentlyRunning: r.ClassCurrentlyRunning,

		LeftPhotoPath:  r.LeftPhotoPath,
		RightPhotoPath: r.RightPhotoPath,
	}

	if r.UserID != 0 {
		raw.UserID = r.UserID
	}
	if r.Timestamp != 0 {
		raw.Timestamp = r.Timestamp
	}
	if r.Year != nil {
		raw.Year = int64(*r.Year)
	}

	left, right := r.LeftLane, r.RightLane
	raw.LeftLane = &left
	raw.RightLane = &right

	if r.TempF != nil {
		raw.TempF = *r.TempF
	}
	if r.HumidityPct != nil {
		raw.HumidityPct = *r.HumidityPct
	}
	if r.BaroInHg != nil {
		raw.BaroInHg = *r.BaroInHg
	}
	if r.ADR != nil {
		raw.ADR = *r.ADR
	}
	if r.Correction != nil {
		raw.Correction = *r.Correction
	}
	if r.WeatherTS != nil {
		raw.WeatherTS = *r.WeatherTS
	}
	if r.UVIndex != nil {
		raw.UVIndex = *r.UVIndex
	}

	return raw
}

// GroupByDay buckets readings by display date, preserving the input order
// of both days and readings. The grouping is a view: recomputed on every
// load, never persisted.
func GroupByDay(readings []model.Reading) []model.DayReadings {
	var order []string
	byDay := make(map[string][]model.Reading)

	for _, r := range readings {
		key := r.Date
		if key == "" {
			key = r.TrackDate
		}
		if _, seen := byDay[key]; !seen {
			order = append(order, key)
		}
		byDay[key] = append(byDay[key], r)
	}

	days := make([]model.DayReadings, 0, len(order))
	for _, key := range order {
		days = append(days, model.DayReadings{Date: key, Readings: byDay[key]})
	}
	return days
}

func toYear(v *int64) *int {
	if v == nil {
		return nil
	}
	y := int(*v)
	return &y
}
