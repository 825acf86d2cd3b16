package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"fitmetrics/internal/signal"
)

// SaveDerivedMetrics writes every derived row for one activity in a single
// transaction: activities_norm, activities_calc, the core activities row and,
// for runs, activity_details_run.
func (s *Store) SaveDerivedMetrics(ctx context.Context, m *DerivedMetrics) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertNorm(ctx, tx, m); err != nil {
		return fmt.Errorf("upserting activities_norm: %w", err)
	}
	if err := upsertCalc(ctx, tx, m); err != nil {
		return fmt.Errorf("upserting activities_calc: %w", err)
	}
	if err := upsertCore(ctx, tx, m); err != nil {
		return fmt.Errorf("upserting activities: %w", err)
	}
	if m.IsRun() {
		if err := upsertRunDetails(ctx, tx, m); err != nil {
			return fmt.Errorf("upserting activity_details_run: %w", err)
		}
	} else {
		// Type may have changed since the last run.
		if _, err := tx.ExecContext(ctx, `DELETE FROM activity_details_run WHERE activity_id = ?`, m.ActivityID); err != nil {
			return fmt.Errorf("clearing activity_details_run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func upsertNorm(ctx context.Context, tx *sql.Tx, m *DerivedMetrics) error {
	hrNorm, err := seriesJSON(m.HRNormCurve)
	if err != nil {
		return err
	}
	pace, err := seriesJSON(m.PaceCurve)
	if err != nil {
		return err
	}
	cadence, err := seriesJSON(m.CadenceCurve)
	if err != nil {
		return err
	}
	hr, err := seriesJSON(m.HRCurve)
	if err != nil {
		return err
	}
	var warnings any
	if len(m.Warnings) > 0 {
		b, err := json.Marshal(m.Warnings)
		if err != nil {
			return err
		}
		warnings = string(b)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO activities_norm (
			activity_id, avg_hr_norm, flat_pace_sec, flat_pace_weather_sec, cadence_avg,
			stride_len, hr_drift, decoupling, hr_norm_json, pace_smooth_json,
			cadence_smooth_json, hr_smooth_json, warnings_json, computed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(activity_id) DO UPDATE SET
			avg_hr_norm = excluded.avg_hr_norm,
			flat_pace_sec = excluded.flat_pace_sec,
			flat_pace_weather_sec = excluded.flat_pace_weather_sec,
			cadence_avg = excluded.cadence_avg,
			stride_len = excluded.stride_len,
			hr_drift = excluded.hr_drift,
			decoupling = excluded.decoupling,
			hr_norm_json = excluded.hr_norm_json,
			pace_smooth_json = excluded.pace_smooth_json,
			cadence_smooth_json = excluded.cadence_smooth_json,
			hr_smooth_json = excluded.hr_smooth_json,
			warnings_json = excluded.warnings_json,
			computed_at = CURRENT_TIMESTAMP
	`,
		m.ActivityID, m.AvgHRNorm, m.FlatPaceSec, m.FlatPaceWeatherSec, m.CadenceAvg,
		m.StrideLen, m.HRDrift, m.Decoupling, hrNorm, pace,
		cadence, hr, warnings,
	)
	return err
}

// zoneArgs flattens the zone summary into the shared column order
// z1..z5, score, label, max, rest, method.
func zoneArgs(z *ZoneSummary) []any {
	if z == nil {
		return []any{nil, nil, nil, nil, nil, nil, nil, nil, nil, nil}
	}
	return []any{
		z.Seconds[0], z.Seconds[1], z.Seconds[2], z.Seconds[3], z.Seconds[4],
		z.Score, z.Label, z.MaxHR, z.RestHR, z.Method,
	}
}

func upsertCalc(ctx context.Context, tx *sql.Tx, m *DerivedMetrics) error {
	args := []any{
		m.ActivityID, m.StartTime, nullableString(m.WeekStart), m.ActivityType,
		m.DistanceM, m.MovingS, m.AvgSpeedMps, m.AvgHRRaw, m.AvgHRNorm,
		m.FlatPaceSec, m.FlatPaceWeatherSec, m.FlatTime, m.FlatDist,
		m.CadenceAvg, m.StrideLen, m.HRDrift, m.Decoupling,
	}
	args = append(args, zoneArgs(m.Zones)...)
	args = append(args, m.UserID)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO activities_calc (
			activity_id, start_time, week_start, activity_type,
			distance_m, moving_s, avg_speed_mps, avg_hr_raw, avg_hr_norm,
			flat_pace_sec, flat_pace_weather_sec, flat_time, flat_dist,
			cadence_avg, stride_len, hr_drift, decoupling,
			hr_z1_s, hr_z2_s, hr_z3_s, hr_z4_s, hr_z5_s,
			hr_zone_score, hr_zone_label, hr_max_used, hr_rest_used, hr_zone_method,
			user_id, computed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(activity_id) DO UPDATE SET
			start_time = excluded.start_time,
			week_start = excluded.week_start,
			activity_type = excluded.activity_type,
			distance_m = excluded.distance_m,
			moving_s = excluded.moving_s,
			avg_speed_mps = excluded.avg_speed_mps,
			avg_hr_raw = excluded.avg_hr_raw,
			avg_hr_norm = excluded.avg_hr_norm,
			flat_pace_sec = excluded.flat_pace_sec,
			flat_pace_weather_sec = excluded.flat_pace_weather_sec,
			flat_time = excluded.flat_time,
			flat_dist = excluded.flat_dist,
			cadence_avg = excluded.cadence_avg,
			stride_len = excluded.stride_len,
			hr_drift = excluded.hr_drift,
			decoupling = excluded.decoupling,
			hr_z1_s = excluded.hr_z1_s,
			hr_z2_s = excluded.hr_z2_s,
			hr_z3_s = excluded.hr_z3_s,
			hr_z4_s = excluded.hr_z4_s,
			hr_z5_s = excluded.hr_z5_s,
			hr_zone_score = excluded.hr_zone_score,
			hr_zone_label = excluded.hr_zone_label,
			hr_max_used = excluded.hr_max_used,
			hr_rest_used = excluded.hr_rest_used,
			hr_zone_method = excluded.hr_zone_method,
			user_id = excluded.user_id,
			computed_at = CURRENT_TIMESTAMP
	`, args...)
	return err
}

func upsertCore(ctx context.Context, tx *sql.Tx, m *DerivedMetrics) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO activities (
			source_id, activity_id, activity_type, start_time, name,
			distance_m, moving_s, elev_gain, user_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(activity_id) DO UPDATE SET
			source_id = excluded.source_id,
			activity_type = excluded.activity_type,
			start_time = excluded.start_time,
			name = excluded.name,
			distance_m = excluded.distance_m,
			moving_s = excluded.moving_s,
			elev_gain = excluded.elev_gain,
			user_id = excluded.user_id,
			updated_at = CURRENT_TIMESTAMP
	`,
		m.SourceID, m.ActivityID, m.ActivityType, m.StartTime, m.Name,
		m.DistanceM, m.MovingS, m.ElevGain, m.UserID,
	)
	return err
}

func upsertRunDetails(ctx context.Context, tx *sql.Tx, m *DerivedMetrics) error {
	args := []any{
		m.ActivityID, m.AvgHRRaw, m.AvgHRNorm, m.FlatPaceSec, m.FlatPaceWeatherSec,
		m.CadenceAvg, m.StrideLen, m.HRDrift, m.Decoupling,
	}
	args = append(args, zoneArgs(m.Zones)...)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO activity_details_run (
			activity_id, avg_hr_raw, avg_hr_norm, flat_pace_sec, flat_pace_weather_sec,
			cadence_avg, stride_len, hr_drift, decoupling,
			hr_z1_s, hr_z2_s, hr_z3_s, hr_z4_s, hr_z5_s,
			hr_zone_score, hr_zone_label, hr_max_used, hr_rest_used, hr_zone_method
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(activity_id) DO UPDATE SET
			avg_hr_raw = excluded.avg_hr_raw,
			avg_hr_norm = excluded.avg_hr_norm,
			flat_pace_sec = excluded.flat_pace_sec,
			flat_pace_weather_sec = excluded.flat_pace_weather_sec,
			cadence_avg = excluded.cadence_avg,
			stride_len = excluded.stride_len,
			hr_drift = excluded.hr_drift,
			decoupling = excluded.decoupling,
			hr_z1_s = excluded.hr_z1_s,
			hr_z2_s = excluded.hr_z2_s,
			hr_z3_s = excluded.hr_z3_s,
			hr_z4_s = excluded.hr_z4_s,
			hr_z5_s = excluded.hr_z5_s,
			hr_zone_score = excluded.hr_zone_score,
			hr_zone_label = excluded.hr_zone_label,
			hr_max_used = excluded.hr_max_used,
			hr_rest_used = excluded.hr_rest_used,
			hr_zone_method = excluded.hr_zone_method
	`, args...)
	return err
}

// GetDerivedMetrics reads back the derived record for an activity
func (s *Store) GetDerivedMetrics(ctx context.Context, activityID string) (*DerivedMetrics, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.activity_id, a.source_id, c.user_id, c.start_time, c.week_start, a.name,
			c.activity_type, c.distance_m, c.moving_s, a.elev_gain, c.avg_speed_mps,
			c.avg_hr_raw, c.avg_hr_norm, c.flat_pace_sec, c.flat_pace_weather_sec,
			c.flat_time, c.flat_dist, c.cadence_avg, c.stride_len, c.hr_drift, c.decoupling,
			c.hr_z1_s, c.hr_z2_s, c.hr_z3_s, c.hr_z4_s, c.hr_z5_s,
			c.hr_zone_score, c.hr_zone_label, c.hr_max_used, c.hr_rest_used, c.hr_zone_method,
			n.hr_norm_json, n.pace_smooth_json, n.cadence_smooth_json, n.hr_smooth_json,
			n.warnings_json
		FROM activities_calc c
		JOIN activities a ON a.activity_id = c.activity_id
		LEFT JOIN activities_norm n ON n.activity_id = c.activity_id
		WHERE c.activity_id = ?
	`, activityID)

	var m DerivedMetrics
	var userID, weekStart, name, zoneLabel, zoneMethod sql.NullString
	var distance, moving, elev, speed, hrRaw, hrNorm sql.NullFloat64
	var flat, flatWeather, flatTime, flatDist sql.NullFloat64
	var cadence, stride, drift, decoupling sql.NullFloat64
	var z1, z2, z3, z4, z5, zoneScore, maxUsed, restUsed sql.NullFloat64
	var hrNormJSON, paceJSON, cadJSON, hrJSON, warningsJSON sql.NullString
	err := row.Scan(
		&m.ActivityID, &m.SourceID, &userID, &m.StartTime, &weekStart, &name,
		&m.ActivityType, &distance, &moving, &elev, &speed,
		&hrRaw, &hrNorm, &flat, &flatWeather,
		&flatTime, &flatDist, &cadence, &stride, &drift, &decoupling,
		&z1, &z2, &z3, &z4, &z5,
		&zoneScore, &zoneLabel, &maxUsed, &restUsed, &zoneMethod,
		&hrNormJSON, &paceJSON, &cadJSON, &hrJSON,
		&warningsJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}

	m.UserID = nullStringPtr(userID)
	m.WeekStart = weekStart.String
	m.Name = name.String
	m.DistanceM = distance.Float64
	m.MovingS = moving.Float64
	m.ElevGain = nullFloatPtr(elev)
	m.AvgSpeedMps = nullFloatPtr(speed)
	m.AvgHRRaw = nullFloatPtr(hrRaw)
	m.AvgHRNorm = nullFloatPtr(hrNorm)
	m.FlatPaceSec = nullFloatPtr(flat)
	m.FlatPaceWeatherSec = nullFloatPtr(flatWeather)
	m.FlatTime = nullFloatPtr(flatTime)
	m.FlatDist = nullFloatPtr(flatDist)
	m.CadenceAvg = nullFloatPtr(cadence)
	m.StrideLen = nullFloatPtr(stride)
	m.HRDrift = nullFloatPtr(drift)
	m.Decoupling = nullFloatPtr(decoupling)

	if zoneScore.Valid {
		m.Zones = &ZoneSummary{
			Seconds: [5]float64{z1.Float64, z2.Float64, z3.Float64, z4.Float64, z5.Float64},
			Score:   zoneScore.Float64,
			Label:   zoneLabel.String,
			MaxHR:   maxUsed.Float64,
			RestHR:  restUsed.Float64,
			Method:  zoneMethod.String,
		}
	}

	curves := []struct {
		src sql.NullString
		dst *signal.Series
	}{
		{hrNormJSON, &m.HRNormCurve},
		{paceJSON, &m.PaceCurve},
		{cadJSON, &m.CadenceCurve},
		{hrJSON, &m.HRCurve},
	}
	for _, c := range curves {
		series, err := parseSeriesJSON(c.src)
		if err != nil {
			return nil, err
		}
		*c.dst = series
	}

	if warningsJSON.Valid && warningsJSON.String != "" {
		if err := json.Unmarshal([]byte(warningsJSON.String), &m.Warnings); err != nil {
			return nil, fmt.Errorf("decoding warnings: %w", err)
		}
	}

	return &m, nil
}

// HasDerivedMetrics reports whether an activity has derived rows
func (s *Store) HasDerivedMetrics(ctx context.Context, activityID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM activities_calc WHERE activity_id = ? LIMIT 1
	`, activityID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetWeeklySummaries returns the weekly run rollup, most recent first
func (s *Store) GetWeeklySummaries(ctx context.Context, limit int) ([]WeeklySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT week_start, runs, distance_m, moving_s, avg_flat_pace_sec, avg_hr_norm, avg_decoupling
		FROM metrics_weekly
		ORDER BY week_start DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var weeks []WeeklySummary
	for rows.Next() {
		var w WeeklySummary
		var pace, hr, dec sql.NullFloat64
		if err := rows.Scan(&w.WeekStart, &w.Runs, &w.DistanceM, &w.MovingS, &pace, &hr, &dec); err != nil {
			return nil, err
		}
		w.AvgFlatPace = nullFloatPtr(pace)
		w.AvgHRNorm = nullFloatPtr(hr)
		w.AvgDecoupling = nullFloatPtr(dec)
		weeks = append(weeks, w)
	}

	return weeks, rows.Err()
}
