package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Raw activity summaries (written by ingestion)
		`CREATE TABLE IF NOT EXISTS activities_raw (
			activity_id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			start_time TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			user_id TEXT,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_raw_start ON activities_raw(start_time)`,

		// Raw streams, one row per stream kind ({"data": [...]})
		`CREATE TABLE IF NOT EXISTS streams_raw (
			activity_id TEXT NOT NULL,
			stream_type TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (activity_id, stream_type),
			FOREIGN KEY (activity_id) REFERENCES activities_raw(activity_id) ON DELETE CASCADE
		)`,

		// Weather snapshots
		`CREATE TABLE IF NOT EXISTS weather_raw (
			activity_id TEXT PRIMARY KEY,
			raw_json TEXT NOT NULL,
			fetched_at TEXT DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (activity_id) REFERENCES activities_raw(activity_id) ON DELETE CASCADE
		)`,

		// Normalized metrics and serialized curves
		`CREATE TABLE IF NOT EXISTS activities_norm (
			activity_id TEXT PRIMARY KEY,
			avg_hr_norm REAL,
			flat_pace_sec REAL,
			flat_pace_weather_sec REAL,
			cadence_avg REAL,
			stride_len REAL,
			hr_drift REAL,
			decoupling REAL,
			hr_norm_json TEXT,
			pace_smooth_json TEXT,
			cadence_smooth_json TEXT,
			hr_smooth_json TEXT,
			warnings_json TEXT,
			computed_at TEXT DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (activity_id) REFERENCES activities_raw(activity_id) ON DELETE CASCADE
		)`,

		// Calculated per-activity metrics
		`CREATE TABLE IF NOT EXISTS activities_calc (
			activity_id TEXT PRIMARY KEY,
			start_time TEXT,
			week_start TEXT,
			activity_type TEXT,
			distance_m REAL,
			moving_s REAL,
			avg_speed_mps REAL,
			avg_hr_raw REAL,
			avg_hr_norm REAL,
			flat_pace_sec REAL,
			flat_pace_weather_sec REAL,
			flat_time REAL,
			flat_dist REAL,
			cadence_avg REAL,
			stride_len REAL,
			hr_drift REAL,
			decoupling REAL,
			hr_z1_s REAL,
			hr_z2_s REAL,
			hr_z3_s REAL,
			hr_z4_s REAL,
			hr_z5_s REAL,
			hr_zone_score REAL,
			hr_zone_label TEXT,
			hr_max_used REAL,
			hr_rest_used REAL,
			hr_zone_method TEXT,
			user_id TEXT,
			computed_at TEXT DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (activity_id) REFERENCES activities_raw(activity_id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_calc_week ON activities_calc(week_start)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_calc_type ON activities_calc(activity_type)`,

		// Core activity listing
		`CREATE TABLE IF NOT EXISTS activities (
			activity_id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			activity_type TEXT NOT NULL,
			start_time TEXT NOT NULL,
			name TEXT,
			distance_m REAL,
			moving_s REAL,
			elev_gain REAL,
			user_id TEXT,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (activity_id) REFERENCES activities_raw(activity_id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_start ON activities(start_time)`,

		// Running-specific details
		`CREATE TABLE IF NOT EXISTS activity_details_run (
			activity_id TEXT PRIMARY KEY,
			avg_hr_raw REAL,
			avg_hr_norm REAL,
			flat_pace_sec REAL,
			flat_pace_weather_sec REAL,
			cadence_avg REAL,
			stride_len REAL,
			hr_drift REAL,
			decoupling REAL,
			hr_z1_s REAL,
			hr_z2_s REAL,
			hr_z3_s REAL,
			hr_z4_s REAL,
			hr_z5_s REAL,
			hr_zone_score REAL,
			hr_zone_label TEXT,
			hr_max_used REAL,
			hr_rest_used REAL,
			hr_zone_method TEXT,
			FOREIGN KEY (activity_id) REFERENCES activities_raw(activity_id) ON DELETE CASCADE
		)`,

		// Run accounting
		`CREATE TABLE IF NOT EXISTS pipeline_runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			status TEXT NOT NULL,
			activities_processed INTEGER DEFAULT 0,
			streams_processed INTEGER DEFAULT 0,
			weather_processed INTEGER DEFAULT 0,
			activities_succeeded INTEGER DEFAULT 0,
			activities_failed INTEGER DEFAULT 0,
			message TEXT,
			duration_sec REAL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started ON pipeline_runs(started_at)`,

		// Pipeline key/value state
		`CREATE TABLE IF NOT EXISTS pipeline_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Weekly rollup over runs
		`CREATE VIEW IF NOT EXISTS metrics_weekly AS
			SELECT
				week_start,
				COUNT(*) AS runs,
				COALESCE(SUM(distance_m), 0) AS distance_m,
				COALESCE(SUM(moving_s), 0) AS moving_s,
				CASE WHEN SUM(flat_dist) > 0 THEN SUM(flat_time) / SUM(flat_dist) * 1000 END AS avg_flat_pace_sec,
				AVG(avg_hr_norm) AS avg_hr_norm,
				AVG(decoupling) AS avg_decoupling
			FROM activities_calc
			WHERE activity_type = 'run' AND week_start IS NOT NULL
			GROUP BY week_start`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
