package livenessRepository

var schemaStatements = []string{
	`
		CREATE TABLE IF NOT EXISTS inference_logs (
			id VARCHAR(26) PRIMARY KEY,
			session_id VARCHAR(64),
			created_at TIMESTAMPTZ NOT NULL,
			is_real BOOLEAN NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			active_check_passed BOOLEAN NOT NULL DEFAULT FALSE,
			active_check_message TEXT,
			degraded BOOLEAN NOT NULL DEFAULT FALSE,
			frame_data BYTEA,
			thumbnail_url TEXT,
			metadata JSONB
		)
	`,
	`CREATE INDEX IF NOT EXISTS idx_inference_logs_created_at ON inference_logs (created_at DESC)`,
}

const (
	queryCreateInferenceLog = `
		INSERT INTO inference_logs (
			id,
			session_id,
			created_at,
			is_real,
			confidence,
			active_check_passed,
			active_check_message,
			degraded,
			frame_data,
			thumbnail_url,
			metadata
		) VALUES (
			:id,
			:session_id,
			:created_at,
			:is_real,
			:confidence,
			:active_check_passed,
			:active_check_message,
			:degraded,
			:frame_data,
			:thumbnail_url,
			:metadata
		)
	`

	queryGetRecentInferenceLogs = `
		SELECT
			id,
			session_id,
			created_at,
			is_real,
			confidence,
			active_check_passed,
			active_check_message,
			degraded,
			frame_data,
			thumbnail_url,
			metadata
		FROM inference_logs
		ORDER BY created_at DESC
		LIMIT :limit
	`
)
