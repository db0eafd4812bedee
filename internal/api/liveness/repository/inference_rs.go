package livenessRepository

import (
	"FaceLiveness/internal/entity"
	contextPkg "FaceLiveness/pkg/context"
	"context"
	"database/sql"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"time"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type InferenceLogDB struct {
	ID                 sql.NullString  `db:"id"`
	SessionID          sql.NullString  `db:"session_id"`
	CreatedAt          time.Time       `db:"created_at"`
	IsReal             sql.NullBool    `db:"is_real"`
	Confidence         sql.NullFloat64 `db:"confidence"`
	ActiveCheckPassed  sql.NullBool    `db:"active_check_passed"`
	ActiveCheckMessage sql.NullString  `db:"active_check_message"`
	Degraded           sql.NullBool    `db:"degraded"`
	FrameData          []byte          `db:"frame_data"`
	ThumbnailURL       sql.NullString  `db:"thumbnail_url"`
	Metadata           []byte          `db:"metadata"`
}

func (r *inferenceLogRepository) CreateInferenceLog(c context.Context, log entity.InferenceLog) error {
	requestID := contextPkg.GetRequestID(c)

	metadata, err := json.Marshal(log.Metadata)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to encode inference metadata")
		return err
	}

	argsKV := map[string]interface{}{
		"id":                   log.ID,
		"session_id":           nullString(log.SessionID),
		"created_at":           log.Timestamp,
		"is_real":              log.IsReal,
		"confidence":           log.Confidence,
		"active_check_passed":  log.ActiveCheckPassed,
		"active_check_message": log.ActiveCheckMessage,
		"degraded":             log.Degraded,
		"frame_data":           log.Thumbnail,
		"thumbnail_url":        nullString(log.ThumbnailURL),
		"metadata":             string(metadata),
	}

	query, args, err := sqlx.Named(queryCreateInferenceLog, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateInferenceLog")
		return err
	}
	query = r.q.Rebind(query)

	if _, err = r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": log.SessionID,
			"error":      err.Error(),
		}).Error("Database error when creating inference log")
		return err
	}

	return nil
}

func (r *inferenceLogRepository) GetRecentInferenceLogs(c context.Context, limit int) ([]entity.InferenceLog, error) {
	requestID := contextPkg.GetRequestID(c)
	var rows []InferenceLogDB

	argsKV := map[string]interface{}{
		"limit": limit,
	}

	query, args, err := sqlx.Named(queryGetRecentInferenceLogs, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRecentInferenceLogs named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRecentInferenceLogs execution err")
		return nil, err
	}

	logs := make([]entity.InferenceLog, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, r.makeInferenceLog(row))
	}

	return logs, nil
}

func (r *inferenceLogRepository) makeInferenceLog(row InferenceLogDB) entity.InferenceLog {
	log := entity.InferenceLog{
		ID:                 row.ID.String,
		SessionID:          row.SessionID.String,
		Timestamp:          row.CreatedAt,
		IsReal:             row.IsReal.Bool,
		Confidence:         row.Confidence.Float64,
		ActiveCheckPassed:  row.ActiveCheckPassed.Bool,
		ActiveCheckMessage: row.ActiveCheckMessage.String,
		Degraded:           row.Degraded.Bool,
		Thumbnail:          row.FrameData,
		ThumbnailURL:       row.ThumbnailURL.String,
	}

	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &log.Metadata); err != nil {
			r.log.WithFields(logrus.Fields{
				"id":    log.ID,
				"error": err.Error(),
			}).Warn("Skipping unreadable inference metadata")
		}
	}

	return log
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
