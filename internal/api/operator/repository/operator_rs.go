package operatorRepository

import (
	"FaceLiveness/internal/api/operator"
	"FaceLiveness/internal/entity"
	contextPkg "FaceLiveness/pkg/context"
	"context"
	"database/sql"
	"errors"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"time"
)

type OperatorDB struct {
	ID           sql.NullString `db:"id"`
	Username     sql.NullString `db:"username"`
	PasswordHash sql.NullString `db:"password_hash"`
	CreatedAt    sql.NullTime   `db:"created_at"`
}

func (r *operatorRepository) UpsertOperator(c context.Context, op entity.Operator) error {
	requestID := contextPkg.GetRequestID(c)
	now := time.Now()
	argsKV := map[string]interface{}{
		"id":            op.ID,
		"username":      op.Username,
		"password_hash": op.PasswordHash,
		"created_at":    now,
		"updated_at":    now,
	}

	query, args, err := sqlx.Named(queryUpsertOperator, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for UpsertOperator")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"username":   op.Username,
			"error":      err.Error(),
		}).Error("Database error when upserting operator")
		return err
	}

	return nil
}

func (r *operatorRepository) GetByUsername(c context.Context, username string) (entity.Operator, error) {
	requestID := contextPkg.GetRequestID(c)
	var row OperatorDB

	query, args, err := sqlx.Named(queryGetByUsername, map[string]interface{}{
		"username": username,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetByUsername named query preparation err")
		return entity.Operator{}, err
	}
	query = r.q.Rebind(query)

	if err := sqlx.GetContext(c, r.q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"username":   username,
			}).Warn("Operator not found")
			return entity.Operator{}, operator.ErrOperatorNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetByUsername execution err")
		return entity.Operator{}, err
	}

	return makeOperator(row), nil
}

func makeOperator(row OperatorDB) entity.Operator {
	return entity.Operator{
		ID:           row.ID.String,
		Username:     row.Username.String,
		PasswordHash: row.PasswordHash.String,
		CreatedAt:    row.CreatedAt.Time,
	}
}
