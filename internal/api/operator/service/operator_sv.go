package operatorService

import (
	"FaceLiveness/internal/api/operator"
	"FaceLiveness/internal/entity"
	contextPkg "FaceLiveness/pkg/context"
	jwtPkg "FaceLiveness/pkg/jwt"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"time"
)

func (s *operatorService) Login(c context.Context, req operator.LoginRequest) (operator.LoginResponse, error) {
	requestID := contextPkg.GetRequestID(c)
	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return operator.LoginResponse{}, fmt.Errorf("%w: %v", operator.ErrInternalServerError, err)
	}

	op, err := repo.Operators.GetByUsername(c, req.Username)
	if err != nil {
		if errors.Is(err, operator.ErrOperatorNotFound) {
			return operator.LoginResponse{}, operator.ErrInvalidCredentials
		}
		return operator.LoginResponse{}, fmt.Errorf("%w: %v", operator.ErrInternalServerError, err)
	}

	if err := s.bcryptUtils.ComparePassword(op.PasswordHash, req.Password); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"username":   req.Username,
		}).Warn("Operator login with wrong password")
		return operator.LoginResponse{}, operator.ErrInvalidCredentials
	}

	token, expiresAt, err := jwtPkg.Sign(map[string]interface{}{
		"id":       op.ID,
		"username": op.Username,
	}, s.tokenTTL)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to sign operator token")
		return operator.LoginResponse{}, fmt.Errorf("%w: %v", operator.ErrInternalServerError, err)
	}

	s.log.WithFields(logrus.Fields{
		"request_id":  requestID,
		"operator_id": op.ID,
	}).Info("Operator logged in")

	return operator.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Operator: operator.OperatorPayload{
			ID:       op.ID,
			Username: op.Username,
		},
	}, nil
}

func (s *operatorService) EnsureOperator(c context.Context, username, password string) error {
	hash, err := s.bcryptUtils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash operator password: %w", err)
	}

	id, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return fmt.Errorf("generate operator id: %w", err)
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		return err
	}

	if err := repo.Operators.UpsertOperator(c, entity.Operator{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
	}); err != nil {
		return err
	}

	s.log.WithField("username", username).Info("Operator account ready")
	return nil
}
