package jwtPkg

import (
	"FaceLiveness/internal/entity"
	"errors"
	"fmt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"os"
	"strings"
	"time"
)

const (
	AccessTokenSecretKey = "JWT_ACCESS_TOKEN_SECRET"
	OperatorLocalsKey    = "operator"
)

var (
	ErrMissingHeader = errors.New("empty Authorization header")
	ErrInvalidFormat = errors.New("invalid Authorization format")
	ErrSecretNotSet  = errors.New("JWT secret not configured")
	ErrMissingClaims = errors.New("token claims are missing required fields")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Sign issues an HS256 access token with data as claims, expiring after ttl.
// It returns the token and its expiry as a unix timestamp.
func Sign(data map[string]interface{}, ttl time.Duration) (string, int64, error) {
	secret := os.Getenv(AccessTokenSecretKey)
	if secret == "" {
		return "", 0, fmt.Errorf("%w: %s not set", ErrSecretNotSet, AccessTokenSecretKey)
	}

	expiresAt := time.Now().Add(ttl).Unix()
	claims := jwt.MapClaims{
		"exp":           expiresAt,
		"authorization": true,
	}
	for k, v := range data {
		claims[k] = v
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		logrus.WithError(err).Error("Failed to sign token")
		return "", 0, err
	}

	return token, expiresAt, nil
}

// VerifyTokenHeader parses the bearer token of c with the secret held in the
// secretEnvKey environment variable.
func VerifyTokenHeader(c *fiber.Ctx, secretEnvKey string) (*jwt.Token, error) {
	header := c.Get("Authorization")
	if header == "" {
		return nil, ErrMissingHeader
	}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return nil, ErrInvalidFormat
	}

	secret := os.Getenv(secretEnvKey)
	if secret == "" {
		logrus.WithField("env", secretEnvKey).Error("JWT secret environment variable not set")
		return nil, ErrSecretNotSet
	}

	return jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
}

// OperatorFromToken reads the operator identity out of a verified token.
func OperatorFromToken(token *jwt.Token) (entity.Operator, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return entity.Operator{}, ErrInvalidClaims
	}

	id, idOK := claims["id"].(string)
	username, usernameOK := claims["username"].(string)
	if !idOK || !usernameOK || id == "" {
		return entity.Operator{}, ErrMissingClaims
	}

	return entity.Operator{ID: id, Username: username}, nil
}

func GetOperator(c *fiber.Ctx) (entity.Operator, error) {
	operator, ok := c.Locals(OperatorLocalsKey).(entity.Operator)
	if !ok {
		return entity.Operator{}, fiber.ErrUnauthorized
	}
	return operator, nil
}
