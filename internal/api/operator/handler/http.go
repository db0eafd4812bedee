package operatorHandler

import (
	operatorService "FaceLiveness/internal/api/operator/service"
	"FaceLiveness/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type OperatorHandler struct {
	log             *logrus.Logger
	validator       *validator.Validate
	middleware      middleware.Middleware
	operatorService operatorService.IOperatorService
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	os operatorService.IOperatorService,
) *OperatorHandler {
	return &OperatorHandler{
		log:             log,
		validator:       validator,
		middleware:      middleware,
		operatorService: os,
	}
}

func (h *OperatorHandler) Start(srv fiber.Router) {
	operators := srv.Group("/operators")
	operators.Post("/login", h.middleware.NewRateLimiter, h.Login)
}
