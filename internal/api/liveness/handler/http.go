package livenessHandler

import (
	livenessService "FaceLiveness/internal/api/liveness/service"
	"FaceLiveness/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type LivenessHandler struct {
	log             *logrus.Logger
	validator       *validator.Validate
	middleware      middleware.Middleware
	livenessService livenessService.ILivenessService
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ls livenessService.ILivenessService,
) *LivenessHandler {
	return &LivenessHandler{
		livenessService: ls,
		log:             log,
		validator:       validator,
		middleware:      middleware,
	}
}

func (h *LivenessHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	liveness := srv.Group("/liveness")
	liveness.Get("/health", h.Health)
	liveness.Post("/toggle-active-check", h.middleware.NewRateLimiter, h.ToggleActiveCheck)
	liveness.Get("/logs", h.middleware.NewTokenMiddleware, h.RecentLogs)

	liveness.Use("/ws", wsMiddleware)
	liveness.Get("/ws", websocket.New(h.handleWebSocket))
}
