package config

import (
	contextPkg "FaceLiveness/pkg/context"
	"FaceLiveness/pkg/handlerUtil"
	"errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"strings"
)

func NewFiber(logger *logrus.Logger) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:           "Face Liveness",
			BodyLimit:         10 * 1024 * 1024,
			DisableKeepalive:  false,
			StrictRouting:     true,
			CaseSensitive:     true,
			EnablePrintRoutes: logger.IsLevelEnabled(logrus.DebugLevel),
			JSONEncoder:       jsoniter.Marshal,
			JSONDecoder:       jsoniter.Unmarshal,
			ErrorHandler:      newErrorHandler(logger),
		})

	return app
}

// newErrorHandler renders errors that escape the handlers with the same
// JSON body the handlers use. Framework errors such as a missing route or a
// plain GET on the websocket endpoint keep their status.
func newErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	errHandler := handlerUtil.New(logger)
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(handlerUtil.ErrorResponse{
				Error: fiberErr.Message,
				Code:  statusKind(fiberErr.Code),
			})
		}

		requestID := contextPkg.GetRequestID(contextPkg.FromFiberCtx(c))
		return errHandler.Handle(c, requestID, err, c.Path(), "unhandled")
	}
}

// statusKind turns 426 into UPGRADE_REQUIRED.
func statusKind(code int) string {
	return strings.ToUpper(strings.ReplaceAll(utils.StatusMessage(code), " ", "_"))
}
