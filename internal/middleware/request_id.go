package middleware

import (
	contextPkg "FaceLiveness/pkg/context"
	"FaceLiveness/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"time"
)

const (
	RequestIDKey = "X-Request-ID"
	// RequestContextKey holds the request context in Locals. Websocket
	// handlers only see Locals, not the fiber user context.
	RequestContextKey = "request_context"
)

// newRequestIDMiddleware reuses the caller's X-Request-ID or mints a ULID,
// echoes it back and seeds the request context with it.
func newRequestIDMiddleware(ids utils.IUtils) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDKey)
		if requestID == "" {
			var err error
			if requestID, err = ids.NewULIDFromTimestamp(time.Now()); err != nil {
				requestID = "unknown"
			}
		}

		ctx := contextPkg.WithRequestID(c.UserContext(), requestID)
		c.SetUserContext(ctx)
		c.Locals(RequestIDKey, requestID)
		c.Locals(RequestContextKey, ctx)
		c.Set(RequestIDKey, requestID)

		return c.Next()
	}
}
