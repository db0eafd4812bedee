package livenessHandler

import (
	"FaceLiveness/internal/api/liveness"
	"FaceLiveness/internal/middleware"
	contextPkg "FaceLiveness/pkg/context"
	"FaceLiveness/pkg/handlerUtil"
	livenessPkg "FaceLiveness/pkg/liveness"
	"FaceLiveness/pkg/log"
	"FaceLiveness/pkg/response"
	"errors"
	"fmt"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
	"time"
)

const (
	maxReadTimeout  = 60 * time.Second
	maxWriteTimeout = 10 * time.Second
)

func (h *LivenessHandler) handleWebSocket(c *websocket.Conn) {
	ctx, ok := c.Locals(middleware.RequestContextKey).(context.Context)
	if !ok {
		requestID, _ := c.Locals(middleware.RequestIDKey).(string)
		ctx = contextPkg.WithRequestID(context.Background(), requestID)
	}
	requestID := contextPkg.GetRequestID(ctx)

	session, err := h.livenessService.OpenSession(ctx)
	if err != nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to open liveness session")
		_ = c.WriteJSON(newErrorMessage(err))
		return
	}
	defer h.livenessService.CloseSession(session.ID)

	ctx = contextPkg.WithSessionID(ctx, session.ID)

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithFields(log.Fields{
					"session_id": session.ID,
					"error":      err.Error(),
				}).Warn("Liveness WebSocket error")
			}
			break
		}

		var reply interface{}
		if messageType != websocket.TextMessage {
			h.log.WithField("session_id", session.ID).Warnf("Received unexpected message type: %d", messageType)
			reply = newErrorMessage(liveness.ErrInvalidMessage)
		} else {
			reply = h.handleMessage(ctx, session, message)
		}

		if err := c.SetWriteDeadline(time.Now().Add(maxWriteTimeout)); err != nil {
			h.log.Errorf("Error setting write deadline: %v", err)
			break
		}

		if err := c.WriteJSON(reply); err != nil {
			h.log.WithFields(log.Fields{
				"session_id": session.ID,
				"error":      err.Error(),
			}).Warn("Error writing liveness reply")
			break
		}
	}
}

// handleMessage answers one client message. Errors are returned as error
// messages and never end the session.
func (h *LivenessHandler) handleMessage(ctx context.Context, session *livenessPkg.Session, raw []byte) interface{} {
	var msg liveness.ClientMessage
	if err := jsoniter.Unmarshal(raw, &msg); err != nil {
		return newErrorMessage(liveness.ErrInvalidMessage)
	}
	if err := h.validator.Struct(msg); err != nil {
		return newErrorMessage(liveness.ErrInvalidMessage)
	}

	switch msg.Type {
	case liveness.MessageFrame:
		result, err := h.livenessService.ProcessFrame(ctx, session, msg.Data)
		if err != nil {
			return newErrorMessage(err)
		}
		return liveness.NewFrameMessage(result)

	case liveness.MessagePing:
		return liveness.PongMessage{Type: "pong"}

	case liveness.MessageResetCheck:
		h.livenessService.ResetSession(session)
		return liveness.ResetMessage{
			Type:    "active_check_reset",
			Message: "Active check reset",
		}

	case liveness.MessageSetActiveCheck:
		if msg.Enabled == nil {
			return newErrorMessage(liveness.ErrInvalidMessage)
		}
		h.livenessService.SetSessionActiveCheck(session, *msg.Enabled)
		return liveness.ModeMessage{
			Type:               "active_check_mode",
			ActiveCheckEnabled: *msg.Enabled,
		}

	default:
		return newErrorMessage(liveness.ErrUnknownMessageType)
	}
}

func newErrorMessage(err error) liveness.ErrorMessage {
	message := "Internal error"
	var respErr *response.Error
	if errors.As(err, &respErr) {
		message = respErr.Err.Error()
	}

	return liveness.ErrorMessage{
		Type:    "error",
		Code:    response.KindOf(err, liveness.KindInternal),
		Message: message,
	}
}

func (h *LivenessHandler) Health(ctx *fiber.Ctx) error {
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)
	return errHandler.HandleSuccess(ctx, fiber.StatusOK, h.livenessService.Health(c))
}

func (h *LivenessHandler) ToggleActiveCheck(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	enabled, err := h.livenessService.ToggleActiveCheck(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "toggle_active_check")
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, liveness.ToggleResponse{
		ActiveCheckEnabled: enabled,
		Message:            fmt.Sprintf("Active check %s", state),
	})
}

func (h *LivenessHandler) RecentLogs(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	query := liveness.LogsQuery{Limit: liveness.DefaultLogLimit}
	if err := ctx.QueryParser(&query); err != nil {
		return errHandler.Handle(ctx, requestID, liveness.ErrInvalidLimit, ctx.Path(), "parse_query")
	}
	if err := h.validator.Struct(query); err != nil {
		return errHandler.Handle(ctx, requestID, liveness.ErrInvalidLimit, ctx.Path(), "validate_query")
	}

	logs, err := h.livenessService.RecentLogs(c, query.Limit)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "recent_logs")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"count":      len(logs),
		}).Debug("Inference logs fetched")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, liveness.LogsResponse{
			Logs:  logs,
			Count: len(logs),
		})
	}
}
