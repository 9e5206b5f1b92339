package serverutils

import (
	"errors"

	"portfolio-agent-be/internal/constant"
	"portfolio-agent-be/internal/dto"
	"portfolio-agent-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

func ErrorResponse(requestID, message string, details ...string) dto.ErrorResponse {
	res := dto.ErrorResponse{
		Error:     message,
		RequestID: requestID,
	}
	if len(details) > 0 {
		res.Details = details[0]
	}
	return res
}

// SendError writes an error body with status.
func SendError(ctx *fiber.Ctx, status int, message string, details ...string) error {
	return ctx.Status(status).JSON(ErrorResponse(RequestID(ctx), message, details...))
}

// ErrorHandler is the app-wide fallback. It also runs for errors raised
// before any middleware, such as an oversized body, so it sets the no-store
// headers and request id itself.
func ErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		SetNoStore(ctx)
		requestID := RequestID(ctx)

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			message := fiberErr.Message
			if fiberErr.Code == fiber.StatusRequestEntityTooLarge {
				message = constant.ErrMsgBodyTooLarge
			}
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(requestID, message))
		}

		log.Error("HTTP", "Unhandled server error", map[string]interface{}{
			"request_id": requestID,
			"path":       ctx.Path(),
			"error":      err.Error(),
		})
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(requestID, constant.ErrMsgServerError, err.Error()))
	}
}
