package serverutils

import (
	"strings"

	"portfolio-agent-be/internal/constant"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

// RequestIDMiddleware resolves the correlation id before any other handler
// runs and echoes it in the X-Request-Id header.
func RequestIDMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		id := resolveRequestID(ctx)
		ctx.Locals(constant.LocalsRequestID, id)
		ctx.Set(constant.HeaderResponseReqID, id)
		return ctx.Next()
	}
}

// NoStoreMiddleware marks every response as uncacheable.
func NoStoreMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		SetNoStore(ctx)
		return ctx.Next()
	}
}

func SetNoStore(ctx *fiber.Ctx) {
	ctx.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate, proxy-revalidate")
	ctx.Set(fiber.HeaderPragma, "no-cache")
	ctx.Set(fiber.HeaderExpires, "0")
}

// RequestID returns the id stored by RequestIDMiddleware, resolving one if
// the middleware has not run.
func RequestID(ctx *fiber.Ctx) string {
	if id, ok := ctx.Locals(constant.LocalsRequestID).(string); ok && id != "" {
		return id
	}
	id := resolveRequestID(ctx)
	ctx.Locals(constant.LocalsRequestID, id)
	ctx.Set(constant.HeaderResponseReqID, id)
	return id
}

func resolveRequestID(ctx *fiber.Ctx) string {
	if id := ctx.Get(constant.HeaderVercelID); id != "" {
		return utils.CopyString(id)
	}
	if id := ctx.Get(constant.HeaderRequestID); id != "" {
		return utils.CopyString(id)
	}
	return uuid.NewString()
}

// ClientKey is the first X-Forwarded-For entry, or "unknown".
func ClientKey(ctx *fiber.Ctx) string {
	forwarded := ctx.Get(constant.HeaderForwardedFor)
	first, _, _ := strings.Cut(forwarded, ",")
	if key := strings.TrimSpace(first); key != "" {
		return utils.CopyString(key)
	}
	return constant.UnknownClientKey
}
