package controller

import (
	"portfolio-agent-be/internal/dto"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	res dto.HealthResponse
}

func NewHealthController(provider, model, commitSha string) IHealthController {
	return &healthController{
		res: dto.HealthResponse{
			Status:    "ok",
			Provider:  provider,
			Model:     model,
			CommitSha: commitSha,
		},
	}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(c.res)
}
