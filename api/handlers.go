package api

import (
	"encoding/json"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleWebhook accepts one Telegram update per request. Handling failures
// are logged but still answered with 200; Telegram retries non-2xx deliveries
// and a permanently failing update would wedge the queue.
func (s *Server) handleWebhook(c *fiber.Ctx) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(c.Body(), &update); err != nil {
		s.logger.Warn("rejecting malformed webhook body", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed update"})
	}

	s.bot.HandleUpdate(c.Context(), update)

	return c.SendStatus(fiber.StatusOK)
}
