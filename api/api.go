package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/fileybot/filey/pkg/telegram"
)

// Server is the webhook-mode HTTP server. The bot is injected so the serve
// command can share one transport between webhook delivery and outbound sends.
type Server struct {
	config Config
	bot    *telegram.Bot
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
func NewServer(config Config, bot *telegram.Bot, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		bot:    bot,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Post(config.WebhookPath, s.handleWebhook)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
