// Package api provides the HTTP server that receives Telegram webhook
// deliveries and exposes a health check.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// WebhookPath is the path Telegram POSTs updates to. It should contain
	// an unguessable segment, typically the bot token.
	WebhookPath string
}
