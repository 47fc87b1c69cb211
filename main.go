package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/kmehta/voice-triage/config"
	"github.com/kmehta/voice-triage/llm"
	"github.com/kmehta/voice-triage/stream"
	"github.com/kmehta/voice-triage/stt"
)

func main() {
	// Load .env if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, falling back to environment variables")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}

	provider, err := stt.NewDeepgramClient(cfg.DeepgramAPIKey, log.Default())
	if err != nil {
		log.Fatal(err)
	}
	assistant, err := llm.NewTriageClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		log.Fatal(err)
	}

	app := newApp(provider, assistant, stream.Options{
		TranscribeURL: cfg.TranscribeURL,
		ChatURL:       cfg.ChatURL,
		MinClipBytes:  cfg.MinClipBytes,
	})

	addr := ":" + cfg.Port
	log.Printf("voice-triage listening on %s", addr)
	log.Fatal(app.Listen(addr))
}

// newApp assembles the fiber app: the two JSON endpoints plus the websocket
// capture stream.
func newApp(provider *stt.DeepgramClient, assistant *llm.TriageClient, opts stream.Options) *fiber.App {
	app := fiber.New()

	app.Post("/api/transcribe", handleTranscribe(provider))
	app.Post("/api/chat", handleChat(assistant))

	// Require a websocket upgrade on /stream
	app.Use("/stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/stream", websocket.New(func(ws *websocket.Conn) {
		log.Println("stream: connection opened")
		stream.NewSession(ws, opts).Run()
	}))

	return app
}
