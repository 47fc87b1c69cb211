package main

import (
	"encoding/base64"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kmehta/voice-triage/chat"
	"github.com/kmehta/voice-triage/fault"
	"github.com/kmehta/voice-triage/llm"
	"github.com/kmehta/voice-triage/stt"
)

// handleTranscribe implements the transcription endpoint: missing audio is a
// bad request, an empty transcript is unprocessable, and a provider failure
// is a server error with the provider's message passed through.
func handleTranscribe(provider *stt.DeepgramClient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req stt.TranscribeRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if req.Audio == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "`audio` field is required"})
		}

		audio, err := base64.StdEncoding.DecodeString(req.Audio)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "`audio` must be base64-encoded"})
		}

		transcript, err := provider.TranscribePayload(c.Context(), audio, req.MimeType)
		if err != nil {
			log.Printf("transcribe: provider error: %v", err)
			// the provider's own message passes through when it gave one
			msg := fault.AsFailure(err, fault.KindProviderError).UserMessage()
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msg})
		}
		if strings.TrimSpace(transcript) == "" {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "no speech detected"})
		}
		return c.JSON(stt.TranscribeResponse{Transcript: transcript})
	}
}

// handleChat implements the conversation endpoint: missing symptoms is a bad
// request, a provider failure a server error.
func handleChat(assistant *llm.TriageClient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req chat.ChatRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if strings.TrimSpace(req.Symptoms) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "`symptoms` field is required"})
		}

		replyText, err := assistant.Respond(c.Context(), req.Symptoms)
		if err != nil {
			log.Printf("chat: assistant error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to get a response"})
		}
		return c.JSON(chat.ChatResponse{Reply: replyText})
	}
}
