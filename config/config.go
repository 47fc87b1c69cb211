// Package config resolves service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Config is everything the service needs at startup.
type Config struct {
	Port           string
	DeepgramAPIKey string
	OpenAIAPIKey   string
	OpenAIModel    string
	TranscribeURL  string // transcription endpoint the voice pipeline calls
	ChatURL        string // conversation endpoint the dispatcher calls
	MinClipBytes   int    // smallest clip worth transcribing; 0 = default
}

// FromEnv reads configuration from environment variables. DEEPGRAM_API_KEY
// and OPENAI_API_KEY are required; everything else has a sensible default.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:           getenv("PORT", "3000"),
		DeepgramAPIKey: os.Getenv("DEEPGRAM_API_KEY"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    getenv("OPENAI_MODEL", "gpt-4o-mini"),
	}
	if cfg.DeepgramAPIKey == "" {
		return Config{}, errors.New("DEEPGRAM_API_KEY must be set")
	}
	if cfg.OpenAIAPIKey == "" {
		return Config{}, errors.New("OPENAI_API_KEY must be set")
	}

	base := getenv("BASE_URL", fmt.Sprintf("http://127.0.0.1:%s", cfg.Port))
	cfg.TranscribeURL = getenv("TRANSCRIBE_URL", base+"/api/transcribe")
	cfg.ChatURL = getenv("CHAT_URL", base+"/api/chat")

	if v := os.Getenv("MIN_CLIP_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, errors.Errorf("MIN_CLIP_BYTES must be a non-negative integer, got %q", v)
		}
		cfg.MinClipBytes = n
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
