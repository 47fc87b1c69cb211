package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/kmehta/voice-triage/fault"
)

const deepgramEndpoint = "https://api.deepgram.com/v1/listen?model=nova-2&smart_format=true&punctuate=true&language=en-US"

// deepgramResult is the prerecorded-audio response shape.
type deepgramResult struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// DeepgramClient transcribes whole clips via Deepgram's prerecorded REST
// API. Capture finalizes one blob per session, so there is no live stream to
// hold open.
type DeepgramClient struct {
	APIKey   string
	Endpoint string
	Logger   *log.Logger
	http     *http.Client
}

// NewDeepgramClient initializes a Deepgram client with the given API key.
func NewDeepgramClient(apiKey string, logger *log.Logger) (*DeepgramClient, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram api key is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &DeepgramClient{
		APIKey:   apiKey,
		Endpoint: deepgramEndpoint,
		Logger:   logger,
		http:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// TranscribePayload sends the raw audio to Deepgram and returns the first
// alternative's transcript. An empty transcript is returned as ("", nil);
// the caller decides how to report it.
func (dg *DeepgramClient) TranscribePayload(ctx context.Context, audio []byte, mimeType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dg.Endpoint, bytes.NewReader(audio))
	if err != nil {
		return "", errors.Wrap(err, "build deepgram request")
	}
	req.Header.Set("Authorization", fmt.Sprintf("Token %s", dg.APIKey))
	req.Header.Set("Content-Type", mimeType)

	resp, err := dg.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "deepgram request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		dg.Logger.Printf("deepgram error response (%d): %s", resp.StatusCode, string(body))
		return "", fault.Provider(fmt.Sprintf("deepgram: %s", resp.Status))
	}

	var result deepgramResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.Wrap(err, "parse deepgram response")
	}

	if len(result.Results.Channels) == 0 || len(result.Results.Channels[0].Alternatives) == 0 {
		dg.Logger.Println("deepgram response contained no alternatives")
		return "", nil
	}
	alt := result.Results.Channels[0].Alternatives[0]
	dg.Logger.Printf("deepgram transcript (confidence %.2f): %s", alt.Confidence, alt.Transcript)
	return alt.Transcript, nil
}
