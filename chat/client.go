package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/kmehta/voice-triage/fault"
)

// ChatRequest is the wire format of the conversation endpoint.
type ChatRequest struct {
	Symptoms string `json:"symptoms"`
}

// ChatResponse carries either the assistant's reply or the provider's error.
type ChatResponse struct {
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

// Client posts symptom text to the conversation endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient builds a conversation client for the given endpoint URL.
func NewClient(endpoint string) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("conversation endpoint is required")
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Send posts the symptoms and returns the raw assistant reply. Connection
// problems classify as DispatchTransportError; explicit service errors as
// ProviderError with the message passed through.
func (c *Client) Send(ctx context.Context, symptoms string) (string, error) {
	body, err := json.Marshal(ChatRequest{Symptoms: symptoms})
	if err != nil {
		return "", errors.Wrap(fault.New(fault.KindDispatchFailed), err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(fault.New(fault.KindDispatchFailed), err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(fault.New(fault.KindDispatchFailed), err.Error())
	}
	defer resp.Body.Close()

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(fault.New(fault.KindDispatchFailed), err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return "", fault.Provider(out.Error)
		}
		return "", fault.Provider(resp.Status)
	}
	return out.Reply, nil
}
