// Package stt converts finalized audio clips into text. Client talks to the
// service's own transcription endpoint; DeepgramClient is the provider
// sitting behind that endpoint.
package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/kmehta/voice-triage/capture"
	"github.com/kmehta/voice-triage/fault"
)

// TranscribeRequest is the wire format of the transcription endpoint.
type TranscribeRequest struct {
	Audio    string `json:"audio"` // base64-encoded clip
	MimeType string `json:"mimeType"`
}

// TranscribeResponse carries either a transcript or the provider's error.
type TranscribeResponse struct {
	Transcript string `json:"transcript,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Client posts finalized clips to the transcription endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient builds a transcription client for the given endpoint URL.
func NewClient(endpoint string) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("transcription endpoint is required")
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// NormalizeMimeType strips any codec parameter from a recorder mime type:
// "audio/webm;codecs=opus" becomes "audio/webm". The transcription service
// accepts only the bare container type.
func NormalizeMimeType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.TrimSpace(mimeType)
}

// Transcribe sends the clip and returns its transcript. Failures are
// classified: connection problems as TranscriptionTransportError, explicit
// provider errors as ProviderError with the message passed through, and a
// successful call that produced no text as EmptyTranscript.
func (c *Client) Transcribe(ctx context.Context, clip capture.Clip) (string, error) {
	payload := TranscribeRequest{
		Audio:    base64.StdEncoding.EncodeToString(clip.Data),
		MimeType: NormalizeMimeType(clip.MimeType),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(fault.New(fault.KindTranscriptionFailed), err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(fault.New(fault.KindTranscriptionFailed), err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(fault.New(fault.KindTranscriptionFailed), err.Error())
	}
	defer resp.Body.Close()

	var out TranscribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(fault.New(fault.KindTranscriptionFailed), err.Error())
	}

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return "", fault.New(fault.KindEmptyTranscript)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return "", fault.Provider(out.Error)
		}
		return "", fault.Provider(resp.Status)
	}
	transcript := strings.TrimSpace(out.Transcript)
	if transcript == "" {
		return "", fault.New(fault.KindEmptyTranscript)
	}
	return transcript, nil
}
