package llm

import (
	"context"
	"log"
	"strings"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// triagePrompt instructs the assistant to answer with exactly the six
// section headers the reply parser recognizes, in this order. The contract
// is cooperative: the parser degrades gracefully when the model strays from
// it.
const triagePrompt = `You are a careful medical triage assistant. The user will describe symptoms in plain language. You are not a doctor and you never diagnose; you help the user decide how urgently to seek care.

Always structure your entire answer using exactly these six sections, in this order, each starting on its own line:

Severity: <Low, Moderate, or High>
Immediate Need for Attention: <one sentence, or "None" if nothing is urgent>
See a Doctor If:
- <warning sign>
- <warning sign>
Next Steps:
- <practical step the user can take now>
- <practical step>
Possible Conditions:
- <condition that could plausibly explain the symptoms>
- <condition>
Disclaimer: <one sentence reminding the user this is not medical advice>

Use hyphen bullets for the three list sections. Do not add any text before the Severity line or after the Disclaimer line. If the user asks something that is not a symptom description, still answer inside this structure as best you can.`

// TriageClient answers symptom descriptions through OpenAI chat
// completions. Each call is self-contained: the conversation endpoint
// carries only the symptoms, so no history is kept here and the client is
// safe for concurrent requests.
type TriageClient struct {
	Client *openai.Client
	Model  string
}

// NewTriageClient creates a triage assistant client.
func NewTriageClient(apiKey string, model string) (*TriageClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if model == "" {
		return nil, errors.New("model is required")
	}
	return &TriageClient{
		Client: openai.NewClient(apiKey),
		Model:  model,
	}, nil
}

// Respond sends the user's symptom description and returns the assistant's
// raw reply text.
func (c *TriageClient) Respond(ctx context.Context, symptoms string) (string, error) {
	resp, err := c.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: triagePrompt},
			{Role: openai.ChatMessageRoleUser, Content: symptoms},
		},
	})
	if err != nil {
		log.Printf("openai completion error: %v", err)
		return "", errors.Wrap(err, "openai completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
