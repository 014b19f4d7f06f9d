package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const classifierSystemPrompt = `You classify cryptocurrency requests into structured transactions.

Respond with ONLY a JSON object, no prose, in this shape:
{"transaction_type": "transfer"|"swap"|"buy", "response": {...}}

Fields per type:
- transfer: {"recipient": "...", "token": "...", "amount": "...", "chain": "..."}
- swap: {"from_token": "...", "to_token": "...", "amount": "...", "chain": "..."}
- buy: {"token": "...", "fiat_amount": "...", "chain": "..."}

Amounts are decimal strings. The chain is one of the names the user mentions,
or "mainnet" when unspecified.`

// chatCompleter is the slice of the OpenAI client the classifier uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClassifier extracts typed intents with a chat model instead of a
// dedicated classification service.
type OpenAIClassifier struct {
	client chatCompleter
	model  string
}

// NewOpenAIClassifier creates a classifier backed by the OpenAI API.
func NewOpenAIClassifier(apiKey, model string) *OpenAIClassifier {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClassifier{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Classify asks the model for the structured payload and validates it.
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (*Intent, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
		MaxTokens:   300,
	})
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("classifier returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	// Models occasionally wrap the JSON in a code fence.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var result Intent
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("model produced an incomplete intent: %w", err)
	}
	return &result, nil
}
