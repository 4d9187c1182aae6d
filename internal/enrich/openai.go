package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/eventdash/eventdash/internal/config"
	"github.com/eventdash/eventdash/internal/models"
)

// OpenAIExtractor asks a chat model to read a detail page and answer with a
// JSON field bag.
type OpenAIExtractor struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIExtractor constructs the extractor. The API key must be set.
func NewOpenAIExtractor(cfg config.EnrichmentConfig, logger *slog.Logger) (*OpenAIExtractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key not configured")
	}

	return &OpenAIExtractor{
		client: openai.NewClient(cfg.APIKey),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

func (e *OpenAIExtractor) Name() string { return "openai" }

func extractionPrompt(eventType models.EventType) string {
	return fmt.Sprintf(`Extract %s details as JSON:
{"name": "event name", "start_date": "YYYY-MM-DD", "end_date": "YYYY-MM-DD", "location": "location",
"city": "city", "remote": true/false, "description": "brief description", "speakers": [],
"ticket_price": "price", "is_paid": true/false, "themes": []}`, eventType)
}

// Extract sends the page content to the model and parses the JSON reply.
func (e *OpenAIExtractor) Extract(ctx context.Context, eventType models.EventType, url, content string) (models.RawFields, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0.1,
		MaxTokens:   1000,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionPrompt(eventType)},
			{Role: openai.ChatMessageRoleUser, Content: truncateContent(content)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai extraction for %s: %w", url, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai extraction for %s: empty response", url)
	}

	fields, err := parseExtraction(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("openai extraction for %s: %w", url, err)
	}

	fields["url"] = url
	fields["source"] = string(eventType) + "_gpt"

	return fields, nil
}

// parseExtraction decodes a model reply, tolerating markdown code fences.
func parseExtraction(reply string) (models.RawFields, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	reply = strings.TrimSpace(reply)

	var fields models.RawFields
	if err := json.Unmarshal([]byte(reply), &fields); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	return fields, nil
}
