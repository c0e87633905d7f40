package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/cartwala/cartwala/pkg/logger"
)

// ErrMissingAPIKey indicates the classifier cannot be constructed
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

const systemPrompt = `You label WhatsApp messages sent to a grocery shopping assistant.
Reply with a single JSON object and nothing else:
{"intent": "<tag>", "items": [{"name": "...", "quantity": 1}], "address": "...", "confirmed": true, "retailer": "...", "confidence": 0.0}
Valid tags: order, add_item, remove_item, show_prices, show_cart, address_confirmation, authentication, credential_input, product_selection, retailer_selection, unknown.
Rules:
- "order" needs at least one item; include a delivery address when the message carries one.
- "confirmed" is only set for address_confirmation (yes/no style replies).
- "authentication" is for connecting a retailer account; set "retailer" when named.
- Omit fields you did not extract. Use "unknown" when unsure.`

// OpenAIClassifier infers intents through a chat-completion call
type OpenAIClassifier struct {
	client  openai.Client
	model   openai.ChatModel
	timeout time.Duration
	logger  logger.Logger
}

// NewOpenAIClassifierFromEnv builds a classifier from environment
// variables (OPENAI_API_KEY, optional CLASSIFIER_MODEL)
func NewOpenAIClassifierFromEnv(log logger.Logger) (*OpenAIClassifier, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, ErrMissingAPIKey
	}

	model := openai.ChatModel(os.Getenv("CLASSIFIER_MODEL"))
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}

	return &OpenAIClassifier{
		client:  openai.NewClient(option.WithAPIKey(key)),
		model:   model,
		timeout: 15 * time.Second,
		logger:  log,
	}, nil
}

// Classify sends the message to the model and parses its JSON verdict.
// Transport and parse failures surface as errors; the caller owns the
// apology path.
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, errors.New("classifier returned no choices")
	}

	raw := stripFences(completion.Choices[0].Message.Content)

	var intent Intent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		return nil, fmt.Errorf("classifier returned malformed JSON: %w", err)
	}

	intent.Tag = Normalize(intent.Tag)
	c.logger.Debug("Intent classified", "intent", intent.Tag, "confidence", intent.Confidence)

	return &intent, nil
}

// stripFences removes a markdown code fence the model sometimes wraps
// its JSON in
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
