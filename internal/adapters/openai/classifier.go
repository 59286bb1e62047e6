package openaiad

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"golang.org/x/time/rate"

	"github.com/chrisjannenga/review-insights/internal/adapters/observability"
	"github.com/chrisjannenga/review-insights/internal/domain"
)

const classifySystemPrompt = `You are a sentiment analysis expert. Analyze the sentiment of the given text and respond with ONLY a JSON object in this exact format: {"score": number, "label": string} where score is between -1 and 1, and label is one of: "positive", "negative", or "neutral".`

const summarizeSystemPrompt = `You are an expert in analyzing customer reviews for local businesses (mainly restaurants). Provide a concise but comprehensive analysis that includes: 1) Overall sentiment direction 2) Key themes or patterns 3) Notable strengths or areas for improvement. Keep the response to 5-7 sentences maximum and focus on actionable insights. make sure the response flows well and can be read as a paragraph.`

type Client struct {
	oc    *openai.Client
	model openai.ChatModel
	rl    *rate.Limiter
}

func New(apiKey string, rps int, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	c := openai.NewClient(opts...)
	return &Client{
		oc:    &c,
		model: openai.ChatModelGPT3_5Turbo,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// Classify sends exactly one review's text and expects strict JSON back.
// Temperature 0 is a best-effort determinism hint, not a guarantee.
func (c *Client) Classify(ctx context.Context, text string) (domain.Classification, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return domain.Classification{}, err
	}

	start := time.Now()
	resp, err := c.oc.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(classifySystemPrompt),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		observability.ObserveExternal("openai", "classify", 0, time.Since(start))
		return domain.Classification{}, fmt.Errorf("openai API error: %w", err)
	}
	observability.ObserveExternal("openai", "classify", 200, time.Since(start))

	if len(resp.Choices) == 0 {
		return domain.Classification{}, fmt.Errorf("no choices: %w", domain.ErrUnclassified)
	}
	return parseClassification(resp.Choices[0].Message.Content)
}

// Summarize asks for the narrative analysis over the newline-joined reviews.
func (c *Client) Summarize(ctx context.Context, locationName string, reviews []string) (string, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return "", err
	}

	user := fmt.Sprintf(
		"Please analyze these reviews for %s and provide a detailed summary of the overall sentiment:\n\n%s",
		locationName, strings.Join(reviews, "\n"),
	)

	start := time.Now()
	resp, err := c.oc.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summarizeSystemPrompt),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(200),
	})
	if err != nil {
		observability.ObserveExternal("openai", "summarize", 0, time.Since(start))
		return "", fmt.Errorf("openai API error: %w", err)
	}
	observability.ObserveExternal("openai", "summarize", 200, time.Since(start))

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func parseClassification(content string) (domain.Classification, error) {
	content = cleanJSONResponse(content)

	var parsed struct {
		Score *float64 `json:"score"`
		Label string   `json:"label"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return domain.Classification{}, fmt.Errorf("parse %q: %w", content, domain.ErrUnclassified)
	}
	if parsed.Score == nil {
		return domain.Classification{}, fmt.Errorf("missing score: %w", domain.ErrUnclassified)
	}
	label, ok := domain.ParseSentiment(parsed.Label)
	if !ok {
		return domain.Classification{}, fmt.Errorf("bad label %q: %w", parsed.Label, domain.ErrUnclassified)
	}
	return domain.Classification{Score: *parsed.Score, Label: label}, nil
}

// cleanJSONResponse strips markdown fences and surrounding prose some models
// wrap around the JSON payload.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}
