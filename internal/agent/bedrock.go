package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/inboxly/inbox-intel/internal/config"
	"github.com/inboxly/inbox-intel/internal/pkg/logger"
)

// Invoker abstracts the LLM call so extractors can be tested without
// AWS.
type Invoker interface {
	Invoke(ctx context.Context, system, prompt string) (string, error)
}

// BedrockInvoker calls a Claude model through AWS Bedrock. All data
// stays within AWS.
type BedrockInvoker struct {
	client     *bedrockruntime.Client
	modelID    string
	maxTokens  int
	maxRetries int
}

type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewBedrockInvoker loads AWS config and prepares the model client.
func NewBedrockInvoker(ctx context.Context, cfg config.AgentsConfig) (*BedrockInvoker, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	modelID := cfg.ModelID
	if modelID == "" {
		modelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	logger.Info("bedrock invoker initialized", "model_id", modelID, "aws_region", region)
	return &BedrockInvoker{
		client:     bedrockruntime.NewFromConfig(awsCfg),
		modelID:    modelID,
		maxTokens:  maxTokens,
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Invoke sends one prompt and returns the concatenated text blocks of
// the response, retrying transient failures with jittered backoff.
func (b *BedrockInvoker) Invoke(ctx context.Context, system, prompt string) (string, error) {
	request := bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        b.maxTokens,
		System:           system,
		Messages: []bedrockMessage{{
			Role:    "user",
			Content: []bedrockContentBlock{{Type: "text", Text: prompt}},
		}},
		Temperature: 0.2,
	}
	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	attempts := b.maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt-1)) * time.Second
			delay += time.Duration(rand.Int63n(int64(time.Second)))
			logger.Warn("retrying bedrock call",
				"attempt", attempt+1, "delay_ms", delay.Milliseconds(), "error", lastErr.Error())
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		output, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(b.modelID),
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
			Body:        requestBody,
		})
		if err != nil {
			lastErr = fmt.Errorf("bedrock API error: %w", err)
			continue
		}

		var response bedrockResponse
		if err := json.Unmarshal(output.Body, &response); err != nil {
			lastErr = fmt.Errorf("failed to parse bedrock response: %w", err)
			continue
		}

		var text strings.Builder
		for _, content := range response.Content {
			if content.Type == "text" {
				text.WriteString(content.Text)
			}
		}
		logger.Debug("bedrock call completed",
			"stop_reason", response.StopReason,
			"input_tokens", response.Usage.InputTokens,
			"output_tokens", response.Usage.OutputTokens)
		return text.String(), nil
	}
	return "", lastErr
}

// extractJSON pulls the JSON object out of a model response that may
// wrap it in markdown fences or prose.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return strings.TrimSpace(s)
}
