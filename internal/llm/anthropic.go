package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/spherical/docmark/internal/domain"
)

// Request is the single primitive the backend exposes: interleaved text and
// image input in, text out.
type Request struct {
	System      string
	Messages    []Message // user/assistant turns, system passed separately
	Model       domain.Model
	Temperature float64
	MaxTokens   int
	// ThinkingBudget > 0 requests an intermediate reasoning trace with the
	// given token budget. The trace is discarded; only final text returns.
	ThinkingBudget int
}

// Invoker is the outbound call consumed exclusively by the Gateway.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (string, error)
}

// AnthropicClient implements Invoker against the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient creates a backend client. Every call blocks for up to
// the configured timeout; retry is the gateway's responsibility.
func NewAnthropicClient(apiKey string, timeout time.Duration) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}
	if timeout <= 0 {
		timeout = 20 * time.Minute
	}
	return &AnthropicClient{
		client: anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithRequestTimeout(timeout),
		),
	}, nil
}

func (c *AnthropicClient) Invoke(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model.ID),
		MaxTokens: int64(req.MaxTokens),
		Messages:  convertMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.ThinkingBudget > 0 {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(int64(req.ThinkingBudget))
		// The API requires high fixed sampling temperature with reasoning on.
		params.Temperature = anthropic.Float(1)
	} else {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classifyBackendError(err)
	}

	// Concatenate final text blocks, discarding any reasoning trace.
	out := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out, nil
}

// classifyBackendError separates retryable faults from permanent ones.
// Network-level failures and 408/429/5xx responses are transient.
func classifyBackendError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 408, apierr.StatusCode == 429, apierr.StatusCode >= 500:
			return domain.TransientBackendError("backend request failed", err)
		default:
			return err
		}
	}
	return domain.TransientBackendError("backend unreachable", err)
}

func convertMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		role := anthropic.MessageParamRoleUser
		if m.Role == RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		content := make([]anthropic.ContentBlockParamUnion, 0, len(m.Blocks))
		for _, b := range m.Blocks {
			if b.Image != nil {
				content = append(content, anthropic.NewImageBlockBase64(
					b.Image.MediaType,
					base64.StdEncoding.EncodeToString(b.Image.Data),
				))
			} else {
				content = append(content, anthropic.NewTextBlock(b.Text))
			}
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: content})
	}
	return out
}
