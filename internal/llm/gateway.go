package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/spherical/docmark/internal/domain"
)

const (
	defaultMaxTokens = 16000
	// Extended-reasoning calls get a larger output budget.
	reasoningMaxTokens      = 60000
	reasoningThinkingBudget = 16000
)

// RetryPolicy bounds retries of the outbound backend call.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy is 5 attempts with exponential backoff, 2s doubling
// capped at 60s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, InitialBackoff: 2 * time.Second, MaxBackoff: 60 * time.Second}
}

// CallParams describes one gateway invocation.
type CallParams struct {
	// Operation tags the transcript entry with the initiating operation.
	Operation   string
	System      string
	UserContent []ContentBlock
	Model       domain.Model
	Temperature float64
	// History, when set, is extended with one new user turn. The gateway
	// works on a copy; the caller's slice is never modified.
	History []Message
}

// Gateway wraps the backend invocation with retry, conversation bookkeeping
// and the diagnostic transcript side effect.
type Gateway struct {
	backend    Invoker
	transcript TranscriptSink
	log        zerolog.Logger
	retry      RetryPolicy
	sleep      func(time.Duration)
}

// NewGateway constructs a gateway. The transcript sink is injected so tests
// can substitute an in-memory sink.
func NewGateway(backend Invoker, transcript TranscriptSink, log zerolog.Logger, retry RetryPolicy) *Gateway {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &Gateway{
		backend:    backend,
		transcript: transcript,
		log:        log,
		retry:      retry,
		sleep:      time.Sleep,
	}
}

// Invoke sends one conversation turn and returns the updated history along
// with the assistant's reply.
//
// With no history the conversation starts fresh as [system, user]. With
// history the gateway clones it, swaps in the given system prompt (callers
// use this to change roles mid-conversation, e.g. transcription to
// synthesis) and appends the new user turn.
func (g *Gateway) Invoke(ctx context.Context, p CallParams) ([]Message, string, error) {
	var msgs []Message
	if p.History != nil {
		msgs = CloneHistory(p.History)
		if p.System != "" {
			msgs[0] = SystemMessage(p.System)
		}
	} else {
		msgs = []Message{SystemMessage(p.System)}
	}
	msgs = append(msgs, UserContent(p.UserContent))

	req := Request{
		System:      msgs[0].Text(),
		Messages:    msgs[1:],
		Model:       p.Model,
		Temperature: p.Temperature,
		MaxTokens:   defaultMaxTokens,
	}
	if p.Model.ExtendedReasoning {
		req.MaxTokens = reasoningMaxTokens
		req.ThinkingBudget = reasoningThinkingBudget
	}

	response, err := g.invokeWithRetry(ctx, p.Operation, req)
	if err != nil {
		return nil, "", err
	}

	msgs = append(msgs, AssistantText(response))

	if g.transcript != nil {
		if terr := g.transcript.Append(p.Operation, msgs, response); terr != nil {
			g.log.Warn().Err(terr).Str("operation", p.Operation).Msg("transcript append failed")
		}
	}

	return msgs, response, nil
}

func (g *Gateway) invokeWithRetry(ctx context.Context, operation string, req Request) (string, error) {
	backoff := g.retry.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= g.retry.MaxAttempts; attempt++ {
		response, err := g.backend.Invoke(ctx, req)
		if err == nil {
			return response, nil
		}
		if !domain.IsTransient(err) {
			return "", err
		}
		lastErr = err

		if attempt < g.retry.MaxAttempts {
			g.log.Warn().
				Err(err).
				Str("operation", operation).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("backend call failed, retrying")
			g.sleep(backoff)
			backoff *= 2
			if backoff > g.retry.MaxBackoff {
				backoff = g.retry.MaxBackoff
			}
		}
	}

	return "", domain.TransientBackendError(
		fmt.Sprintf("%s: %d attempts exhausted", operation, g.retry.MaxAttempts), lastErr)
}
