package director

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KaranOps/ContextCut/internal/timeline"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultGroqBaseURL is the OpenAI-compatible endpoint the default
// director model is served from.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// Rules carries the pacing parameters quoted verbatim in the prompt so
// the model drafts within the same constraints the validator enforces.
type Rules struct {
	MinBrollDuration float64
	CoolDownSeconds  float64
	DiversityWindow  float64
}

// Config for one LLM-backed director.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxAttempts int
	Rules       Rules
}

type completionFunc func(ctx context.Context, system, user string) (string, error)

// LLM is a Director backed by an OpenAI-compatible chat endpoint.
type LLM struct {
	cfg      Config
	complete completionFunc
	// backoff between retry attempts, swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewLLM(cfg Config) *LLM {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &LLM{
		cfg: cfg,
		complete: func(ctx context.Context, system, user string) (string, error) {
			resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
				Messages: []openai.ChatCompletionMessageParamUnion{
					openai.SystemMessage(system),
					openai.UserMessage(user),
				},
				Model:       cfg.Model,
				Temperature: openai.Float(0.2),
			})
			if err != nil {
				return "", err
			}
			if len(resp.Choices) == 0 {
				return "", errors.New("model returned no choices")
			}
			return resp.Choices[0].Message.Content, nil
		},
		sleep: sleepCtx,
	}
}

// Propose sends the annotated transcript and decodes the draft
// timeline. Transient failures are retried a bounded number of times
// with backoff. Schema violations are never retried: a malformed reply
// is a hard error for the run.
func (l *LLM) Propose(ctx context.Context, segments []timeline.SegmentWithOptions) ([]timeline.ProposedEvent, error) {
	payload, err := json.Marshal(map[string]any{"segments_with_options": segments})
	if err != nil {
		return nil, fmt.Errorf("marshal director request: %w", err)
	}
	system := l.systemPrompt()
	user := "Here is the input data:\n" + string(payload)

	var lastErr error
	for attempt := 1; attempt <= l.cfg.MaxAttempts; attempt++ {
		raw, err := l.complete(ctx, system, user)
		if err == nil {
			proposals, perr := parseReply(raw)
			if perr != nil {
				return nil, fmt.Errorf("director reply malformed: %w", perr)
			}
			return proposals, nil
		}
		lastErr = err
		if !retryable(err) || attempt == l.cfg.MaxAttempts {
			break
		}
		delay := time.Duration(attempt) * 2 * time.Second
		slog.Warn("director call failed, retrying",
			"attempt", attempt, "max_attempts", l.cfg.MaxAttempts, "delay", delay, "error", err)
		if err := l.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("director call failed after %d attempts: %w", l.cfg.MaxAttempts, lastErr)
}

func (l *LLM) systemPrompt() string {
	return fmt.Sprintf(`# Role: Senior AI Video Editor & Narrative Director
You generate a precise JSON timeline that overlays B-roll footage onto a primary A-roll video based on semantic relevance and professional pacing.

# Core Directives
1. **Semantic Resonance**: Prioritize clips whose activity matches the narration text conceptually.
2. **Strict Candidate Usage**: Each segment lists its "available_broll". Only use clips from that list for that segment. If the list is empty, place no B-roll there.
3. **Pacing Constraints**:
   - duration_sec MUST equal the segment's end minus its start.
   - Minimum cut: never insert a clip shorter than %.1f seconds.
   - Visual diversity: do not reuse a B-roll clip within %.1f seconds.
   - Cool-down: leave at least %.1f seconds of A-roll-only breathing room between insertions.

# Output Schema
Return ONLY a valid JSON object, no conversational text:
{"timeline": [{"a_roll_start": float, "duration_sec": float, "b_roll_id": "string or null", "b_roll_start_offset": 0.0, "confidence": float, "reason": "string"}]}`,
		l.cfg.Rules.MinBrollDuration, l.cfg.Rules.DiversityWindow, l.cfg.Rules.CoolDownSeconds)
}

// retryable reports whether the failure is transient (rate limit or
// upstream trouble) rather than a request we would just fail again.
func retryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
