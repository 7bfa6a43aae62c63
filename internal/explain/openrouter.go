package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"paycal/internal/core"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultBaseURL     = "https://openrouter.ai/api/v1"
	defaultModel       = "openrouter/auto"
	defaultTemperature = 0.2
	requestTimeout     = 15 * time.Second
)

// OpenRouter narrates plans through the OpenRouter chat completions API.
type OpenRouter struct {
	client  *retryablehttp.Client
	apiKey  string
	baseURL string
	model   string
}

// OpenRouterOption configures the client.
type OpenRouterOption func(*OpenRouter)

// WithModel overrides the default model.
func WithModel(model string) OpenRouterOption {
	return func(o *OpenRouter) {
		if model != "" {
			o.model = model
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) OpenRouterOption {
	return func(o *OpenRouter) {
		if baseURL != "" {
			o.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient swaps the underlying retryable client, mainly for tests.
func WithHTTPClient(client *retryablehttp.Client) OpenRouterOption {
	return func(o *OpenRouter) {
		if client != nil {
			o.client = client
		}
	}
}

func NewOpenRouter(apiKey string, opts ...OpenRouterOption) *OpenRouter {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.HTTPClient.Timeout = requestTimeout
	client.Logger = nil

	o := &OpenRouter{
		client:  client,
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenRouter) Explain(ctx context.Context, p *core.Payload, plan *core.CalendarPlan, focus core.Focus) ([]string, error) {
	if o.apiKey == "" {
		return nil, fmt.Errorf("explain with openrouter: missing api key")
	}

	prompt, err := buildPrompt(p, plan, focus)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model:       o.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: defaultTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call openrouter: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return nil, fmt.Errorf("openrouter HTTP %d: %s", resp.StatusCode, snippet)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openrouter returned no choices")
	}

	bullets := parseBullets(parsed.Choices[0].Message.Content)
	if len(bullets) == 0 {
		return nil, fmt.Errorf("openrouter returned no usable bullets")
	}
	return bullets, nil
}

// buildPrompt summarizes the payload and plan into the narration request.
// Only the leading events go in; the model needs shape, not the full ledger.
func buildPrompt(p *core.Payload, plan *core.CalendarPlan, focus core.Focus) (string, error) {
	summary := map[string]any{
		"focus": focus,
	}
	if p != nil {
		summary["income"] = head(p.CashIn, 5)
		summary["cash_out"] = head(p.CashOut, 8)
	}
	if plan != nil {
		summary["changes"] = plan.Changes
		summary["metrics"] = plan.Metrics
	}

	context, err := json.Marshal(summary)
	if err != nil {
		return "", err
	}

	return "You are a money coach who explains scheduling decisions clearly.\n" +
		"Summarize why the proposed calendar keeps the client safe and improves their credit.\n" +
		"Output 3 short bullet points (max 18 words each).\n" +
		"Stay concrete: mention paychecks, buffer protection, credit utilization, or subscription timing as relevant.\n" +
		"Context JSON: " + string(context), nil
}

func head(events []core.CashflowEvent, n int) []core.CashflowEvent {
	if len(events) > n {
		return events[:n]
	}
	return events
}

// parseBullets strips list markers and keeps at most three non-empty lines.
func parseBullets(text string) []string {
	var bullets []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "•-* ")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		bullets = append(bullets, line)
		if len(bullets) == maxBullets {
			break
		}
	}
	return bullets
}
