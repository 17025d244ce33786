package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const extractorSystemPrompt = `You are a Gatekeeper for a SQL chatbot.
Your job is NOT to write SQL.
Your job is to check if the user question is complete and unambiguous enough to be converted to SQL.

Return ONLY valid JSON matching this schema:
{
  "status": "READY_FOR_SQL" | "NEEDS_CLARIFICATION" | "OUT_OF_SCOPE",
  "parsed_intent": string|null,
  "metric": string|null,
  "dimensions": [string],
  "time_range": {"kind": "year"|"date_range"|"relative", "value": string} | null,
  "filters": object,
  "missing_slots": [string],
  "clarifying_questions": [string],
  "notes": string|null
}

Rules:
- If the question is incomplete, set NEEDS_CLARIFICATION and ask up to 3 concise questions with options when possible.
- If it is not answerable with a database query or is too vague, set OUT_OF_SCOPE.
- Prefer filling fields with null rather than guessing.`

type OpenAIExtractorConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// OpenAIExtractor extracts intent and slots through an OpenAI-compatible
// chat-completions endpoint. Its output is parsed strictly: anything that is
// not the documented JSON shape is reported as an error so the gatekeeper
// can fail closed.
type OpenAIExtractor struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

func NewOpenAIExtractor(cfg OpenAIExtractorConfig) (*OpenAIExtractor, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenAIExtractor{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (e *OpenAIExtractor) Extract(ctx context.Context, question string) (Result, error) {
	payload := map[string]any{
		"model": e.model,
		"messages": []map[string]string{
			{"role": "system", "content": extractorSystemPrompt},
			{"role": "user", "content": strings.TrimSpace(question)},
		},
		"temperature": e.temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Result{}, fmt.Errorf("empty chat completion choices")
	}

	return ParseExtractorOutput(parsed.Choices[0].Message.Content)
}

// ParseExtractorOutput decodes the model's JSON verdict. Code fences are
// tolerated; anything else that does not decode into the Result shape is an
// error, never a silent approval.
func ParseExtractorOutput(raw string) (Result, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var res Result
	decoder := json.NewDecoder(strings.NewReader(trimmed))
	if err := decoder.Decode(&res); err != nil {
		return Result{}, fmt.Errorf("decode extractor output: %w", err)
	}
	switch res.Status {
	case StatusReadyForSQL, StatusNeedsClarification, StatusOutOfScope:
	default:
		return Result{}, fmt.Errorf("extractor returned unknown status %q", res.Status)
	}
	return res, nil
}
