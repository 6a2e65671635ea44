package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"threatfeed/internal/logging"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiProvider implements the Provider interface for Google's Gemini
// models. Calls are rate-limited client-side to stay inside the free-tier
// request quota.
type GeminiProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = "gemini-3-flash-preview"
	}
	return &GeminiProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: geminiEndpoint,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(4*time.Second), 1), // ~15 RPM
	}
}

// SetEndpoint overrides the API base URL (used by tests).
func (g *GeminiProvider) SetEndpoint(url string) {
	g.endpoint = url
}

func (g *GeminiProvider) Name() string {
	return "gemini"
}

func (g *GeminiProvider) Available() bool {
	return g.apiKey != ""
}

func (g *GeminiProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if !g.Available() {
		return Response{}, fmt.Errorf("gemini provider not configured")
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return Response{}, fmt.Errorf("rate limiter: %w", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	logging.Debug("Gemini API request starting", "model", g.model, "max_tokens", maxTokens)

	contents := []map[string]interface{}{
		{
			"role": "user",
			"parts": []map[string]string{
				{"text": req.UserPrompt},
			},
		},
	}

	body := map[string]interface{}{
		"contents": contents,
		"generationConfig": map[string]interface{}{
			"maxOutputTokens": maxTokens,
		},
	}

	if req.SystemPrompt != "" {
		body["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]string{
				{"text": req.SystemPrompt},
			},
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.endpoint, g.model, g.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logging.Error("Gemini API error", "status", resp.StatusCode)
		return Response{}, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		ModelVersion string `json:"modelVersion"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		return Response{}, fmt.Errorf("failed to parse response: %w", err)
	}

	content := ""
	finishReason := ""
	if len(result.Candidates) > 0 {
		if len(result.Candidates[0].Content.Parts) > 0 {
			content = result.Candidates[0].Content.Parts[0].Text
		}
		finishReason = result.Candidates[0].FinishReason
	}
	if content == "" {
		return Response{}, fmt.Errorf("empty response from gemini (finish reason %q)", finishReason)
	}

	modelName := g.model
	if result.ModelVersion != "" {
		modelName = result.ModelVersion
	}

	if finishReason == "MAX_TOKENS" {
		logging.Warn("Gemini response truncated",
			"model", modelName,
			"max_tokens", maxTokens,
			"content_length", len(content))
	}

	logging.Debug("Gemini API response",
		"model", modelName,
		"content_length", len(content),
		"finish_reason", finishReason)

	return Response{
		Content:     content,
		Model:       modelName,
		RawResponse: string(respBody),
	}, nil
}
