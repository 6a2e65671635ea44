package brain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeminiGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if _, ok := body["contents"]; !ok {
			t.Error("request missing contents")
		}

		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"parts": []map[string]string{{"text": "Risk level: High"}},
					},
					"finishReason": "STOP",
				},
			},
			"modelVersion": "gemini-3-flash-preview-001",
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewGeminiProvider("test-key", "")
	p.SetEndpoint(srv.URL)

	resp, err := p.Generate(context.Background(), Request{UserPrompt: "analyze this"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Content != "Risk level: High" {
		t.Errorf("unexpected content: %q", resp.Content)
	}
	if resp.Model != "gemini-3-flash-preview-001" {
		t.Errorf("unexpected model: %q", resp.Model)
	}
}

func TestGeminiGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewGeminiProvider("test-key", "")
	p.SetEndpoint(srv.URL)

	if _, err := p.Generate(context.Background(), Request{UserPrompt: "x"}); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestGeminiGenerateEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider("test-key", "")
	p.SetEndpoint(srv.URL)

	if _, err := p.Generate(context.Background(), Request{UserPrompt: "x"}); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestGeminiUnavailableWithoutKey(t *testing.T) {
	p := NewGeminiProvider("", "")
	if p.Available() {
		t.Error("provider without key should be unavailable")
	}
	if _, err := p.Generate(context.Background(), Request{UserPrompt: "x"}); err == nil {
		t.Error("expected error from unconfigured provider")
	}
}
