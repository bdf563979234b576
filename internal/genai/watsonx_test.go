package genai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewWatsonxClientRequiresCredentials(t *testing.T) {
	cases := map[string]WatsonxConfig{
		"endpoint":   {APIKey: "k", ProjectID: "p"},
		"api key":    {Endpoint: "https://wx", ProjectID: "p"},
		"project id": {Endpoint: "https://wx", APIKey: "k"},
	}
	for name, cfg := range cases {
		if _, err := NewWatsonxClient(cfg); err == nil {
			t.Fatalf("NewWatsonxClient() without %s should fail", name)
		}
	}
}

func TestGenerateExchangesTokenAndReturnsText(t *testing.T) {
	var tokenCalls, generateCalls int
	var capturedAuth string
	var capturedPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/identity/token"):
			tokenCalls++
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "iam-token", "expires_in": 3600})
		case strings.HasSuffix(r.URL.Path, "/ml/v1/text/generation"):
			generateCalls++
			capturedAuth = r.Header.Get("Authorization")
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &capturedPayload)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{{
					"generated_text":        "{\"field_name\": \"Title\"}",
					"generated_token_count": 12,
					"input_token_count":     80,
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, err := NewWatsonxClient(WatsonxConfig{
		Endpoint:    server.URL,
		APIKey:      "api-key",
		ProjectID:   "proj-1",
		IAMEndpoint: server.URL,
	})
	if err != nil {
		t.Fatalf("NewWatsonxClient() error = %v", err)
	}

	got, err := client.Generate(context.Background(), "describe the Title field", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "{\"field_name\": \"Title\"}" {
		t.Fatalf("Generate() = %q", got)
	}
	if capturedAuth != "Bearer iam-token" {
		t.Fatalf("Authorization = %q", capturedAuth)
	}
	if capturedPayload["project_id"] != "proj-1" {
		t.Fatalf("project_id = %v", capturedPayload["project_id"])
	}
	params, ok := capturedPayload["parameters"].(map[string]any)
	if !ok {
		t.Fatalf("parameters = %v", capturedPayload["parameters"])
	}
	if params["decoding_method"] != "greedy" {
		t.Fatalf("decoding_method = %v", params["decoding_method"])
	}
	if params["max_new_tokens"] != float64(1000) {
		t.Fatalf("max_new_tokens = %v", params["max_new_tokens"])
	}
	if _, present := params["temperature"]; present {
		t.Fatal("greedy decoding should not send temperature")
	}

	// Second call reuses the cached token.
	if _, err := client.Generate(context.Background(), "again", nil); err != nil {
		t.Fatalf("Generate() second call error = %v", err)
	}
	if tokenCalls != 1 {
		t.Fatalf("token exchanges = %d, want 1", tokenCalls)
	}
	if generateCalls != 2 {
		t.Fatalf("generation calls = %d, want 2", generateCalls)
	}
}

func TestGenerateSurfacesServiceErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/identity/token") {
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "iam-token", "expires_in": 3600})
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"errors":[{"code":"quota_exceeded"}]}`))
	}))
	defer server.Close()

	client, err := NewWatsonxClient(WatsonxConfig{
		Endpoint:    server.URL,
		APIKey:      "api-key",
		ProjectID:   "proj-1",
		IAMEndpoint: server.URL,
	})
	if err != nil {
		t.Fatalf("NewWatsonxClient() error = %v", err)
	}

	if _, err := client.Generate(context.Background(), "prompt", nil); err == nil {
		t.Fatal("Generate() should surface a 429")
	}
}

func TestGenerateStreamForwardsTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/identity/token") {
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "iam-token", "expires_in": 3600})
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"results\":[{\"generated_text\":\"SELECT\"}]}\n\n"))
		_, _ = w.Write([]byte("data: {\"results\":[{\"generated_text\":\" 1\"}]}\n\n"))
	}))
	defer server.Close()

	client, err := NewWatsonxClient(WatsonxConfig{
		Endpoint:    server.URL,
		APIKey:      "api-key",
		ProjectID:   "proj-1",
		IAMEndpoint: server.URL,
	})
	if err != nil {
		t.Fatalf("NewWatsonxClient() error = %v", err)
	}

	tokens, errs := client.GenerateStream(context.Background(), "prompt", nil)
	var collected []string
	for token := range tokens {
		collected = append(collected, token)
	}
	if err := <-errs; err != nil {
		t.Fatalf("stream error = %v", err)
	}
	if strings.Join(collected, "") != "SELECT 1" {
		t.Fatalf("stream tokens = %v", collected)
	}
}
