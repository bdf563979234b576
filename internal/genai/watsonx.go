package genai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/seekwell/seekwell/internal/observability"
)

const apiVersion = "2024-03-14"

type WatsonxConfig struct {
	Endpoint    string
	APIKey      string
	ProjectID   string
	ModelID     string
	IAMEndpoint string
	Timeout     time.Duration
	Defaults    Params
}

// WatsonxClient generates text through the watsonx.ai text-generation API.
// API keys are exchanged for short-lived IAM bearer tokens, cached until
// shortly before expiry.
type WatsonxClient struct {
	endpoint    string
	projectID   string
	modelID     string
	iamEndpoint string
	apiKey      string
	defaults    Params
	client      *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewWatsonxClient(cfg WatsonxConfig) (*WatsonxClient, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("watsonx endpoint is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("watsonx api key is required")
	}
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, fmt.Errorf("watsonx project id is required")
	}
	modelID := strings.TrimSpace(cfg.ModelID)
	if modelID == "" {
		modelID = "meta-llama/llama-3-3-70b-instruct"
	}
	iamEndpoint := strings.TrimSpace(cfg.IAMEndpoint)
	if iamEndpoint == "" {
		iamEndpoint = "https://iam.cloud.ibm.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	defaults := cfg.Defaults
	if defaults.DecodingMethod == "" {
		defaults.DecodingMethod = DecodingGreedy
	}
	if defaults.MaxNewTokens <= 0 {
		defaults.MaxNewTokens = 1000
	}
	if defaults.MinNewTokens <= 0 {
		defaults.MinNewTokens = 1
	}
	if defaults.RandomSeed == 0 {
		defaults.RandomSeed = 42
	}
	return &WatsonxClient{
		endpoint:    strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		projectID:   strings.TrimSpace(cfg.ProjectID),
		modelID:     modelID,
		iamEndpoint: strings.TrimRight(iamEndpoint, "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		defaults:    defaults,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

type generationResult struct {
	Results []struct {
		GeneratedText       string `json:"generated_text"`
		GeneratedTokenCount int    `json:"generated_token_count"`
		InputTokenCount     int    `json:"input_token_count"`
		StopReason          string `json:"stop_reason"`
	} `json:"results"`
}

func (c *WatsonxClient) Generate(ctx context.Context, promptText string, params *Params) (string, error) {
	start := time.Now()
	text, inputTokens, generatedTokens, err := c.generate(ctx, promptText, params)
	observability.ObserveGeneration(time.Since(start), inputTokens, generatedTokens, err)
	return text, err
}

func (c *WatsonxClient) generate(ctx context.Context, promptText string, params *Params) (string, int, int, error) {
	body, err := json.Marshal(c.payload(promptText, params))
	if err != nil {
		return "", 0, 0, fmt.Errorf("marshal generation payload: %w", err)
	}

	resp, err := c.post(ctx, "/ml/v1/text/generation", body)
	if err != nil {
		return "", 0, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, 0, fmt.Errorf("read generation response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", 0, 0, fmt.Errorf("text generation failed status=%d body=%s", resp.StatusCode, string(rawBody))
	}

	var parsed generationResult
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return "", 0, 0, fmt.Errorf("decode generation response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return "", 0, 0, fmt.Errorf("empty generation results")
	}
	result := parsed.Results[0]
	return result.GeneratedText, result.InputTokenCount, result.GeneratedTokenCount, nil
}

// GenerateStream opens the SSE variant of the generation endpoint and
// forwards tokens as they arrive. Both channels close when the stream
// drains; the error channel carries at most one error.
func (c *WatsonxClient) GenerateStream(ctx context.Context, promptText string, params *Params) (<-chan string, <-chan error) {
	tokens := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(tokens)
		defer close(errs)

		body, err := json.Marshal(c.payload(promptText, params))
		if err != nil {
			errs <- fmt.Errorf("marshal generation payload: %w", err)
			return
		}
		resp, err := c.post(ctx, "/ml/v1/text/generation_stream", body)
		if err != nil {
			errs <- err
			return
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode >= 400 {
			rawBody, _ := io.ReadAll(resp.Body)
			errs <- fmt.Errorf("text generation stream failed status=%d body=%s", resp.StatusCode, string(rawBody))
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" || payload == "[DONE]" {
				continue
			}
			var chunk generationResult
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue
			}
			if len(chunk.Results) == 0 {
				continue
			}
			select {
			case tokens <- chunk.Results[0].GeneratedText:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- fmt.Errorf("read generation stream: %w", err)
		}
	}()

	return tokens, errs
}

func (c *WatsonxClient) payload(promptText string, params *Params) map[string]any {
	effective := c.defaults
	if params != nil {
		effective = *params
	}
	parameters := map[string]any{
		"decoding_method": effective.DecodingMethod,
		"max_new_tokens":  effective.MaxNewTokens,
		"min_new_tokens":  effective.MinNewTokens,
		"random_seed":     effective.RandomSeed,
	}
	if effective.DecodingMethod == DecodingSample {
		parameters["temperature"] = effective.Temperature
	}
	return map[string]any{
		"model_id":   c.modelID,
		"project_id": c.projectID,
		"input":      promptText,
		"parameters": parameters,
	}
}

func (c *WatsonxClient) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := c.endpoint + path + "?version=" + apiVersion
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request text generation: %w", err)
	}
	return resp, nil
}

func (c *WatsonxClient) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ibm:params:oauth:grant-type:apikey")
	form.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.iamEndpoint+"/identity/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request iam token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read iam token response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("iam token exchange failed status=%d body=%s", resp.StatusCode, string(rawBody))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return "", fmt.Errorf("decode iam token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("iam token response contained no access token")
	}

	c.token = parsed.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	return c.token, nil
}
