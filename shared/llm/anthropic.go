package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	AnthropicURL     = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// AnthropicProvider implements Provider for Anthropic's Messages API.
type AnthropicProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAnthropicProvider creates a new Anthropic provider instance.
func NewAnthropicProvider(baseURL, apiKey string, client *http.Client) *AnthropicProvider {
	if baseURL == "" {
		baseURL = AnthropicURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &AnthropicProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (ap *AnthropicProvider) Name() string { return ProviderAnthropic }

func (ap *AnthropicProvider) do(ctx context.Context, req Request, stream bool) (*http.Response, error) {
	// The Messages API requires max_tokens.
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	payload := map[string]any{
		"model":      req.Model,
		"max_tokens": maxTokens,
		"messages":   []map[string]string{{"role": "user", "content": req.Prompt}},
		"stream":     stream,
	}
	if req.System != "" {
		payload["system"] = req.System
	}
	if req.Temperature > 0 {
		payload["temperature"] = req.Temperature
	}
	if req.TopP > 0 {
		payload["top_p"] = req.TopP
	}
	if req.TopK > 0 {
		payload["top_k"] = req.TopK
	}
	if len(req.Stop) > 0 {
		payload["stop_sequences"] = req.Stop
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", ap.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", ap.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := ap.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, newAPIError(ProviderAnthropic, resp.StatusCode, raw)
	}
	return resp, nil
}

// Complete calls the Messages API and returns the first text block.
func (ap *AnthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := ap.do(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var ar struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if ar.Error != nil {
		return "", fmt.Errorf("anthropic: %s", ar.Error.Message)
	}
	for _, c := range ar.Content {
		if c.Type == "" || c.Type == "text" {
			return c.Text, nil
		}
	}
	return "", ErrEmptyResponse
}

// Stream calls the Messages API with stream=true and yields text deltas.
func (ap *AnthropicProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	resp, err := ap.do(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return &anthropicStream{body: resp.Body, dec: newSSEDecoder(resp.Body)}, nil
}

type anthropicStream struct {
	body   io.ReadCloser
	dec    *sseDecoder
	closed bool
	done   bool
}

func (s *anthropicStream) Recv() (string, error) {
	if s.closed {
		return "", ErrStreamClosed
	}
	for !s.done {
		data, err := s.dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.done = true
				break
			}
			return "", err
		}

		var ev struct {
			Type  string `json:"type"`
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(data, &ev); err != nil {
			return "", fmt.Errorf("decode event: %w", err)
		}
		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
				return ev.Delta.Text, nil
			}
		case "message_stop":
			s.done = true
		case "error":
			msg := "stream error"
			if ev.Error != nil {
				msg = ev.Error.Message
			}
			return "", fmt.Errorf("anthropic: %s", msg)
		}
	}
	return "", io.EOF
}

func (s *anthropicStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
