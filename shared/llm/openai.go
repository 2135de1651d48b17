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
	TogetherURL   = "https://api.together.xyz/v1"
	OpenRouterURL = "https://openrouter.ai/api/v1"
)

// OpenAIProvider speaks the OpenAI-compatible chat completions API.
// Together and OpenRouter both serve it.
type OpenAIProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenAIProvider creates a provider for any OpenAI-compatible endpoint.
func NewOpenAIProvider(name, baseURL, apiKey string, client *http.Client) *OpenAIProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &OpenAIProvider{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) body(req Request, stream bool) ([]byte, error) {
	messages := make([]map[string]string, 0, 2)
	if req.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})

	body := map[string]any{
		"model":    req.Model,
		"messages": messages,
		"stream":   stream,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}
	if req.TopP > 0 {
		body["top_p"] = req.TopP
	}
	if req.TopK > 0 {
		body["top_k"] = req.TopK
	}
	if req.RepetitionPenalty > 0 {
		body["repetition_penalty"] = req.RepetitionPenalty
	}
	if len(req.Stop) > 0 {
		body["stop"] = req.Stop
	}
	return json.Marshal(body)
}

func (p *OpenAIProvider) do(ctx context.Context, req Request, stream bool) (*http.Response, error) {
	body, err := p.body(req, stream)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", p.name, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, newAPIError(p.name, resp.StatusCode, raw)
	}
	return resp, nil
}

// Complete calls the chat completions endpoint without streaming.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := p.do(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("%s: %s", p.name, response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return response.Choices[0].Message.Content, nil
}

// Stream calls the chat completions endpoint with stream=true and yields
// the content deltas of the first choice.
func (p *OpenAIProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	resp, err := p.do(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return &openAIStream{name: p.name, body: resp.Body, dec: newSSEDecoder(resp.Body)}, nil
}

type openAIStream struct {
	name   string
	body   io.ReadCloser
	dec    *sseDecoder
	closed bool
	done   bool
}

func (s *openAIStream) Recv() (string, error) {
	if s.closed {
		return "", ErrStreamClosed
	}
	for !s.done {
		data, err := s.dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Some providers close the connection without sending [DONE].
				s.done = true
				break
			}
			return "", err
		}

		data = bytes.TrimSpace(data)
		if bytes.Equal(data, []byte("[DONE]")) {
			s.done = true
			break
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(data, &chunk); err != nil {
			return "", fmt.Errorf("decode chunk: %w", err)
		}
		if chunk.Error != nil {
			return "", fmt.Errorf("%s: %s", s.name, chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		return chunk.Choices[0].Delta.Content, nil
	}
	return "", io.EOF
}

func (s *openAIStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
