package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer from an upstream API.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Raw        []byte
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Provider, e.StatusCode, msg)
}

// AsAPIError reports whether err wraps an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// newAPIError builds an APIError from an error body. Both OpenAI-style
// {"error":{"message":...}} and Together-style {"error":"..."} bodies are
// understood; anything else is kept raw.
func newAPIError(provider string, status int, raw []byte) *APIError {
	ae := &APIError{Provider: provider, StatusCode: status, Raw: raw}

	var nested struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &nested) == nil && nested.Error != nil {
		ae.Message = nested.Error.Message
		return ae
	}

	var flat struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &flat) == nil {
		if flat.Error != "" {
			ae.Message = flat.Error
		} else {
			ae.Message = flat.Message
		}
		return ae
	}

	ae.Message = string(raw)
	return ae
}
