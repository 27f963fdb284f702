package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx gateway response.
type APIError struct {
	StatusCode int
	Code       string
	// description is error.description from {"error":{"code","description"}}.
	description string
	// message is the top-level "message", or the bare "error" string.
	message string
}

func (e *APIError) Error() string {
	text := e.description
	if text == "" {
		text = e.message
	}
	if text == "" {
		text = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("gateway: %d %s: %s", e.StatusCode, e.Code, text)
	}
	return fmt.Sprintf("gateway: %d: %s", e.StatusCode, text)
}

// Description is the structured error description, or "".
func (e *APIError) Description() string { return e.description }

// ServerMessage is the free-text message, or "".
func (e *APIError) ServerMessage() string { return e.message }

type errorEnvelope struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

type errorDetail struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func decodeAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return apiErr
	}
	apiErr.message = strings.TrimSpace(env.Message)

	if len(env.Error) == 0 {
		return apiErr
	}
	var detail errorDetail
	if err := json.Unmarshal(env.Error, &detail); err == nil {
		apiErr.Code = detail.Code
		apiErr.description = strings.TrimSpace(detail.Description)
		return apiErr
	}
	var text string
	if err := json.Unmarshal(env.Error, &text); err == nil && apiErr.message == "" {
		apiErr.message = strings.TrimSpace(text)
	}
	return apiErr
}
