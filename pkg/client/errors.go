package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrMalformedResponse indicates a 2xx response whose body could not be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// APIError is a non-2xx response from the backend with its detail normalized
// to a message (and, for compile failures, a traceback).
type APIError struct {
	Status    int
	Detail    string
	Traceback *string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
}

// IsAPIError reports whether err carries an APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	return nil, false
}

// newAPIError extracts detail from the body shapes the backend produces:
// {"detail": "msg"}, {"detail": {"error": "...", "traceback": "..."}} and
// {"detail": [{"msg": "..."}]}. Anything else falls back to the raw body or
// the status text.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}

	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		if detail, traceback, ok := parseDetail(envelope.Detail); ok {
			apiErr.Detail = detail
			apiErr.Traceback = traceback

			return apiErr
		}
	}

	apiErr.Detail = strings.TrimSpace(string(body))
	if apiErr.Detail == "" {
		apiErr.Detail = http.StatusText(status)
	}

	return apiErr
}

func parseDetail(raw json.RawMessage) (string, *string, bool) {
	var message string
	if err := json.Unmarshal(raw, &message); err == nil {
		return message, nil, true
	}

	var compile struct {
		Error     *string `json:"error"`
		Traceback *string `json:"traceback"`
	}

	if err := json.Unmarshal(raw, &compile); err == nil && compile.Error != nil {
		return *compile.Error, compile.Traceback, true
	}

	var list []struct {
		Msg string `json:"msg"`
	}

	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		messages := make([]string, 0, len(list))
		for _, item := range list {
			if item.Msg != "" {
				messages = append(messages, item.Msg)
			}
		}

		if len(messages) > 0 {
			return strings.Join(messages, "; "), nil, true
		}
	}

	return "", nil, false
}
