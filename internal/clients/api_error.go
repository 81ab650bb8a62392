package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/banksim/internal/domain"
)

// insufficientFundsMessage is the backend text for a down payment the client
// cannot cover. The backend exposes no error code for it.
const insufficientFundsMessage = "Not enough funds to purchase property."

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Message string

	kind error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// UserMessage is the backend's message without status decoration.
func (e *APIError) UserMessage() string {
	return e.Message
}

// Unwrap exposes the domain sentinel the response maps to, if any.
func (e *APIError) Unwrap() error {
	return e.kind
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Message: errorMessage(body)}
	classifyAPIError(apiErr)
	return apiErr
}

// classifyAPIError attaches a domain sentinel to known backend failures.
func classifyAPIError(e *APIError) {
	switch {
	case e.Status == http.StatusUnauthorized:
		e.kind = domain.ErrUnauthorized
	case strings.TrimSpace(e.Message) == insufficientFundsMessage:
		e.kind = domain.ErrInsufficientFunds
	}
}

func errorMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return requestFailedFallback
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	return text
}

// isTransient reports whether a failed read is worth retrying:
// transport errors and 5xx responses are, 4xx and cancellations are not.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	return true
}
