package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"google.golang.org/genai"
)

// ErrorKind tags every failure the composer and chat can surface.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "CONFIGURATION_ERROR"
	KindInvalidInput  ErrorKind = "INVALID_INPUT"
	KindAPIKey        ErrorKind = "API_KEY_ERROR"
	KindNetwork       ErrorKind = "NETWORK_ERROR"
	KindQuotaExceeded ErrorKind = "API_QUOTA_EXCEEDED"
	KindAPI           ErrorKind = "API_ERROR"
	KindService       ErrorKind = "SERVICE_ERROR"
	KindUnknown       ErrorKind = "UNKNOWN_ERROR"
)

// AIError is a labeled failure. Code is set for KindAPI only.
type AIError struct {
	Kind    ErrorKind
	Code    int
	Message string
	Err     error
}

func (e *AIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Label(), e.Message)
}

func (e *AIError) Unwrap() error { return e.Err }

func (e *AIError) Label() string {
	switch e.Kind {
	case KindConfiguration:
		return "Configuration Error"
	case KindInvalidInput:
		return "Invalid Input"
	case KindAPIKey:
		return "API Key Error"
	case KindNetwork:
		return "Network Error"
	case KindQuotaExceeded:
		return "API Quota Exceeded"
	case KindAPI:
		if e.Code != 0 {
			return fmt.Sprintf("API Error %d", e.Code)
		}
		return "API Error"
	case KindService:
		return "Service Error"
	default:
		return "Unknown Error"
	}
}

func newInvalidInput(format string, args ...interface{}) *AIError {
	return &AIError{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// ErrMissingAPIKey is returned by the model client when no credential was
// configured.
var ErrMissingAPIKey = &AIError{
	Kind:    KindConfiguration,
	Message: "GEMINI_API_KEY is not set. Configure it and restart the server.",
}

// ClassifyError maps any failure from the model API onto the taxonomy.
func ClassifyError(err error) *AIError {
	if err == nil {
		return &AIError{Kind: KindUnknown, Message: "An unknown error occurred."}
	}

	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AIError{Kind: KindNetwork, Message: "The request to the model timed out.", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &AIError{Kind: KindService, Message: "The request was cancelled.", Err: err}
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return &AIError{Kind: KindNetwork, Message: "Could not reach the model service. Check your connection.", Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key"):
		return &AIError{Kind: KindAPIKey, Message: "The configured API key was rejected.", Err: err}
	case strings.Contains(msg, "quota") || strings.Contains(msg, "resource_exhausted"):
		return &AIError{Kind: KindQuotaExceeded, Message: "The model quota has been exceeded. Try again later.", Err: err}
	case strings.Contains(msg, "fetch failed") || strings.Contains(msg, "connection"):
		return &AIError{Kind: KindNetwork, Message: "Could not reach the model service. Check your connection.", Err: err}
	}

	return &AIError{Kind: KindService, Message: err.Error(), Err: err}
}

func classifyAPIError(apiErr genai.APIError, err error) *AIError {
	lower := strings.ToLower(apiErr.Message)
	switch {
	case apiErr.Code == 401 || apiErr.Code == 403 || strings.Contains(lower, "api key"):
		return &AIError{Kind: KindAPIKey, Message: "The configured API key was rejected.", Err: err}
	case apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED":
		return &AIError{Kind: KindQuotaExceeded, Message: "The model quota has been exceeded. Try again later.", Err: err}
	}
	msg := apiErr.Message
	if msg == "" {
		msg = apiErr.Status
	}
	return &AIError{Kind: KindAPI, Code: apiErr.Code, Message: msg, Err: err}
}

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }
