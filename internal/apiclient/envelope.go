package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
)

// FallbackMessage is shown when the backend could not be reached or answered
// with something other than the JSON envelope.
const FallbackMessage = "Unable to reach the server. Please try again."

const unauthenticatedMessage = "Your session has expired. Please sign in again."

var (
	ErrUnauthenticated = errors.New("apiclient: no bearer token")
	ErrTransport       = errors.New("apiclient: transport failure")
)

type envelope struct {
	Success        bool            `json:"success"`
	SuccessMessage *string         `json:"success_message"`
	StatusCode     int             `json:"status_code"`
	Data           json.RawMessage `json:"data"`
	ErrorDetails   *ErrorDetails   `json:"error_details"`
}

type ErrorDetails struct {
	Message          string          `json:"message"`
	ErrorCode        string          `json:"error_code,omitempty"`
	ValidationErrors json.RawMessage `json:"validation_errors,omitempty"`
	Method           string          `json:"method"`
	Path             string          `json:"path"`
}

// APIError is a structured failure reported by the backend. Its message is
// surfaced to the user verbatim.
type APIError struct {
	Status  int
	Details ErrorDetails
}

func (e *APIError) Error() string {
	if e.Details.Message == "" {
		return fmt.Sprintf("backend error (status %d)", e.Status)
	}
	return e.Details.Message
}

// UserMessage turns any client error into the text shown in the failed-state alert.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Error()
	case errors.Is(err, ErrUnauthenticated):
		return unauthenticatedMessage
	default:
		return FallbackMessage
	}
}

type PaginationMeta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type ListPage struct {
	Items      []map[string]any `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
	Message    string           `json:"-"`
}
