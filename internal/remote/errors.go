package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const unknownFileType = "Unknown file type"

// APIError is a non-2xx answer of the remote API.
type APIError struct {
	StatusCode int
	Category   string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d (%s)", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsUnknownFileType reports whether err says the remote refused the file's type.
func IsUnknownFileType(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.Contains(apiErr.Message, unknownFileType) {
		return true
	}
	return strings.Contains(err.Error(), unknownFileType)
}
