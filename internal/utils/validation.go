package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// container names as shown by docker ps, optionally with the leading slash of inspect
	containerNameRegex = regexp.MustCompile(`^/?[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)
	containerIDRegex   = regexp.MustCompile(`^[0-9a-f]{12,64}$`)
)

// MaxContainerRefLength bounds container names and IDs accepted from requests
const MaxContainerRefLength = 128

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateContainerRef accepts a container ID (full or short) or a container name
func ValidateContainerRef(ref string) error {
	if ref == "" {
		return &ValidationError{
			Field:   "container",
			Code:    "REQUIRED",
			Message: "Container ID or name is required",
		}
	}
	if len(ref) > MaxContainerRefLength {
		return &ValidationError{
			Field:   "container",
			Code:    "TOO_LONG",
			Message: fmt.Sprintf("Container reference exceeds maximum length of %d", MaxContainerRefLength),
		}
	}
	if containerIDRegex.MatchString(ref) || containerNameRegex.MatchString(ref) {
		return nil
	}
	return &ValidationError{
		Field:   "container",
		Code:    "INVALID_FORMAT",
		Message: "Container names must start with a letter or number and can contain only alphanumeric characters, hyphens, underscores, and periods",
		Value:   ref,
	}
}

// ValidateURL checks that rawURL is absolute, has a host and uses one of allowedSchemes
func ValidateURL(rawURL string, allowedSchemes []string) error {
	if rawURL == "" {
		return &ValidationError{
			Field:   "url",
			Code:    "REQUIRED",
			Message: "URL is required",
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{
			Field:   "url",
			Code:    "INVALID_FORMAT",
			Message: "Invalid URL format: " + err.Error(),
			Value:   rawURL,
		}
	}
	if parsedURL.Scheme == "" {
		return &ValidationError{
			Field:   "url",
			Code:    "MISSING_SCHEME",
			Message: "URL must have a scheme (e.g., http, https)",
			Value:   rawURL,
		}
	}

	if len(allowedSchemes) > 0 {
		allowed := false
		for _, scheme := range allowedSchemes {
			if strings.EqualFold(parsedURL.Scheme, scheme) {
				allowed = true
				break
			}
		}
		if !allowed {
			return &ValidationError{
				Field:   "url",
				Code:    "INVALID_SCHEME",
				Message: fmt.Sprintf("URL scheme '%s' is not allowed. Allowed schemes: %s", parsedURL.Scheme, strings.Join(allowedSchemes, ", ")),
				Value:   rawURL,
			}
		}
	}

	if parsedURL.Host == "" {
		return &ValidationError{
			Field:   "url",
			Code:    "MISSING_HOST",
			Message: "URL must have a host",
			Value:   rawURL,
		}
	}
	return nil
}

// ValidateOneOf checks that value is one of allowed
func ValidateOneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Code:    "NOT_ALLOWED",
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
		Value:   value,
	}
}
