package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ParseJSON decodes the request body into dest.
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes the request body into dest, answering a 400
// itself on failure. Returns false when the response has been written.
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// ParseQueryString reads a query parameter, falling back to defaultVal when
// absent or empty.
func ParseQueryString(r *http.Request, key, defaultVal string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return defaultVal
}

// RequireNonEmpty writes a validation error and returns false when value is
// empty.
func RequireNonEmpty(w http.ResponseWriter, value, fieldName string) bool {
	if value == "" {
		WriteValidationError(w, fmt.Sprintf("%s is required", fieldName))
		return false
	}
	return true
}

// Validator reports whether a value is acceptable, with a message when not.
type Validator func() (bool, string)

// ValidateAll runs validators in order and writes the first failure as a
// validation error. Returns true only when every validator passes.
func ValidateAll(w http.ResponseWriter, validators ...Validator) bool {
	for _, v := range validators {
		if ok, msg := v(); !ok {
			WriteValidationError(w, msg)
			return false
		}
	}
	return true
}
