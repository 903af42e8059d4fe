package server

import (
	"strconv"
	"strings"
	"time"
)

// parseUnixSeconds parses a required unix-seconds value into a UTC time.
func parseUnixSeconds(field, value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, newValidationError(field, "required", field+" is required")
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || parsed < 0 {
		return time.Time{}, newValidationError(field, "invalid_"+field, field+" must be unix seconds")
	}
	return time.Unix(parsed, 0).UTC(), nil
}

func requiredString(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", newValidationError(field, "required", field+" is required")
	}
	return trimmed, nil
}
