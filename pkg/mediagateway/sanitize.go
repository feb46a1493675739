package mediagateway

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxPathLength bounds sanitized folder paths and asset identifiers.
const MaxPathLength = 255

var (
	disallowedChars = regexp.MustCompile(`[^A-Za-z0-9/_-]+`)
	repeatedSlashes = regexp.MustCompile(`/{2,}`)
)

// SanitizeFolderPath normalizes a user-supplied folder path: it trims
// surrounding whitespace, strips every character outside [A-Za-z0-9/_-],
// collapses repeated slashes, and removes leading and trailing slashes.
// It fails with ErrInvalidPath when the result is empty or longer than
// MaxPathLength. Sanitization is idempotent.
func SanitizeFolderPath(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	p = disallowedChars.ReplaceAllString(p, "")
	p = repeatedSlashes.ReplaceAllString(p, "/")
	p = strings.Trim(p, "/")

	if p == "" {
		return "", fmt.Errorf("%w: empty after sanitization", ErrInvalidPath)
	}
	if len(p) > MaxPathLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidPath, MaxPathLength)
	}
	return p, nil
}

// SanitizeAssetID normalizes a user-supplied asset identifier with the same
// rules as SanitizeFolderPath. Asset identifiers share the folder addressing
// scheme of the remote store (an identifier may contain slashes).
func SanitizeAssetID(raw string) (string, error) {
	id, err := SanitizeFolderPath(raw)
	if err != nil {
		return "", fmt.Errorf("invalid asset identifier: %w", err)
	}
	return id, nil
}
