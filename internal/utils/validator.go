package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	apperrors "linkpulse/internal/errors"
)

func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return apperrors.NewValidationError("destination", "URL cannot be empty")
	}

	if len(rawURL) > 2048 {
		return apperrors.NewValidationError("destination", "URL is too long (max 2048 characters)")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return apperrors.NewValidationError("destination", fmt.Sprintf("invalid URL format: %v", err))
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return apperrors.NewValidationError("destination", "URL must start with http:// or https://")
	}

	if parsedURL.Host == "" {
		return apperrors.NewValidationError("destination", "URL must contain a valid host")
	}

	return nil
}

var slugPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Route segments that a custom slug must not shadow.
var reservedSlugs = map[string]bool{
	"api":     true,
	"health":  true,
	"info":    true,
	"static":  true,
	"links":   true,
	"metrics": true,
	"admin":   true,
}

// ValidateSlug checks a caller-supplied slug: 3-32 characters from
// [a-zA-Z0-9_-], not a reserved route segment.
func ValidateSlug(slug string) error {
	if len(slug) < 3 {
		return apperrors.NewValidationError("slug", "slug must be at least 3 characters long")
	}
	if len(slug) > 32 {
		return apperrors.NewValidationError("slug", "slug must be at most 32 characters long")
	}

	if !slugPattern.MatchString(slug) {
		return apperrors.NewValidationError("slug", "slug can only contain letters, numbers, hyphens, and underscores")
	}

	if reservedSlugs[strings.ToLower(slug)] {
		return apperrors.NewValidationError("slug", fmt.Sprintf("slug '%s' is reserved", slug))
	}

	return nil
}

func SanitizeInput(input string) string {
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, input)

	return strings.TrimSpace(result)
}
