package validation

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"
)

const (
	MaxGroupTitleLength       = 200
	MaxGroupSlugLength        = 100
	MaxGroupDescriptionLength = 5000
)

var groupSlugRegex = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// ValidateGroupSlug checks the slug is non-empty, URL-safe and fits the column.
func ValidateGroupSlug(slug string) error {
	if slug == "" {
		return errors.New("slug is required")
	}
	if utf8.RuneCountInString(slug) > MaxGroupSlugLength {
		return fmt.Errorf("slug must be at most %d characters", MaxGroupSlugLength)
	}
	if !groupSlugRegex.MatchString(slug) {
		return errors.New("slug may contain only letters, numbers, underscores and hyphens")
	}
	return nil
}
