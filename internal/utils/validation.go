package utils

import (
	"errors"
	"regexp"
	"strings"

	"github.com/paulmach/orb"
)

var (
	// Alphanumeric, underscore, hyphen, dot.
	validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
)

// ValidateID validates that an ID is safe and within reasonable limits
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}

	if len(id) > 100 {
		return errors.New("id too long (max 100 characters)")
	}

	if !validIDPattern.MatchString(id) {
		return errors.New("id contains invalid characters")
	}

	return nil
}

// ValidateIDs checks every named id and returns field errors keyed by name.
// The result is empty when all ids are valid.
func ValidateIDs(ids map[string]string) map[string][]string {
	fieldErrors := make(map[string][]string)
	for field, id := range ids {
		if err := ValidateID(id); err != nil {
			fieldErrors[field] = append(fieldErrors[field], err.Error())
		}
	}
	return fieldErrors
}

func ValidateLatitude(lat float64) error {
	if lat < -90.0 || lat > 90.0 {
		return errors.New("latitude must be between -90 and 90")
	}
	return nil
}

func ValidateLongitude(lon float64) error {
	if lon < -180.0 || lon > 180.0 {
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}

// ValidateLineString checks that line has at least two points, all within WGS84 bounds.
func ValidateLineString(line orb.LineString) error {
	if len(line) < 2 {
		return errors.New("line needs at least 2 points")
	}
	for _, p := range line {
		if err := ValidateLongitude(p.Lon()); err != nil {
			return err
		}
		if err := ValidateLatitude(p.Lat()); err != nil {
			return err
		}
	}
	return nil
}

// SanitizeInput removes HTML tags and surrounding whitespace.
func SanitizeInput(input string) string {
	sanitized := htmlTagPattern.ReplaceAllString(input, "")
	return strings.TrimSpace(sanitized)
}
