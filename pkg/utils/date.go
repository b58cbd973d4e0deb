package utils

import "time"

// ParseDate parses an optional YYYY-MM-DD query parameter. An empty string
// yields nil, meaning the bound is absent.
func ParseDate(dateStr string) (*time.Time, error) {
	if dateStr == "" {
		return nil, nil
	}

	date, err := time.Parse(time.DateOnly, dateStr)
	if err != nil {
		return nil, err
	}

	return &date, nil
}
