package service

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Column widths of the free-text fields callers fill in.
const (
	maxPayerName   = 120
	maxDescription = 255
	maxNote        = 500
)

// boundedText trims s and rejects it when it has more than limit characters.
func boundedText(field, s string, limit int) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > limit {
		return "", fmt.Errorf("%w: %s must be at most %d characters", ErrValidation, field, limit)
	}
	return s, nil
}

// optionalNote bounds a rejection note; a blank note is stored as NULL.
func optionalNote(note string) (*string, error) {
	note, err := boundedText("note", note, maxNote)
	if err != nil || note == "" {
		return nil, err
	}
	return &note, nil
}
