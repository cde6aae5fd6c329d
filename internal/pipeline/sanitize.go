package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxQueryLength is the longest query accepted, in characters.
const DefaultMaxQueryLength = 500

var (
	ErrEmptyQuery   = errors.New("query is empty")
	ErrQueryTooLong = errors.New("query too long")
)

// Sanitize prepares raw user input for Agent.Answer: it trims surrounding
// whitespace, rejects input longer than maxLen characters and drops control
// characters other than newline and tab.
func Sanitize(raw string, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxQueryLength
	}
	s := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(s); n > maxLen {
		return "", fmt.Errorf("%w: %d characters, limit is %d", ErrQueryTooLong, n, maxLen)
	}
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
	if strings.TrimSpace(s) == "" {
		return "", ErrEmptyQuery
	}
	return s, nil
}
