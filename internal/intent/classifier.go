package intent

import (
	"context"
	"strings"
)

// Classification is the triage result for a raw message. It decides which
// path answers it and is never revised afterwards.
type Classification int

const (
	NonActionable Classification = iota
	Greeting
	FinancialQuery
)

// Canonical labels, as produced by a generative classifier.
const (
	LabelNonActionable  = "NON_ACTIONABLE"
	LabelGreeting       = "GREETING"
	LabelFinancialQuery = "FINANCIAL_QUERY"
)

// Label returns the canonical label for c.
func (c Classification) Label() string {
	switch c {
	case Greeting:
		return LabelGreeting
	case FinancialQuery:
		return LabelFinancialQuery
	default:
		return LabelNonActionable
	}
}

func (c Classification) String() string {
	return strings.ToLower(c.Label())
}

// ParseLabel maps an exact canonical label, ignoring surrounding whitespace,
// to its Classification. Anything else reports ok=false.
func ParseLabel(s string) (c Classification, ok bool) {
	switch strings.TrimSpace(s) {
	case LabelNonActionable:
		return NonActionable, true
	case LabelGreeting:
		return Greeting, true
	case LabelFinancialQuery:
		return FinancialQuery, true
	}
	return NonActionable, false
}

// Classifier sorts a raw message into one of the three classifications.
// Implementations never fail; uncertainty resolves to a safe default.
type Classifier interface {
	Classify(ctx context.Context, text string) Classification
}
