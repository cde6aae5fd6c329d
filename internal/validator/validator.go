// Package validator bounds answer length by sentence count.
package validator

import (
	"strings"
)

// Default sentence ceilings.
const (
	DefaultShort    = 2
	DefaultDetailed = 6
)

// Limits holds the sentence ceilings for short and detailed answers.
type Limits struct {
	Short    int
	Detailed int
}

// Validator enforces Limits on answer text.
type Validator struct {
	limits Limits
}

// New returns a Validator. Non-positive ceilings fall back to the defaults.
func New(limits Limits) *Validator {
	if limits.Short <= 0 {
		limits.Short = DefaultShort
	}
	if limits.Detailed <= 0 {
		limits.Detailed = DefaultDetailed
	}
	if limits.Detailed < limits.Short {
		limits.Detailed = limits.Short
	}
	return &Validator{limits: limits}
}

// Limits returns the effective ceilings.
func (v *Validator) Limits() Limits { return v.limits }

// Validate reports whether text is within the ceiling for the requested mode
// and returns the bounded text. Text within the ceiling is returned as is;
// longer text is cut after the last allowed sentence, keeping its terminal
// punctuation. Empty input yields ("", true).
func (v *Validator) Validate(text string, detailed bool) (unmodified bool, bounded string) {
	if strings.TrimSpace(text) == "" {
		return true, ""
	}
	ceiling := v.limits.Short
	if detailed {
		ceiling = v.limits.Detailed
	}
	ends := sentenceEnds(text)
	if len(ends) <= ceiling {
		return true, text
	}
	return false, strings.TrimSpace(text[:ends[ceiling-1]])
}

// CountSentences returns the number of non-empty sentences in text. Text
// without terminal punctuation counts as one sentence.
func CountSentences(text string) int {
	return len(sentenceEnds(text))
}

// sentenceEnds returns, for each non-empty sentence, the byte offset just
// past its run of terminators. Only ASCII bytes are inspected, so offsets
// always fall on rune boundaries.
func sentenceEnds(text string) []int {
	var ends []int
	start := 0
	for i := 0; i < len(text); {
		if !terminatorAt(text, i) {
			i++
			continue
		}
		j := i
		for j < len(text) && terminatorAt(text, j) {
			j++
		}
		switch {
		case strings.TrimSpace(text[start:i]) != "":
			ends = append(ends, j)
		case len(ends) > 0:
			// stray punctuation extends the previous sentence
			ends[len(ends)-1] = j
		}
		start = j
		i = j
	}
	if strings.TrimSpace(text[start:]) != "" {
		ends = append(ends, len(text))
	}
	return ends
}

// terminatorAt reports whether text[i] ends a sentence. A '.' between two
// digits is a decimal point, not a boundary.
func terminatorAt(text string, i int) bool {
	switch text[i] {
	case '!', '?':
		return true
	case '.':
		if i > 0 && i+1 < len(text) && isDigit(text[i-1]) && isDigit(text[i+1]) {
			return false
		}
		return true
	}
	return false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// FormatSources renders a source list for display.
func FormatSources(sources []string) string {
	if len(sources) == 0 {
		return ""
	}
	return "Fontes: " + strings.Join(sources, ", ")
}

// Justification is a one-sentence note naming the main record file behind an
// answer.
func Justification(sources []string) string {
	if len(sources) == 0 {
		return "Resposta baseada nas regras gerais do agente."
	}
	file, _, _ := strings.Cut(sources[0], ":")
	return "Análise baseada em " + file + "."
}
