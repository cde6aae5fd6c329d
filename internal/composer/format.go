package composer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Money renders an amount the way answers quote it, e.g. "R$ 1650.00".
func Money(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}

func percent(d decimal.Decimal, places int32) string {
	return d.StringFixed(places) + "%"
}

func months(n int) string {
	if n == 1 {
		return "1 mês"
	}
	return fmt.Sprintf("%d meses", n)
}

func days(n int) string {
	if n == 1 {
		return "no último dia"
	}
	return fmt.Sprintf("nos últimos %d dias", n)
}

func date(t time.Time) string {
	return t.Format("02/01/2006")
}

// sentence trims s and makes sure it ends with terminal punctuation.
func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}

func join(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
