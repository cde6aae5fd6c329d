package normalize

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Olá", "ola"},
		{"  MÉDIO ", "medio"},
		{"Alimentação", "alimentacao"},
		{"saída", "saida"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContainsAny(t *testing.T) {
	folded := Fold("Bom dia, quanto gastei?")
	if !ContainsAny(folded, []string{"gastei"}) {
		t.Error("expected whole-token match for gastei")
	}
	if !ContainsAny(folded, []string{"bom dia"}) {
		t.Error("expected phrase match for bom dia")
	}
	if ContainsAny(folded, []string{"gast"}) {
		t.Error("partial token should not match")
	}
	if ContainsAny(Fold("oito"), []string{"oi"}) {
		t.Error("oi must not match inside oito")
	}
}
