package intent

import (
	"context"
	"strings"
	"unicode"

	"github.com/kalambet/moara/internal/normalize"
)

// Folded keyword sets. Single words match whole tokens, phrases match as
// substrings.
var (
	greetingWords = []string{
		"oi", "ola", "bom dia", "boa tarde", "boa noite", "opa",
		"saudacoes", "hello", "hi", "hey",
	}

	financialWords = []string{
		// spending
		"gasto", "gastos", "gastei", "gastar", "gastando", "despesa", "despesas",
		"quanto", "quanta", "custo", "custa", "paguei", "pagar", "pagamento",
		"conta", "contas", "fatura", "cartao", "compra", "compras", "categoria",
		"transacao", "transacoes", "orcamento", "saldo", "dinheiro", "valor",
		// alerts
		"alerta", "alertas", "aumento", "aumentou", "recorrente", "recorrentes",
		// goals and terms
		"meta", "metas", "objetivo", "objetivos", "poupar", "guardar",
		"economizar", "reserva", "prazo", "meses", "anos",
		// income and debt
		"renda", "salario", "receita", "divida", "dividas", "emprestimo",
		"financiamento", "patrimonio",
		// products and risk
		"investir", "investimento", "investimentos", "produto", "produtos",
		"aplicar", "aplicacao", "recomendar", "recomenda", "recomendacao",
		"risco", "perfil", "rendimento", "rentabilidade", "cdb", "lci", "lca",
		"tesouro", "selic", "fundo", "fundos", "acoes", "poupanca",
		"financas", "financeiro", "financeira", "r$",
	}
)

// HasFinancialSignal reports whether folded text mentions money, an amount,
// a goal, a term, risk, income, debt, spending or a product.
func HasFinancialSignal(folded string) bool {
	if strings.IndexFunc(folded, unicode.IsDigit) >= 0 {
		return true
	}
	return normalize.ContainsAny(folded, financialWords)
}

// IsGreeting reports whether folded text contains a greeting.
func IsGreeting(folded string) bool {
	return normalize.ContainsAny(folded, greetingWords)
}

// KeywordClassifier classifies deterministically from folded keywords.
// Any financial signal wins over a greeting; text with neither is
// non-actionable.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, text string) Classification {
	folded := normalize.Fold(text)
	switch {
	case len(normalize.Tokens(folded)) == 0:
		return NonActionable
	case HasFinancialSignal(folded):
		return FinancialQuery
	case IsGreeting(folded):
		return Greeting
	default:
		return NonActionable
	}
}
