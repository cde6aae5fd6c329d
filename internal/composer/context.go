package composer

import (
	"fmt"
	"strings"

	"github.com/kalambet/moara/internal/records"
)

const (
	defaultMaxContextTokens = 3000
	maxContextTransactions  = 20
	maxContextHistory       = 10
)

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// DataContext is the textual rendering of the records handed to the backend
// together with the files it drew from.
type DataContext struct {
	Text    string
	Sources []string
}

// BuildContext renders the dataset within a token budget. The profile is
// always included; then the most recent transactions, the most recent
// interactions and the product catalog are added while they fit. Sources
// list a file only when at least one of its records made it in.
func BuildContext(ds *records.Dataset, maxTokens int) DataContext {
	if maxTokens <= 0 {
		maxTokens = defaultMaxContextTokens
	}

	var sb strings.Builder
	writeProfile(&sb, ds.Profile)
	sources := []string{records.FileProfile}
	remaining := maxTokens - EstimateTokens(sb.String())

	section := func(header string, lines []string, total int, file string) {
		if len(lines) == 0 {
			return
		}
		head := fmt.Sprintf("\n%s (%d registros):\n", header, total)
		remaining -= EstimateTokens(head)
		var kept []string
		for _, l := range lines {
			tokens := EstimateTokens(l)
			if tokens > remaining {
				break
			}
			kept = append(kept, l)
			remaining -= tokens
		}
		if len(kept) == 0 {
			remaining += EstimateTokens(head)
			return
		}
		sb.WriteString(head)
		for _, l := range kept {
			sb.WriteString(l)
		}
		if omitted := total - len(kept); omitted > 0 {
			fmt.Fprintf(&sb, "... e mais %d registros não incluídos\n", omitted)
		}
		sources = append(sources, file)
	}

	// newest first
	var txLines []string
	for i := len(ds.Transactions) - 1; i >= 0 && len(txLines) < maxContextTransactions; i-- {
		t := ds.Transactions[i]
		txLines = append(txLines, fmt.Sprintf("- %s: %s - %s - %s (%s)\n",
			t.Date.Format("2006-01-02"), t.Description, t.Category, Money(t.Amount), t.Direction))
	}
	section("TRANSAÇÕES RECENTES", txLines, len(ds.Transactions), records.FileTransactions)

	var histLines []string
	for i := len(ds.History) - 1; i >= 0 && len(histLines) < maxContextHistory; i-- {
		h := ds.History[i]
		histLines = append(histLines, fmt.Sprintf("- %s: %s - %s\n", h.Date.Format("2006-01-02"), h.Topic, h.Summary))
	}
	section("HISTÓRICO DE ATENDIMENTO", histLines, len(ds.History), records.FileHistory)

	var prodLines []string
	for _, p := range ds.Products {
		prodLines = append(prodLines, fmt.Sprintf("- %s (%s, risco %s): %s\n", p.Name, p.Category, p.Risk, p.SuitableFor))
	}
	section("PRODUTOS FINANCEIROS DISPONÍVEIS", prodLines, len(ds.Products), records.FileProducts)

	return DataContext{Text: sb.String(), Sources: sources}
}

func writeProfile(sb *strings.Builder, p records.Profile) {
	sb.WriteString("PERFIL DO USUÁRIO:\n")
	fmt.Fprintf(sb, "- Nome: %s\n", p.Name)
	fmt.Fprintf(sb, "- Renda mensal: %s\n", Money(p.MonthlyIncome))
	fmt.Fprintf(sb, "- Perfil de investidor: %s\n", p.RiskProfile)
	fmt.Fprintf(sb, "- Patrimônio total: %s\n", Money(p.NetWorth))
	fmt.Fprintf(sb, "- Reserva de emergência: %s\n", Money(p.EmergencyFund))
	accepts := "Não"
	if p.AcceptsRisk {
		accepts = "Sim"
	}
	fmt.Fprintf(sb, "- Aceita risco: %s\n", accepts)
	if len(p.Goals) > 0 {
		sb.WriteString("- Metas financeiras:\n")
		for _, g := range p.Goals {
			fmt.Fprintf(sb, "  * %s: %s até %s\n", g.Label, Money(g.TargetAmount), g.TargetDate.Format("2006-01"))
		}
	}
}
