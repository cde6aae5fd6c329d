package composer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/kalambet/moara/internal/intent"
	"github.com/kalambet/moara/internal/records"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fixedClock() time.Time { return day("2025-10-15") }

func testDataset() *records.Dataset {
	return &records.Dataset{
		Transactions: []records.Transaction{
			{Date: day("2025-10-01"), Description: "Salário", Category: "receita", Amount: dec("5000"), Direction: records.Inflow},
			{Date: day("2025-10-05"), Description: "Aluguel", Category: "moradia", Amount: dec("1200"), Direction: records.Outflow},
			{Date: day("2025-10-10"), Description: "Supermercado", Category: "alimentacao", Amount: dec("450"), Direction: records.Outflow},
		},
		History: []records.Interaction{
			{Date: day("2025-09-15"), Channel: "chat", Topic: "CDB", Summary: "Perguntou sobre CDB", Resolved: true},
		},
		Profile: records.Profile{
			Name:          "João Silva",
			MonthlyIncome: dec("5000"),
			RiskProfile:   "moderado",
			NetWorth:      dec("15000"),
			EmergencyFund: dec("10000"),
			Goals: []records.Goal{
				{Label: "Completar reserva de emergência", TargetAmount: dec("15000"), TargetDate: day("2026-06-01")},
				{Label: "Entrada do apartamento", TargetAmount: dec("50000"), TargetDate: day("2027-10-01")},
			},
		},
		Products: []records.Product{
			{Name: "Tesouro Selic", Category: "renda_fixa", Risk: records.RiskLow, ExpectedReturn: "100% da Selic", MinContribution: dec("30"), SuitableFor: "Reserva de emergência e iniciantes"},
			{Name: "CDB Liquidez Diária", Category: "renda_fixa", Risk: records.RiskLow, SuitableFor: "Quem busca segurança com rendimento diário."},
			{Name: "Fundo Multimercado", Category: "fundo", Risk: records.RiskMedium, SuitableFor: "Perfil moderado"},
		},
	}
}

func compose(t *testing.T, query string) Answer {
	t.Helper()
	a, err := NewTemplate(fixedClock).Compose(context.Background(), query, testDataset(), intent.FinancialQuery)
	if err != nil {
		t.Fatalf("Compose(%q): %v", query, err)
	}
	return a
}

func TestTemplate_Spending(t *testing.T) {
	a := compose(t, "Quanto gastei este mês?")
	want := "Você gastou R$ 1650.00 nos últimos 30 dias. Maior categoria: moradia (R$ 1200.00)."
	if a.Text != want {
		t.Errorf("Text = %q, want %q", a.Text, want)
	}
	if diff := cmp.Diff([]string{"transacoes.csv:data,tipo,categoria,valor"}, a.Sources); diff != "" {
		t.Errorf("Sources (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(a.FullText, a.Text) || !strings.Contains(a.FullText, "alimentacao (R$ 450.00)") {
		t.Errorf("FullText = %q", a.FullText)
	}
	if a.Mode != ModeTemplate {
		t.Errorf("Mode = %q", a.Mode)
	}
}

func TestTemplate_SpendingPeriodFromQuery(t *testing.T) {
	a := compose(t, "meus gastos dos últimos 3 dias")
	if !strings.HasPrefix(a.Text, "Você gastou R$ 450.00 nos últimos 3 dias.") {
		t.Errorf("Text = %q", a.Text)
	}
}

func TestTemplate_AlertFallsBackToNoAlerts(t *testing.T) {
	a := compose(t, "algum alerta?")
	if a.Text != noAlertsText {
		t.Errorf("Text = %q, want %q", a.Text, noAlertsText)
	}
	if len(a.Sources) == 0 {
		t.Error("no sources on alert answer")
	}
}

func TestTemplate_AlertIncrease(t *testing.T) {
	ds := testDataset()
	ds.Transactions = []records.Transaction{
		{Date: day("2025-10-01"), Category: "lazer", Amount: dec("100"), Direction: records.Outflow},
		{Date: day("2025-10-09"), Category: "lazer", Amount: dec("150"), Direction: records.Outflow},
	}
	a, _ := NewTemplate(fixedClock).Compose(context.Background(), "tem alerta?", ds, intent.FinancialQuery)
	want := "Seus gastos aumentaram 50% nos últimos 7 dias. Pode ser um bom momento para revisar o orçamento."
	if a.Text != want {
		t.Errorf("Text = %q, want %q", a.Text, want)
	}
	if !strings.Contains(a.FullText, "R$ 150.00") {
		t.Errorf("FullText = %q", a.FullText)
	}
}

func TestTemplate_AlertRecurring(t *testing.T) {
	ds := testDataset()
	ds.Transactions = append(ds.Transactions,
		records.Transaction{Date: day("2025-10-11"), Category: "alimentacao", Amount: dec("50"), Direction: records.Outflow},
	)
	a, _ := NewTemplate(fixedClock).Compose(context.Background(), "alerta", ds, intent.FinancialQuery)
	want := "Você tem 2 despesas em 'alimentacao' totalizando R$ 500.00. Considere analisar se há oportunidade de redução."
	if a.Text != want {
		t.Errorf("Text = %q, want %q", a.Text, want)
	}
}

func TestTemplate_Goal(t *testing.T) {
	a := compose(t, "Como atingir minha meta?")
	want := "Para atingir R$ 15000.00 em 8 meses, reserve R$ 1875.00 mensais. Isso representa 37.5% da sua renda (moderado)."
	if a.Text != want {
		t.Errorf("Text = %q, want %q", a.Text, want)
	}
	if !strings.Contains(a.FullText, "Entrada do apartamento") {
		t.Errorf("FullText does not cover the remaining goals: %q", a.FullText)
	}
}

func TestTemplate_GoalPastDeadline(t *testing.T) {
	ds := testDataset()
	ds.Profile.Goals = []records.Goal{{Label: "Viagem", TargetAmount: dec("3000"), TargetDate: day("2025-10-01")}}
	a, _ := NewTemplate(fixedClock).Compose(context.Background(), "minha meta", ds, intent.FinancialQuery)
	if !strings.Contains(a.Text, "Viagem") || strings.Contains(a.Text, "R$") {
		t.Errorf("Text = %q, want a no-data answer", a.Text)
	}
}

func TestTemplate_NoGoals(t *testing.T) {
	ds := testDataset()
	ds.Profile.Goals = nil
	a, _ := NewTemplate(fixedClock).Compose(context.Background(), "quero poupar", ds, intent.FinancialQuery)
	if a.Text != noGoalText {
		t.Errorf("Text = %q", a.Text)
	}
}

func TestTemplate_Product(t *testing.T) {
	a := compose(t, "onde devo investir?")
	want := "Com perfil moderado, considere 'Tesouro Selic'. Reserva de emergência e iniciantes."
	if a.Text != want {
		t.Errorf("Text = %q, want %q", a.Text, want)
	}
	if strings.Contains(a.FullText, "Multimercado") {
		t.Errorf("FullText suggests an incompatible product: %q", a.FullText)
	}
	if !strings.Contains(a.FullText, "CDB Liquidez Diária") {
		t.Errorf("FullText = %q", a.FullText)
	}
	want2 := []string{"perfil_investidor.json:perfil_investidor,aceita_risco", "produtos_financeiros.json:nome,risco,indicado_para"}
	if diff := cmp.Diff(want2, a.Sources); diff != "" {
		t.Errorf("Sources (-want +got):\n%s", diff)
	}
}

func TestTemplate_NoCompatibleProduct(t *testing.T) {
	ds := testDataset()
	ds.Products = ds.Products[2:]
	a, _ := NewTemplate(fixedClock).Compose(context.Background(), "recomendar produto", ds, intent.FinancialQuery)
	if !strings.HasPrefix(a.Text, "Nenhum produto compatível") {
		t.Errorf("Text = %q", a.Text)
	}
}

func TestTemplate_MenuHasNoSources(t *testing.T) {
	a := compose(t, "me conte sobre o clima")
	if a.Text != MenuText || len(a.Sources) != 0 {
		t.Errorf("Answer = %+v, want menu without sources", a)
	}
}

func TestTemplate_GreetingUsesName(t *testing.T) {
	a, _ := NewTemplate(fixedClock).Compose(context.Background(), "oi", testDataset(), intent.Greeting)
	if !strings.HasPrefix(a.Text, "Olá, João Silva.") || len(a.Sources) != 0 {
		t.Errorf("Answer = %+v", a)
	}
}

func TestDetectTopic(t *testing.T) {
	tests := []struct {
		query string
		want  Topic
	}{
		{"quanto preciso guardar por mês?", TopicGoal},
		{"Quais foram minhas DESPESAS?", TopicSpending},
		{"tenho gastos recorrentes?", TopicSpending},
		{"algum alerta", TopicAlert},
		{"o que recomenda para aplicar?", TopicProduct},
		{"previsão do tempo", TopicMenu},
	}
	for _, tt := range tests {
		if got := DetectTopic(tt.query); got != tt.want {
			t.Errorf("DetectTopic(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}
