package composer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kalambet/moara/internal/facts"
	"github.com/kalambet/moara/internal/intent"
	"github.com/kalambet/moara/internal/normalize"
	"github.com/kalambet/moara/internal/records"
)

// Topic is a query intent the template composer can answer.
type Topic string

const (
	TopicGoal     Topic = "goal"
	TopicSpending Topic = "spending"
	TopicAlert    Topic = "alert"
	TopicProduct  Topic = "product"
	TopicMenu     Topic = "menu"
)

// Topic keyword sets, checked in this order.
var topics = []struct {
	topic Topic
	words []string
}{
	{TopicGoal, []string{"meta", "metas", "objetivo", "objetivos", "poupar", "guardar", "economizar", "reserva"}},
	{TopicSpending, []string{"gasto", "gastos", "gastei", "gastar", "despesa", "despesas", "quanto"}},
	{TopicAlert, []string{"alerta", "alertas", "aumento", "aumentou", "recorrente", "recorrentes"}},
	{TopicProduct, []string{"investir", "investimento", "investimentos", "produto", "produtos", "aplicar", "recomendar", "recomenda"}},
}

var periodPattern = regexp.MustCompile(`(\d{1,4})\s*dias?`)

// Fixed replies.
const (
	MenuText     = "Posso ajudar com: gastos, alertas, metas ou produtos financeiros. Sobre qual tema deseja falar?"
	noGoalText   = "Informe seu objetivo e prazo para calcular valor mensal. Qual meta deseja alcançar?"
	noAlertsText = "Sem alertas no momento. Seus gastos estão estáveis."
)

// DetectTopic maps a query to the template topic it asks about.
func DetectTopic(query string) Topic {
	folded := normalize.Fold(query)
	for _, t := range topics {
		if normalize.ContainsAny(folded, t.words) {
			return t.topic
		}
	}
	return TopicMenu
}

// PeriodDays extracts "N dias" from a query, or returns the default window.
func PeriodDays(query string) int {
	m := periodPattern.FindStringSubmatch(normalize.Fold(query))
	if m == nil {
		return facts.DefaultSummaryDays
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return facts.DefaultSummaryDays
	}
	return n
}

// Template answers from fixed sentence templates filled with facts. Every
// answer it produces lists exact file:field sources.
type Template struct {
	now func() time.Time
}

// NewTemplate creates a Template. now may be nil to use the wall clock.
func NewTemplate(now func() time.Time) *Template {
	if now == nil {
		now = time.Now
	}
	return &Template{now: now}
}

func (t *Template) Compose(_ context.Context, query string, ds *records.Dataset, class intent.Classification) (Answer, error) {
	switch class {
	case intent.Greeting:
		return Greeting(ds.Profile), nil
	case intent.NonActionable:
		return Menu(), nil
	}

	switch DetectTopic(query) {
	case TopicGoal:
		return t.Goals(ds), nil
	case TopicSpending:
		return t.Spending(ds, PeriodDays(query)), nil
	case TopicAlert:
		return t.Alerts(ds), nil
	case TopicProduct:
		return t.Products(ds), nil
	}
	return Menu(), nil
}

// Menu is the fixed reply for anything the templates do not cover.
func Menu() Answer {
	return Answer{Text: MenuText, FullText: MenuText, Mode: ModeTemplate}
}

// Greeting is the fixed reply to a greeting, personalised with the profile
// name when there is one.
func Greeting(p records.Profile) Answer {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "Cliente"
	}
	text := fmt.Sprintf("Olá, %s. Como posso ajudar com suas finanças hoje?", name)
	full := join(text, "Posso falar sobre seus gastos, alertas, metas ou produtos financeiros.")
	return Answer{Text: text, FullText: full, Mode: ModeTemplate}
}

// Spending summarizes outflows over the last periodDays.
func (t *Template) Spending(ds *records.Dataset, periodDays int) Answer {
	s := facts.SpendingSummary(ds, periodDays)
	a := Answer{Sources: s.Sources, Mode: ModeTemplate}
	if s.NoData {
		a.Text = fmt.Sprintf("Sem despesas registradas %s. Deseja consultar um período maior?", days(periodDays))
		a.FullText = a.Text
		return a
	}

	a.Text = fmt.Sprintf("Você gastou %s %s. Maior categoria: %s (%s).",
		Money(s.Total), days(periodDays), s.TopCategory, Money(s.TopTotal))

	var others []string
	for _, c := range s.Categories[1:] {
		others = append(others, fmt.Sprintf("%s (%s)", c.Category, Money(c.Total)))
	}
	detail := fmt.Sprintf("Período analisado: de %s a %s.", date(s.From), date(s.To))
	if len(others) > 0 {
		detail = join(fmt.Sprintf("Demais categorias: %s.", strings.Join(others, ", ")), detail)
	}
	a.FullText = join(a.Text, detail)
	return a
}

// Alerts reports a spending increase, or failing that the most frequent
// recurring expense, or that there is nothing to flag.
func (t *Template) Alerts(ds *records.Dataset) Answer {
	al := facts.SpendingIncrease(ds)
	if al.Triggered {
		text := fmt.Sprintf("Seus gastos aumentaram %s nos últimos %d dias. Pode ser um bom momento para revisar o orçamento.",
			percent(al.Percent, 0), al.WindowDays)
		detail := fmt.Sprintf("Foram %s nos últimos %d dias contra %s no período anterior.",
			Money(al.Recent), al.WindowDays, Money(al.Prior))
		return Answer{Text: text, FullText: join(text, detail), Sources: al.Sources, Mode: ModeTemplate}
	}

	rec := facts.RecurringExpenses(ds)
	sources := append(append([]string{}, al.Sources...), rec.Sources...)
	if len(rec.Items) == 0 {
		return Answer{Text: noAlertsText, FullText: noAlertsText, Sources: sources, Mode: ModeTemplate}
	}

	top := rec.Items[0]
	text := fmt.Sprintf("Você tem %d despesas em '%s' totalizando %s. Considere analisar se há oportunidade de redução.",
		top.Count, top.Category, Money(top.Total))
	var others []string
	for _, r := range rec.Items[1:] {
		others = append(others, fmt.Sprintf("%s (%dx, %s)", r.Category, r.Count, Money(r.Total)))
	}
	full := text
	if len(others) > 0 {
		full = join(text, fmt.Sprintf("Outras despesas recorrentes: %s.", strings.Join(others, ", ")))
	}
	return Answer{Text: text, FullText: full, Sources: sources, Mode: ModeTemplate}
}

// Goals plans the first goal of the profile; the full text covers the rest.
func (t *Template) Goals(ds *records.Dataset) Answer {
	goals := ds.Profile.Goals
	if len(goals) == 0 {
		return Answer{
			Text:     noGoalText,
			FullText: noGoalText,
			Sources:  []string{records.FileProfile + ":metas"},
			Mode:     ModeTemplate,
		}
	}

	ref := t.now()
	first := facts.GoalPlan(ds.Profile, goals[0], ref)
	a := Answer{Sources: first.Sources, Mode: ModeTemplate, Text: describePlan(first)}

	var extra []string
	for _, g := range goals[1:] {
		p := facts.GoalPlan(ds.Profile, g, ref)
		if p.NoData {
			extra = append(extra, fmt.Sprintf("A meta '%s' não tem meses restantes até o prazo.", g.Label))
			continue
		}
		extra = append(extra, fmt.Sprintf("Para a meta '%s', reserve %s mensais por %s.", g.Label, Money(p.MonthlyRequired), months(p.Months)))
	}
	a.FullText = join(append([]string{a.Text}, extra...)...)
	return a
}

func describePlan(p facts.Plan) string {
	label := p.Goal.Label
	if label == "" {
		label = "sua meta"
	}
	if p.NoData {
		return fmt.Sprintf("O prazo de '%s' já passou ou vence neste mês, então não há meses para planejar. Qual novo prazo deseja considerar?", label)
	}
	first := fmt.Sprintf("Para atingir %s em %s, reserve %s mensais.",
		Money(p.Goal.TargetAmount), months(p.Months), Money(p.MonthlyRequired))
	if !p.IncomeKnown {
		return join(first, "Renda mensal não informada no perfil.")
	}
	return join(first, fmt.Sprintf("Isso representa %s da sua renda (%s).", percent(p.PercentOfIncome, 1), p.RiskProfile))
}

// Products suggests the first catalog product compatible with the profile.
func (t *Template) Products(ds *records.Dataset) Answer {
	s := facts.SuitableProducts(ds.Profile, ds.Products)
	a := Answer{Sources: s.Sources, Mode: ModeTemplate}
	if len(s.Products) == 0 {
		a.Text = fmt.Sprintf("Nenhum produto compatível com o perfil %s foi encontrado no catálogo.", s.RiskProfile)
		a.FullText = a.Text
		return a
	}

	p := s.Products[0]
	a.Text = join(fmt.Sprintf("Com perfil %s, considere '%s'.", s.RiskProfile, p.Name), sentence(p.SuitableFor))

	var detail []string
	if p.ExpectedReturn != "" || p.MinContribution.IsPositive() {
		parts := []string{fmt.Sprintf("'%s' é de risco %s", p.Name, p.Risk)}
		if p.ExpectedReturn != "" {
			parts = append(parts, "rentabilidade "+p.ExpectedReturn)
		}
		if p.MinContribution.IsPositive() {
			parts = append(parts, "aporte mínimo de "+Money(p.MinContribution))
		}
		detail = append(detail, strings.Join(parts, ", ")+".")
	}
	if len(s.Products) > 1 {
		var names []string
		for _, o := range s.Products[1:] {
			names = append(names, fmt.Sprintf("'%s'", o.Name))
		}
		detail = append(detail, fmt.Sprintf("Outras opções compatíveis: %s.", strings.Join(names, ", ")))
	}
	a.FullText = join(append([]string{a.Text}, detail...)...)
	return a
}
