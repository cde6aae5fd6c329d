package intent

import "github.com/kalambet/moara/internal/engine"

const classificationSystemPrompt = `Você classifica mensagens enviadas a um assistente de finanças pessoais. Responda com exatamente um rótulo, sem nenhum outro texto:

NON_ACTIONABLE: mensagem vazia, só pontuação, ou sem pedido (ex.: "ok", "nada", "...").
GREETING: apenas uma saudação (ex.: "oi", "bom dia").
FINANCIAL_QUERY: qualquer menção a objetivo, prazo, risco, valor, renda, dívida, gastos ou investimentos, mesmo parcial e mesmo junto de uma saudação (ex.: "bom dia, quanto gastei?").`

// BuildPrompt constructs the classification request for text.
func BuildPrompt(text string) engine.Request {
	return engine.Request{
		System:      classificationSystemPrompt,
		Prompt:      text,
		MaxTokens:   classificationMaxTokens,
		Temperature: 0,
	}
}
