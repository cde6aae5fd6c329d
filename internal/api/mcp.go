package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"

	"github.com/kalambet/moara/internal/facts"
	"github.com/kalambet/moara/internal/pipeline"
	"github.com/kalambet/moara/internal/records"
)

// NewMCPServer creates an MCP server exposing the agent and its facts as
// tools, and the profile and recent interactions as resources.
func NewMCPServer(deps Deps, version string) *server.MCPServer {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	sa := &serialAgent{agent: deps.Agent}

	s := server.NewMCPServer(
		"moara",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("moara answers personal-finance questions from the user's own records, citing the files each answer came from."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask a personal-finance question in Portuguese. Returns a short answer, a detailed answer and its sources."),
			mcp.WithString("query", mcp.Description("The question"), mcp.Required()),
		),
		mcpAsk(sa, deps.MaxQueryLength),
	)

	s.AddTool(
		mcp.NewTool("spending_summary",
			mcp.WithDescription("Total outflows per category over the last N days of transactions."),
			mcp.WithNumber("days", mcp.Description("Window length in days (default 30)")),
		),
		mcpSpendingSummary(deps),
	)

	s.AddTool(
		mcp.NewTool("spending_alert",
			mcp.WithDescription("Compare the last 7 days of spending with the 7 days before and flag increases above 20%."),
		),
		mcpSpendingAlert(deps),
	)

	s.AddTool(
		mcp.NewTool("goal_plan",
			mcp.WithDescription("Monthly contribution needed for the profile's goals, or for a given amount and number of months."),
			mcp.WithNumber("target_amount", mcp.Description("Goal amount in BRL; omit to plan the profile's goals")),
			mcp.WithNumber("months", mcp.Description("Months until the deadline; required with target_amount")),
		),
		mcpGoalPlan(deps),
	)

	s.AddTool(
		mcp.NewTool("suitable_products",
			mcp.WithDescription("Catalog products whose risk tier fits the investor profile."),
		),
		mcpSuitableProducts(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"user://profile",
			"Investor Profile",
			mcp.WithResourceDescription("Investor profile loaded from perfil_investidor.json"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"user://recent",
			"Recent Interactions",
			mcp.WithResourceDescription("Last 10 answered queries (short answers only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpAsk(agent *serialAgent, maxLen int) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		query, err := pipeline.Sanitize(raw, maxLen)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(agent.Answer(ctx, query))
	}
}

func mcpSpendingSummary(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		days := req.GetInt("days", facts.DefaultSummaryDays)
		if days <= 0 {
			return mcpError("days must be positive"), nil
		}
		return mcpJSON(facts.SpendingSummary(deps.Agent.Dataset(), days))
	}
}

func mcpSpendingAlert(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcpJSON(facts.SpendingIncrease(deps.Agent.Dataset()))
	}
}

func mcpGoalPlan(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ds := deps.Agent.Dataset()
		ref := deps.Now()

		amount := req.GetFloat("target_amount", 0)
		if amount <= 0 {
			return mcpJSON(goalPlans(ds, ref))
		}
		months := req.GetInt("months", 0)
		if months <= 0 {
			return mcpError("months must be positive when target_amount is given"), nil
		}
		goal := records.Goal{
			Label:        "meta informada",
			TargetAmount: decimal.NewFromFloat(amount),
			TargetDate:   time.Date(ref.Year(), ref.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC),
		}
		return mcpJSON([]facts.Plan{facts.GoalPlan(ds.Profile, goal, ref)})
	}
}

func mcpSuitableProducts(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ds := deps.Agent.Dataset()
		return mcpJSON(facts.SuitableProducts(ds.Profile, ds.Products))
	}
}

func mcpResourceProfile(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Agent.Dataset().Profile)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceRecent(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if deps.Store == nil {
			return nil, errNoStore
		}
		interactions, err := deps.Store.GetRecentInteractions(10)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent interactions: %w", err)
		}

		type interactionSummary struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Query     string `json:"query"`
			ShortText string `json:"short_text"`
		}

		summaries := make([]interactionSummary, len(interactions))
		for i, ix := range interactions {
			query := ix.Query
			if utf8.RuneCountInString(query) > 200 {
				runes := []rune(query)
				query = string(runes[:200]) + "..."
			}
			summaries[i] = interactionSummary{
				ID:        ix.ID,
				CreatedAt: ix.CreatedAt.Format(time.RFC3339),
				Query:     query,
				ShortText: ix.ShortText,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal interactions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
