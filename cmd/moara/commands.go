package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/moara/internal/config"
	"github.com/kalambet/moara/internal/facts"
	"github.com/kalambet/moara/internal/normalize"
	"github.com/kalambet/moara/internal/pipeline"
	"github.com/kalambet/moara/internal/records"
	"github.com/kalambet/moara/internal/storage"
)

// answerFunc answers one sanitized query, in process or through the server.
type answerFunc func(ctx context.Context, query string) (pipeline.Reply, error)

func newAnswerer(ctx context.Context, cfg config.Config, remote bool) (answerFunc, func(), error) {
	if remote {
		client := newAPIClient(cfg)
		return client.ask, func() {}, nil
	}
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return nil, nil, err
	}
	answer := func(ctx context.Context, query string) (pipeline.Reply, error) {
		return a.agent.Answer(ctx, query), nil
	}
	return answer, a.Close, nil
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question about your finances",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, _ := cmd.Flags().GetBool("server")
		detail, _ := cmd.Flags().GetBool("detail")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		query, err := pipeline.Sanitize(strings.Join(args, " "), cfg.Input.MaxLength)
		if err != nil {
			return err
		}

		answer, closeFn, err := newAnswerer(cmd.Context(), cfg, remote)
		if err != nil {
			return err
		}
		defer closeFn()

		reply, err := answer(cmd.Context(), query)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), reply)
		}
		printReply(cmd.OutOrStdout(), reply, detail)
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("server", false, "ask a running moara serve instead of answering in process")
	askCmd.Flags().Bool("detail", false, "print the detailed answer")
	askCmd.Flags().Bool("json", false, "print the reply as JSON")
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, _ := cmd.Flags().GetBool("server")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		answer, closeFn, err := newAnswerer(cmd.Context(), cfg, remote)
		if err != nil {
			return err
		}
		defer closeFn()

		fmt.Fprintln(cmd.ErrOrStderr(), colorize(colorDim, `Digite sua mensagem. "detalhes" mostra a resposta completa, "sair" encerra.`))
		return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), answer, cfg.Input.MaxLength)
	},
}

func init() {
	chatCmd.Flags().Bool("server", false, "talk to a running moara serve instead of answering in process")
}

var (
	chatExitWords   = []string{"sair", "exit", "quit"}
	chatDetailWords = []string{"detalhes", "ver detalhes", "mais"}
)

// runChat reads one query per line until EOF or an exit word. A detail word
// prints the full text of the previous reply.
func runChat(ctx context.Context, in io.Reader, out io.Writer, answer answerFunc, maxLen int) error {
	sc := bufio.NewScanner(in)
	var last *pipeline.Reply
	for {
		fmt.Fprint(out, colorize(colorBold, "> "))
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		cmdWord := normalize.Fold(line)
		switch {
		case oneOf(cmdWord, chatExitWords):
			return nil
		case oneOf(cmdWord, chatDetailWords):
			if last == nil {
				fmt.Fprintln(out, "Nenhuma resposta anterior.")
				continue
			}
			printReply(out, *last, true)
			continue
		}

		query, err := pipeline.Sanitize(line, maxLen)
		if err != nil {
			fmt.Fprintln(out, colorize(colorYellow, err.Error()))
			continue
		}
		reply, err := answer(ctx, query)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintln(out, colorize(colorRed, err.Error()))
			continue
		}
		printReply(out, reply, false)
		if reply.HasDetail() {
			fmt.Fprintln(out, colorize(colorDim, `(digite "detalhes" para ver mais)`))
		}
		last = &reply
	}
}

func oneOf(s string, words []string) bool {
	for _, w := range words {
		if s == w {
			return true
		}
	}
	return false
}

// --- facts ---

var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Print computed facts as JSON",
}

func withDataset(fn func(cmd *cobra.Command, ds *records.Dataset) any) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ds, err := records.Load(cmd.Context(), cfg.Data.Dir)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), fn(cmd, ds))
	}
}

var factsSpendingCmd = &cobra.Command{
	Use:   "spending",
	Short: "Spending by category over a window ending at the latest transaction",
	Args:  cobra.NoArgs,
	RunE: withDataset(func(cmd *cobra.Command, ds *records.Dataset) any {
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			days = facts.DefaultSummaryDays
		}
		return facts.SpendingSummary(ds, days)
	}),
}

var factsAlertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Week-over-week spending increase",
	Args:  cobra.NoArgs,
	RunE: withDataset(func(_ *cobra.Command, ds *records.Dataset) any {
		return facts.SpendingIncrease(ds)
	}),
}

var factsRecurringCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Categories with repeated expenses",
	Args:  cobra.NoArgs,
	RunE: withDataset(func(_ *cobra.Command, ds *records.Dataset) any {
		return facts.RecurringExpenses(ds)
	}),
}

var factsGoalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Monthly contribution needed for each goal",
	Args:  cobra.NoArgs,
	RunE: withDataset(func(_ *cobra.Command, ds *records.Dataset) any {
		now := time.Now()
		plans := make([]facts.Plan, 0, len(ds.Profile.Goals))
		for _, g := range ds.Profile.Goals {
			plans = append(plans, facts.GoalPlan(ds.Profile, g, now))
		}
		return plans
	}),
}

var factsProductsCmd = &cobra.Command{
	Use:   "products",
	Short: "Catalog products compatible with the risk profile",
	Args:  cobra.NoArgs,
	RunE: withDataset(func(_ *cobra.Command, ds *records.Dataset) any {
		return facts.SuitableProducts(ds.Profile, ds.Products)
	}),
}

func init() {
	factsSpendingCmd.Flags().Int("days", facts.DefaultSummaryDays, "window length in days")
	factsCmd.AddCommand(factsSpendingCmd)
	factsCmd.AddCommand(factsAlertCmd)
	factsCmd.AddCommand(factsRecurringCmd)
	factsCmd.AddCommand(factsGoalsCmd)
	factsCmd.AddCommand(factsProductsCmd)
}

// --- interactions ---

var interactionsCmd = &cobra.Command{
	Use:   "interactions",
	Short: "Browse logged answers and rate them",
}

func withStore(fn func(cmd *cobra.Command, args []string, store *storage.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()
		return fn(cmd, args, store)
	}
}

var interactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent interactions",
	Args:  cobra.NoArgs,
	RunE: withStore(func(cmd *cobra.Command, _ []string, store *storage.Store) error {
		limit, _ := cmd.Flags().GetInt("limit")
		list, err := store.GetRecentInteractions(limit)
		if err != nil {
			return err
		}
		printInteractions(cmd.OutOrStdout(), list)
		return nil
	}),
}

func printInteractions(w io.Writer, list []storage.Interaction) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No interactions found.")
		return
	}
	for _, ix := range list {
		query := []rune(ix.Query)
		if len(query) > 80 {
			query = append(query[:80], []rune("...")...)
		}
		score := ""
		if ix.FeedbackScore > 0 {
			score = fmt.Sprintf("  [%d/5]", ix.FeedbackScore)
		}
		fmt.Fprintf(w, "%s  %s  %-15s  %s%s\n",
			colorize(colorCyan, shortID(ix.ID)),
			ix.CreatedAt.Local().Format("2006-01-02 15:04"),
			ix.Classification,
			string(query),
			score,
		)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var interactionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single interaction",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(cmd *cobra.Command, args []string, store *storage.Store) error {
		ix, err := store.GetInteraction(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), ix)
	}),
}

var interactionsFeedbackCmd = &cobra.Command{
	Use:   "feedback <id> <score>",
	Short: "Rate an answer from 1 to 5",
	Args:  cobra.ExactArgs(2),
	RunE: withStore(func(cmd *cobra.Command, args []string, store *storage.Store) error {
		var score int
		if _, err := fmt.Sscan(args[1], &score); err != nil || score < 1 || score > 5 {
			return fmt.Errorf("score must be an integer from 1 to 5, got %q", args[1])
		}
		notes, _ := cmd.Flags().GetString("notes")
		if err := store.UpdateFeedback(args[0], score, notes); err != nil {
			return err
		}
		printSuccess("Recorded feedback %d/5 for %s", score, shortID(args[0]))
		return nil
	}),
}

func init() {
	interactionsListCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
	interactionsFeedbackCmd.Flags().String("notes", "", "free-form comment")
	interactionsCmd.AddCommand(interactionsListCmd)
	interactionsCmd.AddCommand(interactionsShowCmd)
	interactionsCmd.AddCommand(interactionsFeedbackCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s  %s\n",
				colorize(colorBold, k.Key), k.Value, colorize(colorDim, "("+k.EnvVar+")"))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}

		printSuccess("Set %s", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
