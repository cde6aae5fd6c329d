package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"

	"github.com/kalambet/moara/internal/api"
	"github.com/kalambet/moara/internal/config"
	"github.com/kalambet/moara/internal/engine"
	"github.com/kalambet/moara/internal/records"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API (foreground)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show moara system status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdin/stdout")
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "moara version %s\n", version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	if err := newAPIClient(cfg).health(ctx); err == nil {
		printWarning("moara is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}

	printStep("loading records from %s", cfg.Data.Dir)
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()
	slog.Info("agent ready",
		"mode", cfg.Generation.Mode, "backend", a.backend.Name(), "classifier", cfg.Classifier.Backend)

	if cfg.Server.APIToken == "" {
		slog.Warn("server.api_token not set, /v1 routes are unauthenticated")
	}

	deps := api.Deps{
		Agent:          a.agent,
		Backend:        a.backend,
		Token:          cfg.Server.APIToken,
		MaxQueryLength: cfg.Input.MaxLength,
	}
	if a.store != nil {
		deps.Store = a.store
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if cfg.Server.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConns)
	}

	srv := &http.Server{
		Handler:           api.NewHandler(deps),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	if withMCP {
		stdioSrv := server.NewStdioServer(api.NewMCPServer(deps, version))
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "moara listening on %s\n", addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func showStatus(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client := newAPIClient(cfg)
	client.httpClient.Timeout = 2 * time.Second
	if err := client.health(ctx); err != nil {
		printStatus("Server", "stopped")
	} else {
		printStatus("Server", "running on port %d", cfg.Server.Port)
	}

	printStatus("Mode", "%s (classifier: %s)", cfg.Generation.Mode, cfg.Classifier.Backend)

	backend, err := engine.Detect(ctx, detectConfig(cfg))
	if err != nil {
		printStatus("Backend", "error: %v", err)
	} else {
		statusCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		report := engine.Status(statusCtx, backend)
		cancel()
		state := colorize(colorGreen, "ready")
		if !report.Ready {
			state = colorize(colorYellow, "not ready")
		}
		if report.Detail != "" {
			state += " (" + report.Detail + ")"
		}
		printStatus("Backend", "%s %s", report.Provider, state)
	}

	ds, err := records.Load(ctx, cfg.Data.Dir)
	if err != nil {
		printStatus("Records", "%s", colorize(colorRed, err.Error()))
	} else {
		printStatus("Records", "%d transactions, %d history entries, %d products, %d goals",
			len(ds.Transactions), len(ds.History), len(ds.Products), len(ds.Profile.Goals))
	}

	printStatus("Data dir", "%s", cfg.Data.Dir)
	printStatus("Storage dir", "%s", cfg.Storage.DataDir)
	printStatus("Config file", "%s", config.FilePath())
	return nil
}
