package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/parley/internal/game"
	"github.com/pavelanni/parley/internal/gateway"
	"github.com/pavelanni/parley/internal/handler"
	appI18n "github.com/pavelanni/parley/internal/i18n"
	"github.com/pavelanni/parley/internal/llm"
	"github.com/pavelanni/parley/internal/store"
	"github.com/pavelanni/parley/internal/telemetry"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "parley",
		Short:   "Conversation practice server with AI roleplay partners",
		Version: version,
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), lockCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "parley.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	addCommonFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringSliceP("scenarios", "s", nil, "Extra scenario JSON files to import (repeatable)")
	f.String("staff-password", "", "Initial staff password (or set PARLEY_STAFF_PASSWORD)")
	f.Bool("ai-enabled", true, "Enable language model calls; when off, games cannot start")
	f.Bool("force-easy-difficulty", false, "Prompt every learner at the easy tier")
	f.StringP("lang", "l", "en", "Default language for API messages (en, ru)")
	f.String("otel-endpoint", "", "OTLP/HTTP collector URL for traces (empty disables tracing)")
	f.Float64("otel-sample-ratio", 1, "Fraction of traces to record")
	f.Duration("shutdown-timeout", 15*time.Second, "Grace period for in-flight requests on shutdown")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every learner's practice history as JSON",
		RunE:  runExport,
	}
	addCommonFlags(cmd)
	cmd.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func lockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "lock on|off",
		Short:     "Pause or resume practice for maintenance",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE:      runLock,
	}
	addCommonFlags(cmd)
	return cmd
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	var h slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	default:
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("PARLEY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("parley")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/parley")
	v.AddConfigPath("/etc/parley")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "parley", telemetry.Config{
		Endpoint:    v.GetString("otel-endpoint"),
		SampleRatio: v.GetFloat64("otel-sample-ratio"),
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("flush traces", "error", err)
		}
	}()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedStaff(ctx, db, v.GetString("staff-password")); err != nil {
		return fmt.Errorf("seed staff: %w", err)
	}
	if err := seedScenarios(ctx, db); err != nil {
		return fmt.Errorf("seed scenarios: %w", err)
	}
	if err := importScenarios(ctx, db, v.GetStringSlice("scenarios")); err != nil {
		return fmt.Errorf("import scenarios: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	llmCfg, err := llm.ConfigFromEnv()
	if err != nil {
		return err
	}
	gw := newGateway(ctx, llmCfg, v.GetBool("ai-enabled"))

	games := game.NewController(db, gw, game.Config{ForceEasy: v.GetBool("force-easy-difficulty")})
	h := handler.New(db, games)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	go purgeTokens(ctx, db, time.Hour)

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"version", version,
			"provider", llmCfg.Provider,
			"ai_enabled", gw.Available(),
			"force_easy", v.GetBool("force-easy-difficulty"),
			"lang", lang,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	stop()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), v.GetDuration("shutdown-timeout"))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newGateway builds the language model gateway. A provider that cannot be
// built leaves the gateway disabled instead of failing startup.
func newGateway(ctx context.Context, cfg llm.Config, enabled bool) *gateway.LLM {
	if !enabled {
		slog.Warn("language model disabled by configuration; games cannot be started")
		return gateway.NewLLM(nil, cfg.Timeout)
	}
	provider, err := llm.NewProvider(ctx, cfg, slog.Default())
	if err != nil {
		slog.Warn("language model unavailable; games cannot be started", "provider", cfg.Provider, "error", err)
		return gateway.NewLLM(nil, cfg.Timeout)
	}
	slog.Info("language model ready", "provider", cfg.Provider, "model", provider.ModelID())
	return gateway.NewLLM(provider, cfg.Timeout)
}

func purgeTokens(ctx context.Context, db *store.Store, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := db.PurgeExpiredTokens(ctx)
			if err != nil {
				slog.Warn("purge expired login tokens", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged expired login tokens", "count", n)
			}
		}
	}
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("export games: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	slog.Info("exported practice history", "users", len(export.Results), "output", outPath)
	return nil
}

func runLock(cmd *cobra.Command, args []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	locked := args[0] == "on"
	if err := db.SetUsageLocked(cmd.Context(), locked); err != nil {
		return fmt.Errorf("set usage lock: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "maintenance lock %s\n", args[0])
	return nil
}
