package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"xstream-backend/cmd/xstream/globals"
	"xstream-backend/internal/components/telemetry"
	"xstream-backend/internal/normalize"
	"xstream-backend/internal/scrapers/x"

	"github.com/spf13/cobra"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

var (
	configPath  string
	limit       int
	startCursor string
	format      string
	dbPath      string
	dumpDir     string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "xstream",
	Short: "xstream is a CLI for walking and normalizing X GraphQL timelines.",

	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "xstream.json5", "The config file, parent directories are searched too.")
	flags.IntVarP(&limit, "limit", "n", 0, "The maximum number of items to emit, 0 means no limit.")
	flags.StringVar(&startCursor, "cursor", "", "Start from the page a previous walk printed as its next page.")
	flags.StringVarP(&format, "format", "f", formatJSON, "The output format: json or table.")
	flags.StringVar(&dbPath, "db", "", "Save the results to a sqlite file or libsql url.")
	flags.StringVar(&dumpDir, "dump-dir", "", "Write every raw GraphQL response to this directory.")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log debug reports.")
}

func setup(cmd *cobra.Command, args []string) error {
	if format != formatJSON && format != formatTable {
		return fmt.Errorf("unknown format %q", format)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if dumpDir != "" {
		cfg.DumpDir = dumpDir
	}

	level := cfg.slogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	tel := telemetry.SlogAPI{Logger: logger}

	ctx := cmd.Context()
	otel, err := telemetry.SetupOtel(ctx, "xstream", cfg.Otlp)
	if err != nil {
		return fmt.Errorf("setup otel: %w", err)
	}
	if cfg.PerfStats {
		telemetry.InstrumentPerfStats(ctx, tel)
	}

	client, err := x.NewClient(cfg.clientOptions(), tel)
	if err != nil {
		return err
	}
	normalizer := normalize.New(tel, normalize.Options{MaxDepth: cfg.MaxDepth})

	cmd.SetContext(globals.Set(ctx, &globals.Value{
		API:                x.NewAPI(client, normalizer, tel),
		Tel:                tel,
		Otel:               otel,
		Limit:              limit,
		EmptyPageTolerance: cfg.EmptyPageTolerance,
		StartCursor:        startCursor,
		Format:             format,
		DB:                 dbPath,
	}))
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	return globals.Get(cmd.Context()).Otel.Shutdown(ctx)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
