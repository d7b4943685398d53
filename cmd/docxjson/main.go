package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/docxjson"
	"github.com/fwojciec/docxjson/convert"
	"github.com/fwojciec/docxjson/etree"
	"github.com/fwojciec/docxjson/fs"
	"github.com/fwojciec/docxjson/goquery"
	docxhttp "github.com/fwojciec/docxjson/http"
	"github.com/fwojciec/docxjson/prometheus"
	docxslog "github.com/fwojciec/docxjson/slog"
	"github.com/fwojciec/docxjson/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Services for end-to-end testing.
	ConversionService docxjson.ConversionService
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// Initialize dependencies struct for Kong binding
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("docxjson"),
		kong.Description("Extract the tables of Word documents as JSON."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'docxjson --help' to see available commands")
	}

	if cmd := args[0]; cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := kongCtx.Selected().Name

	cfg := DefaultConfig()
	if cli.Config != "" {
		if cfg, err = LoadConfig(cli.Config); err != nil {
			return err
		}
	}
	applyFlags(cfg, cli)
	deps.Config = cfg

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: parseLevel(cli.LogLevel)}))
	deps.Logger = logger

	// Open the database only for commands that read or write history.
	needsDB := cmd != "convert" || cli.Convert.Record
	if needsDB {
		if m.ConversionService == nil {
			m.DB = sqlite.NewDB(m.DBPath)
			if err := m.DB.Open(); err != nil {
				fmt.Fprintf(stderr, "Hint: Set DOCXJSON_DB to use a different database path\n")
				return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
			}
			defer m.Close()
			m.ConversionService = sqlite.NewConversionService(m.DB)
		}
		deps.Conversions = m.ConversionService
	}

	service := &convert.Service{
		Renderer:        etree.NewRenderer(),
		Extractor:       goquery.NewTableExtractor(),
		History:         deps.Conversions,
		StringsToRemove: cfg.StringsToRemove,
		IncludeCellHTML: cfg.IncludeCellHTML,
		Logger:          logger,
	}
	deps.HTML = service
	deps.Converter = docxslog.NewLoggingConverter(service, logger)

	switch cmd {
	case "serve":
		metrics := prometheus.NewMetrics()
		fetcher := docxhttp.NewBlobFetcher(append(cfg.Fetch.FetchOptions(), docxhttp.WithLogger(logger))...)
		deps.Server = &docxhttp.Server{
			Converter:      prometheus.NewInstrumentedConverter(deps.Converter, metrics),
			Fetcher:        docxslog.NewLoggingBlobFetcher(fetcher, logger),
			MetricsHandler: metrics.Handler(),
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			Logger:         logger,
		}

	case "watch":
		store := fs.NewBlobStore(cfg.Storage.Root)
		deps.Trigger = &convert.BlobTrigger{
			Store:           docxslog.NewLoggingBlobStore(store, logger),
			Converter:       deps.Converter,
			History:         deps.Conversions,
			InputContainer:  cfg.Storage.InputContainer,
			OutputContainer: cfg.Storage.OutputContainer,
			Interval:        cfg.Watch.Interval,
			Concurrency:     cfg.Watch.Concurrency,
			MaxAttempts:     cfg.Watch.MaxAttempts,
			Logger:          logger,
		}
	}

	return kongCtx.Run(deps)
}

// applyFlags lets command flags override the configuration file.
func applyFlags(cfg *Config, cli *CLI) {
	if cli.Convert.IncludeCellHTML {
		cfg.IncludeCellHTML = true
	}
	if cli.Serve.Addr != "" {
		cfg.Server.Addr = cli.Serve.Addr
	}
	if cli.Watch.Interval > 0 {
		cfg.Watch.Interval = cli.Watch.Interval
	}
	if cli.Watch.Concurrency > 0 {
		cfg.Watch.Concurrency = cli.Watch.Concurrency
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func defaultDBPath() string {
	if path := os.Getenv("DOCXJSON_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "docxjson.db"
	}
	dir := filepath.Join(home, ".docxjson")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "docxjson.db")
}
