package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wupmaz/labordash/internal/catalog"
	"github.com/wupmaz/labordash/internal/chart"
	"github.com/wupmaz/labordash/internal/config"
	"github.com/wupmaz/labordash/internal/database"
	"github.com/wupmaz/labordash/internal/dataset"
	"github.com/wupmaz/labordash/internal/export"
	"github.com/wupmaz/labordash/internal/logging"
	"github.com/wupmaz/labordash/internal/pipeline"
	"github.com/wupmaz/labordash/internal/server"
)

var version = "dev"

var (
	verbose    bool
	logLevel   string
	configPath string
	cfg        *config.Config
	logger     = zap.NewNop()
)

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "labordash",
	Short:   "Labour-market dashboard for the mazowieckie province",
	Long:    "labordash turns the monthly labour-office spreadsheets (group layoffs, registered unemployment, unemployment rates) into clean datasets, CSV exports, charts and a local dashboard.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}

		level := logLevel
		if verbose && level == "" {
			level = "debug"
		}
		logger, err = logging.New(cfg.Logging, level)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(warmCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig resolves the config file. Without an explicit path and without
// any file on disk the embedded defaults are used, so environment variables
// alone can configure a run.
func loadConfig() (*config.Config, error) {
	path, err := config.ResolveConfigPath(configPath)
	if err != nil {
		if configPath != "" {
			return nil, err
		}
		c, err := config.Default()
		if err != nil {
			return nil, fmt.Errorf("loading default config: %w", err)
		}
		return c, nil
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return c, nil
}

func openDB() (*database.DB, error) {
	return database.Open(cfg.DBPath(), logger)
}

func newPipeline(db *database.DB) (*pipeline.Pipeline, error) {
	return pipeline.New(cfg, db, logger)
}

// signalContext is cancelled on Ctrl+C so long runs stop between files.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("labordash", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/labordash/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point data.layoffs_dir, data.unemployment_dir and data.rates_dir at the spreadsheet folders.")
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cfg.YAML()
		if err != nil {
			return fmt.Errorf("rendering config: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show input directories, cache and last runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		ctx := cmd.Context()

		fmt.Println("Inputs:")
		for _, kind := range dataset.Kinds {
			dir := cfg.SourceDir(kind)
			files := catalog.Build(dir, logger)
			span := ""
			if len(files) > 0 {
				span = fmt.Sprintf(", %s to %s", files[0].Label, files[len(files)-1].Label)
			}
			fmt.Printf("  %-13s %s (%d files%s)\n", kind, dir, len(files), span)
		}

		counts, err := db.ParsedCounts(ctx)
		if err != nil {
			return fmt.Errorf("reading cache: %w", err)
		}
		fmt.Printf("\nCache: %s\n", db.Path())
		if !cfg.Cache.Disk {
			fmt.Println("  disabled (cache.disk: false)")
		}
		for _, kind := range dataset.Kinds {
			fmt.Printf("  %-13s %d parsed files\n", kind, counts[kind])
		}

		runs, err := db.LatestRunReports(ctx)
		if err != nil {
			return fmt.Errorf("reading run reports: %w", err)
		}
		fmt.Println("\nLast runs:")
		if len(runs) == 0 {
			fmt.Println("  none, run 'labordash warm'")
		}
		for _, r := range runs {
			fmt.Printf("  %-13s %s  %d files, %d records, %d skipped\n",
				r.Dataset, r.Finished.Local().Format("2006-01-02 15:04"), r.Files, r.Records, r.Skipped)
		}
		return nil
	},
}

// --- warm command ---

var dryRun bool

var warmCmd = &cobra.Command{
	Use:     "warm",
	Aliases: []string{"run"},
	Short:   "Parse every input directory and fill the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		if dryRun {
			for _, kind := range dataset.Kinds {
				files := catalog.Build(cfg.SourceDir(kind), logger)
				fmt.Printf("\n%s: %d files\n", kind, len(files))
				for _, f := range files {
					fmt.Printf("  %-16s %s\n", f.Label, f.Name())
				}
			}
			return nil
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe, err := newPipeline(db)
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		result := pipe.Run(ctx)
		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}
		if result.Failed() {
			return errors.New("some steps failed")
		}
		fmt.Println("\nDone. Run 'labordash serve' to open the dashboard.")
		return nil
	},
}

func init() {
	warmCmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the catalogued files without parsing them")
}

// --- export command ---

var exportDir string

var exportCmd = &cobra.Command{
	Use:       "export [dataset...]",
	Short:     "Write datasets as CSV files",
	ValidArgs: []string{string(dataset.Layoffs), string(dataset.Unemployment), string(dataset.Rates)},
	Args:      cobra.OnlyValidArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := dataset.Kinds
		if len(args) > 0 {
			kinds = nil
			for _, a := range args {
				k, _ := dataset.ParseKind(a)
				kinds = append(kinds, k)
			}
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe, err := newPipeline(db)
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()
		for _, step := range pipe.Run(ctx).Steps {
			if step.Err != nil {
				fmt.Printf("Warning: %s: %v\n", step.Name, step.Err)
			}
		}

		if err := os.MkdirAll(exportDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		opts := export.Options{BOM: cfg.Output.CSVBOM}
		for _, kind := range kinds {
			path := filepath.Join(exportDir, string(kind)+".csv")
			if err := writeFile(path, func(f *os.File) error { return pipe.Export(f, kind, opts) }); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", ".", "Output directory")
}

// --- chart command ---

var (
	chartKey string
	chartOut string
)

var chartCmd = &cobra.Command{
	Use:       "chart <name>",
	Short:     "Render a chart as PNG (layoffs, stock, rate)",
	ValidArgs: pipeline.ChartNames,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe, err := newPipeline(db)
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()
		pipe.Run(ctx)

		spec, err := pipe.ChartSpec(args[0], chartKey)
		if err != nil {
			return err
		}
		out := chartOut
		if out == "" {
			out = args[0] + ".png"
		}
		if err := writeFile(out, func(f *os.File) error { return chart.PNG(f, spec) }); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", out)
		return nil
	},
}

func init() {
	chartCmd.Flags().StringVarP(&chartKey, "key", "k", "", "Metric (layoffs), unit code (rate) or unit name (stock)")
	chartCmd.Flags().StringVarP(&chartOut, "out", "o", "", "Output file (default <name>.png)")
}

// --- cache command ---

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the parsed-file cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached parse result",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearParsed(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d cached files\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}

// --- serve command ---

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe, err := newPipeline(db)
		if err != nil {
			return err
		}
		srv, err := server.New(pipe, db, logger)
		if err != nil {
			return err
		}

		host, port := cfg.Server.Host, cfg.Server.Port
		if serveHost != "" {
			host = serveHost
		}
		if servePort != 0 {
			port = servePort
		}
		addr := net.JoinHostPort(host, strconv.Itoa(port))

		ctx, stop := signalContext()
		defer stop()

		fmt.Printf("Starting dashboard at http://%s\n", addr)
		fmt.Println("Press Ctrl+C to stop")
		if err := server.Serve(ctx, addr, srv, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind (default server.host)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default server.port)")
}

// writeFile creates path and closes it, keeping the first error.
func writeFile(path string, write func(*os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
