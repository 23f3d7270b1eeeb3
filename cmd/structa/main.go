package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/waveform80/structa/internal/analyzer"
	"github.com/waveform80/structa/internal/api"
	"github.com/waveform80/structa/internal/config"
	"github.com/waveform80/structa/internal/pattern"
	"github.com/waveform80/structa/internal/render"
	"github.com/waveform80/structa/internal/source"
	"github.com/waveform80/structa/internal/source/tabular"
	"github.com/waveform80/structa/internal/ui"
	"github.com/waveform80/structa/internal/util"
)

// Version information set by ldflags during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var AppConfig *config.Config // Global config instance

var rootCmd = &cobra.Command{
	Use:   "structa",
	Short: "structa analyzes the structure of repetitive data.",
	Long: `structa ingests JSON, CSV, YAML, Parquet, Excel or SQLite data and
emits a compact structural schema describing its repetitive shape.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			util.SetVerbose()
		}
		if cmd.Name() == "init" {
			slog.Debug("Skipping configuration loading for init command")
			return nil
		}

		configPath, _ := cmd.Flags().GetString("config")
		loadedCfg, err := config.Load(configPath, config.DefaultCueSchemaPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && configPath == config.DefaultConfigPath {
				slog.Debug("No configuration file; using defaults")
				AppConfig = config.GetDefaultConfig()
				return nil
			}
			wrappedErr := util.WrapError(err, "Failed to load configuration",
				slog.String("config_path", configPath))
			var unknownFieldErr *config.ErrUnknownField
			if errors.As(err, &unknownFieldErr) {
				util.LogError(util.Logger, util.WrapError(wrappedErr, "Configuration contains unknown fields"))
				os.Exit(78)
			}
			util.LogError(util.Logger, wrappedErr)
			os.Exit(1)
		}
		AppConfig = loadedCfg
		slog.Debug("Configuration loaded and validated successfully")
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		slog.Info("Welcome to structa! Use -h or --help for available commands.")
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new structa configuration file.",
	Long:  `Creates a new structa.yml configuration file in the current directory with default values.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("file")
		if err := config.WriteDefaultConfig(configPath); err != nil {
			wrappedErr := util.WrapError(err, "Failed to write default config",
				slog.String("path", configPath))
			util.LogError(util.Logger, wrappedErr)
			return wrappedErr
		}
		slog.Info("Default configuration written", "path", configPath)
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|glob ...]",
	Short: "Analyze the structure of one or more data files.",
	Long: `Reads each file (or doublestar glob match), infers its structural
schema and prints it. Compatible schemas across multiple files are merged
into one; "-" reads from standard input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AppConfig == nil {
			cfgErr := util.NewError("Configuration not loaded before analyze command")
			util.LogError(util.Logger, cfgErr)
			return cfgErr
		}
		applyAnalyzeFlags(cmd)

		paths, err := expandArgs(args)
		if err != nil {
			return util.WrapError(err, "Failed to expand input arguments")
		}
		if len(paths) == 0 {
			paths = []string{"-"}
		}

		opts, err := AppConfig.AnalyzerOptions(time.Now())
		if err != nil {
			return util.WrapError(err, "Invalid analyzer options")
		}

		var patterns []pattern.Pattern
		var merger *analyzer.Analyzer
		for _, path := range paths {
			// Each source carries its own logger so warnings identify the
			// file they came from.
			ctx := util.WithFields(cmd.Context(), map[string]any{
				"source": path,
				"format": AppConfig.Source.Format,
			})
			opts.OnWarning = func(w analyzer.ValidationWarning) {
				util.FromContext(ctx).Warn("validation warning", "detail", w.String())
			}
			value, err := loadValue(ctx, path)
			if err != nil {
				util.LogError(util.Logger, util.WrapError(err, "Failed to load input",
					slog.String("path", path)))
				continue
			}
			a, err := analyzer.New(opts)
			if err != nil {
				return util.WrapError(err, "Invalid analyzer configuration")
			}
			if merger == nil {
				merger = a
			}
			p, err := analyzeWithProgress(ctx, a, value)
			if err != nil {
				return util.WrapError(err, "Analysis failed", slog.String("path", path))
			}
			patterns = append(patterns, p)
		}
		if len(patterns) == 0 {
			return util.NewError("No inputs could be analyzed")
		}

		merged := merger.Merge(patterns...)
		out := os.Stdout
		if AppConfig.Output.File != "" {
			f, err := os.Create(AppConfig.Output.File)
			if err != nil {
				return util.WrapError(err, "Failed to create output file")
			}
			defer f.Close()
			out = f
		}
		for _, p := range merged {
			text, err := render.Render(p, render.Format(AppConfig.Output.Format))
			if err != nil {
				return util.WrapError(err, "Rendering failed")
			}
			fmt.Fprint(out, text)
		}
		return nil
	},
}

// applyAnalyzeFlags copies any explicitly set analyze flags over the
// loaded configuration.
func applyAnalyzeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("format") {
		AppConfig.Source.Format, _ = flags.GetString("format")
	}
	if flags.Changed("output") {
		AppConfig.Output.Format, _ = flags.GetString("output")
	}
	if flags.Changed("bad-threshold") {
		AppConfig.Analyzer.BadThreshold, _ = flags.GetString("bad-threshold")
	}
	if flags.Changed("empty-threshold") {
		AppConfig.Analyzer.EmptyThreshold, _ = flags.GetString("empty-threshold")
	}
	if flags.Changed("field-threshold") {
		AppConfig.Analyzer.FieldThreshold, _ = flags.GetInt("field-threshold")
	}
	if flags.Changed("max-numeric-len") {
		AppConfig.Analyzer.MaxNumericLen, _ = flags.GetInt("max-numeric-len")
	}
	if flags.Changed("strip-whitespace") {
		AppConfig.Analyzer.StripWhitespace, _ = flags.GetBool("strip-whitespace")
	}
	if flags.Changed("min-timestamp") {
		AppConfig.Analyzer.MinTimestamp, _ = flags.GetString("min-timestamp")
	}
	if flags.Changed("max-timestamp") {
		AppConfig.Analyzer.MaxTimestamp, _ = flags.GetString("max-timestamp")
	}
	if flags.Changed("progress") {
		show, _ := flags.GetBool("progress")
		AppConfig.Output.ShowProgress = show
		AppConfig.Analyzer.TrackProgress = show
	}
}

// expandArgs resolves doublestar globs into concrete paths; non-glob
// arguments pass through so missing files are reported per file.
func expandArgs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		if arg == "-" || !strings.ContainsAny(arg, "*?[{") {
			paths = append(paths, arg)
			continue
		}
		base, pat := doublestar.SplitPattern(filepath.ToSlash(arg))
		matches, err := doublestar.Glob(os.DirFS(base), pat)
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", arg, err)
		}
		for _, m := range matches {
			paths = append(paths, filepath.Join(base, m))
		}
	}
	return paths, nil
}

// loadValue reads one input into the analyzer's value domain, using a
// tabular loader when the extension calls for one and format sniffing
// otherwise.
func loadValue(ctx context.Context, path string) (any, error) {
	if path != "-" {
		if loader, ok := tabular.ForPath(AppConfig.TabularOptions(), path); ok {
			return loader.Load(ctx, path)
		}
	}
	var reader *os.File
	if path == "-" {
		reader = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		reader = f
	}
	src := source.New(reader, AppConfig.SourceOptions(func(msg string) {
		util.FromContext(ctx).Warn("source warning", "detail", msg)
	}))
	return src.Data()
}

// analyzeWithProgress runs the analysis, driving a progress bar on stderr
// while it is in flight.
func analyzeWithProgress(ctx context.Context, a *analyzer.Analyzer, value any) (pattern.Pattern, error) {
	if !AppConfig.Output.ShowProgress || !AppConfig.Analyzer.TrackProgress {
		return a.AnalyzeContext(ctx, value)
	}
	bar := ui.NewProgress(os.Stderr)
	done := make(chan struct{})
	go bar.Watch(a.Progress, done)
	p, err := a.AnalyzeContext(ctx, value)
	close(done)
	return p, err
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the structa analysis server.",
	Long:  `Starts the HTTP server exposing structural analysis over a JSON API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AppConfig == nil {
			cfgErr := util.NewError("Configuration not loaded before server command")
			util.LogError(util.Logger, cfgErr)
			return cfgErr
		}

		slog.Info("Starting structa server...",
			"host", AppConfig.Server.Host, "port", AppConfig.Server.Port)

		server := api.NewServer(AppConfig)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		go func() {
			<-sigChan
			slog.Info("Received shutdown signal, stopping server...")
			cancel()
		}()

		if err := server.Start(ctx); err != nil {
			wrappedErr := util.WrapError(err, "Server failed")
			util.LogError(util.Logger, wrappedErr)
			return wrappedErr
		}

		slog.Info("Server stopped gracefully")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including build commit and date.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("structa %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", date)
		fmt.Printf("  Go version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "Path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	initCmd.Flags().StringP("file", "f", config.DefaultConfigPath, "Path to write the configuration file")

	analyzeCmd.Flags().StringP("format", "f", "auto", "Input format (auto|json|csv|yaml)")
	analyzeCmd.Flags().StringP("output", "o", "text", "Output format (text|json|yaml)")
	analyzeCmd.Flags().String("bad-threshold", "", "Max share of failed conversions (e.g. 2/100)")
	analyzeCmd.Flags().String("empty-threshold", "", "Empty-string share short-circuiting to str")
	analyzeCmd.Flags().Int("field-threshold", 20, "Max distinct keys treated as a choice set")
	analyzeCmd.Flags().Int("max-numeric-len", 30, "Max string length for numeric inference")
	analyzeCmd.Flags().Bool("strip-whitespace", true, "Strip whitespace before matching strings")
	analyzeCmd.Flags().String("min-timestamp", "", "Timestamp window start (duration or instant)")
	analyzeCmd.Flags().String("max-timestamp", "", "Timestamp window end (duration or instant)")
	analyzeCmd.Flags().Bool("progress", true, "Show a progress bar on stderr")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if _, ok := err.(*util.StructaError); !ok {
			err = util.WrapError(err, "Command execution failed")
		}
		util.LogError(util.Logger, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
