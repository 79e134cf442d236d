package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rpgo/retirement-simulator/internal/calculation"
	"github.com/rpgo/retirement-simulator/internal/config"
	"github.com/rpgo/retirement-simulator/internal/domain"
	"github.com/rpgo/retirement-simulator/internal/output"
	"github.com/rpgo/retirement-simulator/internal/server"
	"github.com/rpgo/retirement-simulator/pkg/decimal"
)

var (
	settings config.Settings
	logger   *logrus.Logger

	logLevel  string
	logFormat string
	dataPath  string
	workers   int
)

var rootCmd = &cobra.Command{
	Use:   "rpsim",
	Short: "Retirement portfolio simulator",
	Long: `Simulates month-by-month retirement portfolio drawdown under configurable
withdrawal and drawdown strategies, either along a single path or as a
historical-resampling Monte Carlo study.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("log-level") {
			settings.LogLevel = logLevel
		}
		if flags.Changed("log-format") {
			settings.LogFormat = logFormat
		}
		if flags.Changed("data") {
			settings.HistoricalDataPath = dataPath
		}
		if flags.Changed("workers") {
			settings.Workers = workers
		}

		var err error
		logger, err = settings.NewLogger(os.Stderr)
		return err
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate [config-file]",
	Short: "Run the simulation a configuration file describes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		outDir, _ := cmd.Flags().GetString("output")
		deterministic, _ := cmd.Flags().GetBool("deterministic")

		cfg, err := config.NewInputParser().LoadFromFile(args[0])
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("seed") {
			seed, _ := cmd.Flags().GetInt64("seed")
			cfg.Portfolio.Assumptions.Seed = &seed
			if cfg.MonteCarlo != nil {
				cfg.MonteCarlo.Seed = &seed
			}
		}
		if err := applySpendingFlags(cmd, cfg); err != nil {
			return err
		}
		if err := config.NewInputParser().ValidateConfiguration(cfg); err != nil {
			return err
		}

		engine := newEngine()
		var res domain.SimulationResult
		if deterministic {
			var single *domain.SinglePathResult
			single, err = engine.RunDeterministic(cmd.Context(), cfg, "")
			res = domain.SimulationResult{SinglePath: single}
		} else {
			res, err = engine.Run(cmd.Context(), cfg, "")
		}
		if err != nil {
			return fmt.Errorf("simulation failed: %w", err)
		}
		return emit(&output.Report{Result: res, Config: cfg}, format, outDir)
	},
}

var monteCarloCmd = &cobra.Command{
	Use:   "montecarlo [config-file]",
	Short: "Run a historical-resampling Monte Carlo study",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		format, _ := flags.GetString("format")
		outDir, _ := flags.GetString("output")

		parser := config.NewInputParser()
		cfg, err := parser.LoadFromFile(args[0])
		if err != nil {
			return err
		}
		cfg.Mode = domain.ModeMonteCarlo
		if cfg.MonteCarlo == nil {
			cfg.MonteCarlo = &domain.MonteCarloSettings{Iterations: settings.DefaultIterations, Era: domain.EraFullHistory}
		}
		if flags.Changed("iterations") {
			cfg.MonteCarlo.Iterations, _ = flags.GetInt("iterations")
		}
		if flags.Changed("era") {
			era, _ := flags.GetString("era")
			cfg.MonteCarlo.Era = domain.HistoricalEra(era)
		}
		if flags.Changed("seed") {
			seed, _ := flags.GetInt64("seed")
			cfg.MonteCarlo.Seed = &seed
		}
		if err := applySpendingFlags(cmd, cfg); err != nil {
			return err
		}
		if err := parser.ValidateConfiguration(cfg); err != nil {
			return err
		}

		logger.Infof("running %d iterations over %s", cfg.MonteCarlo.Iterations, cfg.MonteCarlo.Era)
		res, err := newEngine().Run(cmd.Context(), cfg, "")
		if err != nil {
			return fmt.Errorf("monte carlo simulation failed: %w", err)
		}
		return emit(&output.Report{Result: res, Config: cfg}, format, outDir)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := settings.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.New(newEngine(), logger).ListenAndServe(ctx, addr)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate a configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewInputParser().LoadFromFile(args[0])
		if err != nil {
			return err
		}
		mode := cfg.Mode
		if mode == "" {
			mode = domain.ModeManual
		}
		fmt.Printf("%s is valid (%s mode, %d months from %s)\n", args[0], mode, cfg.Calendar.DurationMonths, cfg.Calendar.StartMonth)
		return nil
	},
}

var exampleConfigCmd = &cobra.Command{
	Use:   "example-config [file]",
	Short: "Write an example configuration (YAML, or JSON for a .json file)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.NewInputParser().CreateExampleConfiguration()
		if len(args) == 0 {
			return yaml.NewEncoder(os.Stdout).Encode(cfg)
		}
		if err := output.SaveConfiguration(cfg, args[0]); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
		fmt.Printf("Example configuration written to %s\n", args[0])
		return nil
	},
}

var erasCmd = &cobra.Command{
	Use:   "eras",
	Short: "List the historical eras available to Monte Carlo runs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, era := range domain.HistoricalEras {
			r := calculation.RangeForEra(era)
			fmt.Printf("%-14s %d-%d\n", era, r.StartYear, r.EndYear)
		}
	},
}

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List output formats and their aliases",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Formats: " + strings.Join(output.AvailableFormatterNames(), ", "))
		fmt.Println("Aliases: " + strings.Join(output.AvailableFormatAliases(), ", "))
	},
}

// applySpendingFlags overrides the spending bounds with dollar amounts given
// on the command line, e.g. --min-spend 3500 or --max-spend 8000.50.
func applySpendingFlags(cmd *cobra.Command, cfg *domain.SimulationConfig) error {
	for _, f := range []struct {
		name   string
		target *domain.Money
	}{
		{"min-spend", &cfg.Spending.MonthlyMinSpend},
		{"max-spend", &cfg.Spending.MonthlyMaxSpend},
	} {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		raw, _ := cmd.Flags().GetString(f.name)
		amount, err := decimal.ParseDollars(raw)
		if err != nil {
			return fmt.Errorf("invalid --%s %q: %w", f.name, raw, err)
		}
		*f.target = amount
	}
	return nil
}

func newEngine() *calculation.SimulationEngine {
	engine := calculation.NewSimulationEngine(calculation.NewHistoricalDataManager(settings.HistoricalDataPath))
	engine.SetLogger(logger)
	if settings.Workers > 0 {
		engine.MonteCarlo.SetWorkers(settings.Workers)
	}
	return engine
}

// emit prints the report to stdout, or writes report files into outDir.
func emit(report *output.Report, format, outDir string) error {
	if outDir == "" {
		b, err := output.Render(report, format)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(b)
		return err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	files, err := output.GenerateReport(report, format, outDir)
	if err != nil {
		return err
	}
	for _, f := range files {
		logger.Infof("report written to %s", f)
	}
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "text", "Log format (text or json)")
	pf.StringVar(&dataPath, "data", "data/historical-returns.csv", "Path to the historical monthly returns CSV")
	pf.IntVar(&workers, "workers", 0, "Monte Carlo worker count (0 uses all CPUs)")

	formatHelp := "Output format: " + strings.Join(output.AvailableFormatterNames(), ", ") + " (or an alias)"
	for _, cmd := range []*cobra.Command{simulateCmd, monteCarloCmd} {
		cmd.Flags().StringP("format", "f", "console", formatHelp)
		cmd.Flags().StringP("output", "o", "", "Write report files to this directory instead of stdout (format \"all\" writes several)")
		cmd.Flags().Int64("seed", 0, "Override the random seed")
		addSpendingFlags(cmd)
	}
	simulateCmd.Flags().Bool("deterministic", false, "Use expected returns every month instead of random draws")
	monteCarloCmd.Flags().IntP("iterations", "n", 0, "Number of Monte Carlo paths")
	monteCarloCmd.Flags().String("era", string(domain.EraFullHistory), "Historical era to sample")
	serveCmd.Flags().String("addr", ":8080", "Listen address")

	rootCmd.AddCommand(simulateCmd, monteCarloCmd, serveCmd, validateCmd, exampleConfigCmd, erasCmd, formatsCmd)
}

func addSpendingFlags(cmd *cobra.Command) {
	cmd.Flags().String("min-spend", "", "Override the monthly spending floor, in dollars")
	cmd.Flags().String("max-spend", "", "Override the monthly spending ceiling, in dollars (0 for none)")
}

func main() {
	var err error
	settings, err = config.LoadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
