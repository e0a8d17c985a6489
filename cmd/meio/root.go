package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vsinha/meio/pkg/infrastructure/config"
	"github.com/vsinha/meio/pkg/infrastructure/logging"
	"github.com/vsinha/meio/pkg/interfaces/cli/commands"
)

// globalOptions are shared by every subcommand
type globalOptions struct {
	profile   string
	envFiles  []string
	logLevel  string
	logFormat string

	settings *config.Config
	logger   *logrus.Logger
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "meio",
		Short:         "Multi-echelon inventory planning over a DC, warehouse and store network",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.profile, "profile", "", "YAML planning profile (optional)")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", config.DefaultEnvFiles, "Env files loaded when present")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: silent, error, warn, info, debug (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json (overrides config)")

	cmd.AddCommand(newPlanCmd(opts))
	cmd.AddCommand(newValidateCmd(opts))
	return cmd
}

// load resolves configuration and builds the logger before a subcommand runs
func (o *globalOptions) load(cmd *cobra.Command) error {
	settings, err := config.Load(o.profile, o.envFiles)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		settings.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		settings.LogFormat = o.logFormat
	}

	o.settings = settings
	o.logger = logging.New(settings.LogLevel, settings.LogFormat, os.Stderr)
	o.logger.WithFields(logrus.Fields{
		"command":      cmd.Name(),
		"granularity":  settings.Granularity,
		"demand_basis": settings.DemandBasis,
		"strict":       settings.Strict,
	}).Debug("configuration loaded")
	return nil
}

// inputFlags registers the CSV table flags shared by plan and validate
func inputFlags(cmd *cobra.Command, cfg *commands.Config, withDemand bool) {
	cmd.Flags().StringVar(&cfg.ScenarioDir, "scenario", "", "Scenario directory with nodes.csv, costs.csv, lead_times.csv and demand.csv")
	cmd.Flags().StringVar(&cfg.NodesFile, "nodes", "", "Path to nodes CSV file")
	cmd.Flags().StringVar(&cfg.CostsFile, "costs", "", "Path to costs CSV file")
	cmd.Flags().StringVar(&cfg.LeadTimesFile, "lead-times", "", "Path to lead times CSV file")
	if withDemand {
		cmd.Flags().StringVar(&cfg.DemandFile, "demand", "", "Path to demand CSV file")
	}
}

func newPlanCmd(opts *globalOptions) *cobra.Command {
	var cfg commands.Config

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute EOQ policies, allocations, order schedules and cost comparisons",
		Example: `  meio plan --scenario examples/three_tier
  meio plan --scenario examples/three_tier --format xlsx --output results/
  MEIO_GRANULARITY=weekly meio plan --nodes n.csv --costs c.csv --lead-times l.csv --demand d.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Out = cmd.OutOrStdout()
			return commands.NewPlanCommand(cfg, opts.settings, opts.logger).Execute(cmd.Context())
		},
	}

	inputFlags(cmd, &cfg, true)
	cmd.Flags().StringVar(&cfg.OutputDir, "output", "", "Output directory for results (required for csv and xlsx)")
	cmd.Flags().StringVar(&cfg.Format, "format", "text", "Output format: text, json, csv, xlsx")
	cmd.Flags().BoolVar(&cfg.Verbose, "verbose", false, "Print written file paths")
	cmd.Flags().StringVar(&cfg.MetricsFile, "metrics-file", "", "Write stage metrics in Prometheus text format to this file")
	return cmd
}

func newValidateCmd(opts *globalOptions) *cobra.Command {
	var cfg commands.Config

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the network tables and print tiers and depth without planning",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Out = cmd.OutOrStdout()
			if cfg.Format != "text" && cfg.Format != "json" {
				return fmt.Errorf("unsupported output format: %s", cfg.Format)
			}
			return commands.NewValidateCommand(cfg, opts.settings, opts.logger).Execute(cmd.Context())
		},
	}

	inputFlags(cmd, &cfg, false)
	cmd.Flags().StringVar(&cfg.Format, "format", "text", "Output format: text or json")
	return cmd
}
