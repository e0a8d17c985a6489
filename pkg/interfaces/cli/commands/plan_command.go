package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/meio/pkg/application/dto"
	"github.com/vsinha/meio/pkg/application/services/orchestration"
	"github.com/vsinha/meio/pkg/infrastructure/archive"
	"github.com/vsinha/meio/pkg/infrastructure/config"
	"github.com/vsinha/meio/pkg/infrastructure/events"
	"github.com/vsinha/meio/pkg/infrastructure/metrics"
	"github.com/vsinha/meio/pkg/infrastructure/persistence/sqlstore"
	"github.com/vsinha/meio/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/meio/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/meio/pkg/interfaces/cli/output"
)

// Config holds the file and output options of a command
type Config struct {
	ScenarioDir   string
	NodesFile     string
	CostsFile     string
	LeadTimesFile string
	DemandFile    string
	OutputDir     string
	Format        string
	Verbose       bool
	MetricsFile   string
	Out           io.Writer
}

// PlanCommand runs a full planning pass over CSV inputs
type PlanCommand struct {
	config   Config
	settings *config.Config
	logger   logrus.FieldLogger
}

// NewPlanCommand creates a new plan command with the given configuration
func NewPlanCommand(cfg Config, settings *config.Config, logger logrus.FieldLogger) *PlanCommand {
	if settings == nil {
		settings = config.Default()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PlanCommand{config: cfg, settings: settings, logger: logger}
}

// Execute runs the plan command
func (c *PlanCommand) Execute(ctx context.Context) error {
	files, err := c.config.resolveInputFiles(true)
	if err != nil {
		return fmt.Errorf("failed to resolve input files: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"nodes":      files.Nodes,
		"costs":      files.Costs,
		"lead_times": files.LeadTimes,
		"demand":     files.Demand,
	}).Debug("loading scenario")

	scenario, err := csv.NewLoader().LoadScenario(files)
	if err != nil {
		return err
	}

	networkRepo := memory.NewNetworkRepository(len(scenario.Nodes))
	demandRepo := memory.NewDemandRepository()
	if err := scenario.Populate(networkRepo, demandRepo); err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"nodes":      len(scenario.Nodes),
		"lead_times": len(scenario.LeadTimes),
		"demand":     len(scenario.Demand),
	}).Info("scenario loaded")

	recorder := metrics.NewRecorder()
	journal := events.NewJournal(events.NewInMemoryEventStore())
	orchestrator := orchestration.NewPlanningOrchestrator(
		settingsFromConfig(c.settings),
		networkRepo,
		demandRepo,
		orchestration.MultiObserver{recorder, journal},
		c.logger,
	)

	startTime := time.Now()
	result, err := orchestrator.Run(ctx)
	runTime := time.Since(startTime)
	if err != nil {
		return fmt.Errorf("error running planning: %w", err)
	}
	c.logStages(journal)

	written, err := output.Generate(result, output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		RunTime:   runTime,
		Out:       c.config.Out,
	})
	if err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	if err := c.saveRun(ctx, result); err != nil {
		return err
	}
	if err := c.archiveReports(ctx, result, written); err != nil {
		return err
	}

	if c.config.MetricsFile != "" {
		if err := recorder.WriteTextfile(c.config.MetricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// saveRun stores a snapshot of the run when a store driver is configured
func (c *PlanCommand) saveRun(ctx context.Context, result *dto.PlanningResult) error {
	if c.settings.Store.Driver == "" {
		return nil
	}

	store, err := sqlstore.Open(ctx, c.settings.Store.Driver, c.settings.Store.DSN)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer store.Close()

	if err := store.SaveRun(ctx, result); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	c.logger.WithField("run_id", result.RunID.String()).Info("run snapshot saved")
	return nil
}

// archiveReports copies the written report files to the configured archive target
func (c *PlanCommand) archiveReports(ctx context.Context, result *dto.PlanningResult, files []string) error {
	opts := c.settings.Archive
	if opts.Target == "" {
		return nil
	}
	if len(files) == 0 {
		c.logger.Warn("archive target configured but no report files were written; use --output with json, csv or xlsx")
		return nil
	}

	archiver, err := archive.New(ctx, archiveConfig(opts))
	if err != nil {
		return fmt.Errorf("failed to create archiver: %w", err)
	}

	locations, err := archive.UploadFiles(ctx, archiver, files, result.RunID.String())
	if err != nil {
		return fmt.Errorf("failed to archive reports: %w", err)
	}
	for _, location := range locations {
		c.logger.WithField("location", location).Info("report archived")
	}
	return nil
}

// logStages reports per-stage timings from the run journal
func (c *PlanCommand) logStages(journal *events.Journal) {
	for _, stage := range journal.Stages() {
		entry := c.logger.WithFields(logrus.Fields{
			"stage":   stage.Stage,
			"rows":    stage.Rows,
			"issues":  stage.Issues,
			"skips":   stage.SkipCount(),
			"elapsed": stage.Elapsed.String(),
		})
		if c.config.Verbose {
			entry.Info("stage completed")
		} else {
			entry.Debug("stage completed")
		}
	}
}

func settingsFromConfig(cfg *config.Config) orchestration.Settings {
	return orchestration.Settings{
		Basis:         cfg.DemandBasisValue(),
		Granularity:   cfg.GranularityValue(),
		DaysPerPeriod: cfg.DaysPerPeriod,
		ServiceLevel:  cfg.ServiceLevel,
		ZScore:        cfg.ZScore,
		Strict:        cfg.Strict,
		Workers:       cfg.Workers,
	}
}

func archiveConfig(opts config.ArchiveOptions) archive.Config {
	return archive.Config{
		Target: opts.Target,
		Dir:    opts.Dir,
		S3: archive.S3Config{
			Region:          opts.Region,
			Bucket:          opts.Bucket,
			Prefix:          opts.Prefix,
			Endpoint:        opts.Endpoint,
			AccessKeyID:     opts.AccessKeyID,
			SecretAccessKey: opts.SecretAccessKey,
			PathStyle:       opts.UsePathStyle,
		},
	}
}
