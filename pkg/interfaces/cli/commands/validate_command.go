package commands

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/meio/pkg/application/services/orchestration"
	"github.com/vsinha/meio/pkg/infrastructure/config"
	"github.com/vsinha/meio/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/meio/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/meio/pkg/interfaces/cli/output"
)

// ValidateCommand loads and validates a network without planning
type ValidateCommand struct {
	config   Config
	settings *config.Config
	logger   logrus.FieldLogger
}

// NewValidateCommand creates a new validate command
func NewValidateCommand(cfg Config, settings *config.Config, logger logrus.FieldLogger) *ValidateCommand {
	if settings == nil {
		settings = config.Default()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ValidateCommand{config: cfg, settings: settings, logger: logger}
}

// Execute validates the network tables and prints their shape
func (c *ValidateCommand) Execute(ctx context.Context) error {
	files, err := c.config.resolveInputFiles(false)
	if err != nil {
		return fmt.Errorf("failed to resolve input files: %w", err)
	}

	scenario, err := csv.NewLoader().LoadScenario(files)
	if err != nil {
		return err
	}

	networkRepo := memory.NewNetworkRepository(len(scenario.Nodes))
	if err := scenario.Populate(networkRepo, nil); err != nil {
		return err
	}

	orchestrator := orchestration.NewPlanningOrchestrator(
		settingsFromConfig(c.settings),
		networkRepo,
		memory.NewDemandRepository(),
		nil,
		c.logger,
	)
	summary, err := orchestrator.DescribeNetwork()
	if err != nil {
		return err
	}

	return output.GenerateNetwork(summary, output.Config{Format: c.config.Format, Out: c.config.Out})
}
