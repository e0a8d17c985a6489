package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/meio/pkg/domain/entities"
	"github.com/vsinha/meio/pkg/infrastructure/config"
	"github.com/vsinha/meio/pkg/infrastructure/persistence/sqlstore"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeScenario(t *testing.T, leadTimes string) string {
	t.Helper()
	dir := t.TempDir()
	tables := map[string]string{
		"nodes.csv": `node_code,node_name,parent_code,tier
DC1,Central,,DC
WH1,North,DC1,Warehouse
ST1,Store 1,WH1,Store
ST2,Store 2,WH1,Store
`,
		"costs.csv": `node_code,ordering_cost,holding_cost
DC1,50,2
WH1,50,2
ST1,50,2
ST2,50,2
`,
		"lead_times.csv": leadTimes,
		"demand.csv": `node_code,sku_id,period,actual_quantity,forecast_quantity
ST1,SKU1,2024-01,100,90
ST2,SKU1,2024-01,100,110
`,
	}
	for name, content := range tables {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

const validLeadTimes = `source_code,target_code,lead_time_days
DC1,WH1,10
WH1,ST1,5
WH1,ST2,5
`

func TestPlanCommand_Execute(t *testing.T) {
	scenario := writeScenario(t, validLeadTimes)
	work := t.TempDir()

	settings := config.Default()
	settings.Store = config.StoreOptions{Driver: "sqlite", DSN: filepath.Join(work, "runs.db")}
	settings.Archive = config.ArchiveOptions{Target: "fs", Dir: filepath.Join(work, "archive")}

	var out bytes.Buffer
	cmd := NewPlanCommand(Config{
		ScenarioDir: scenario,
		OutputDir:   filepath.Join(work, "reports"),
		Format:      "csv",
		MetricsFile: filepath.Join(work, "meio.prom"),
		Out:         &out,
	}, settings, quietLogger())

	require.NoError(t, cmd.Execute(context.Background()))

	assert.FileExists(t, filepath.Join(work, "reports", "orders.csv"))
	assert.FileExists(t, filepath.Join(work, "reports", "metrics.csv"))

	metrics, err := os.ReadFile(filepath.Join(work, "meio.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `meio_stage_rows_total{stage="echelon"} 4`)

	store, err := sqlstore.Open(context.Background(), "sqlite", settings.Store.DSN)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	archived, err := os.ReadDir(filepath.Join(work, "archive", runs[0].RunID.String()))
	require.NoError(t, err)
	assert.Len(t, archived, 7)
}

func TestPlanCommand_TextOutput(t *testing.T) {
	var out bytes.Buffer
	cmd := NewPlanCommand(Config{ScenarioDir: writeScenario(t, validLeadTimes), Format: "text", Out: &out}, nil, quietLogger())

	require.NoError(t, cmd.Execute(context.Background()))
	assert.Contains(t, out.String(), "Order Schedule")
	assert.Contains(t, out.String(), "WH1")
}

func TestPlanCommand_ConfigurationError(t *testing.T) {
	missingLink := "source_code,target_code,lead_time_days\nDC1,WH1,10\nWH1,ST1,5\n"
	cmd := NewPlanCommand(Config{ScenarioDir: writeScenario(t, missingLink), Out: io.Discard}, nil, quietLogger())

	err := cmd.Execute(context.Background())
	var cfgErr *entities.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "missing lead time", cfgErr.Rule)
}

func TestPlanCommand_MissingInputs(t *testing.T) {
	err := NewPlanCommand(Config{}, nil, quietLogger()).Execute(context.Background())
	assert.ErrorContains(t, err, "must specify either --scenario")

	err = NewPlanCommand(Config{ScenarioDir: t.TempDir()}, nil, quietLogger()).Execute(context.Background())
	assert.ErrorContains(t, err, "nodes file not found")
}

func TestValidateCommand_Execute(t *testing.T) {
	scenario := writeScenario(t, validLeadTimes)
	require.NoError(t, os.Remove(filepath.Join(scenario, "demand.csv")))

	var out bytes.Buffer
	cmd := NewValidateCommand(Config{ScenarioDir: scenario, Out: &out}, nil, quietLogger())

	require.NoError(t, cmd.Execute(context.Background()))
	assert.Contains(t, out.String(), "Network is valid")
	assert.Contains(t, out.String(), "Max depth: 2")
	assert.Contains(t, out.String(), "Level 2: ST1, ST2")
}

func TestResolveInputFiles_Overrides(t *testing.T) {
	scenario := writeScenario(t, validLeadTimes)
	other := filepath.Join(t.TempDir(), "other_demand.csv")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))

	files, err := Config{ScenarioDir: scenario, DemandFile: other}.resolveInputFiles(true)
	require.NoError(t, err)
	assert.Equal(t, other, files.Demand)
	assert.Equal(t, filepath.Join(scenario, "nodes.csv"), files.Nodes)

	files, err = Config{ScenarioDir: scenario}.resolveInputFiles(false)
	require.NoError(t, err)
	assert.Empty(t, files.Demand)
}
