package output

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/vsinha/meio/pkg/application/dto"
)

// generateXLSXOutput writes one workbook with a sheet per table
func generateXLSXOutput(result *dto.PlanningResult, config Config) ([]string, error) {
	if config.OutputDir == "" {
		return nil, fmt.Errorf("output directory required for xlsx format")
	}
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := NewWorkbook(Tables(result))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	filename := filepath.Join(config.OutputDir, "planning_results.xlsx")
	if err := f.SaveAs(filename); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.writer(), "💾 Workbook saved to: %s\n", filename)
	}
	return []string{filename}, nil
}

// NewWorkbook builds a workbook with one sheet per table and a bold header row
func NewWorkbook(tables []Table) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, table := range tables {
		sheet := table.Name
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, fmt.Errorf("failed to name sheet %s: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}

		for col, h := range table.Header {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := f.SetCellValue(sheet, cell, h); err != nil {
				return nil, err
			}
		}
		if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
			return nil, err
		}

		for r, row := range table.Rows {
			for col, v := range row {
				cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
				if err := f.SetCellValue(sheet, cell, cellValue(v)); err != nil {
					return nil, fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
				}
			}
		}

		last, _ := excelize.ColumnNumberToName(len(table.Header))
		if err := f.SetColWidth(sheet, "A", last, 14); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// cellValue maps table values onto types excelize stores natively
func cellValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.Format(dateLayout)
	case decimal.Decimal:
		f, _ := val.Round(2).Float64()
		return f
	case nil:
		return ""
	default:
		return val
	}
}
