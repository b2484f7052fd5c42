package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/patientflow-sim/patientflow/sim/compare"
)

const (
	comparisonSheet = "Comparison"
	failuresSheet   = "Failures"
)

// WriteWorkbook saves the comparison as an xlsx file with one row per
// (hospital, metric) on the Comparison sheet and one row per failed run on
// the Failures sheet.
func WriteWorkbook(path string, cmp *compare.Comparison) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", comparisonSheet); err != nil {
		return err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(comparisonSheet, "A1", &[]any{
		"Hospital", "Metric", "Unit", "Baseline", "Enhanced", "Change %", "Baseline runs", "Enhanced runs",
	}); err != nil {
		return err
	}
	row := 2
	for _, h := range cmp.Hospitals {
		for _, d := range h.Deltas {
			var change any = ""
			if d.Defined {
				change = d.Percent
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(comparisonSheet, cell, &[]any{
				h.Hospital, d.Label, d.Unit, d.Baseline, d.Enhanced, change, h.Baseline.Runs, h.Enhanced.Runs,
			}); err != nil {
				return err
			}
			row++
		}
	}
	if err := f.SetCellStyle(comparisonSheet, "A1", "H1", header); err != nil {
		return err
	}
	if err := f.SetColWidth(comparisonSheet, "A", "B", 32); err != nil {
		return err
	}

	if _, err := f.NewSheet(failuresSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(failuresSheet, "A1", &[]any{"Hospital", "Configuration", "Replication", "Seed", "Error"}); err != nil {
		return err
	}
	for i, fl := range cmp.Failures {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(failuresSheet, cell, &[]any{
			fl.Hospital, string(fl.Configuration), fl.Replication, fl.Seed, fl.Error,
		}); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(failuresSheet, "A1", "E1", header); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("writing workbook %s: %w", path, err)
	}
	return nil
}
