package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	summarySheet = "Summary"
	reportsSheet = "Reports"
	dateLayout   = "2006-01-02"
)

type StatusCount struct {
	Label string
	Count int
}

type ReportRow struct {
	ID             uint
	ClientID       uint
	ClientName     string
	ClientType     string
	FormType       string
	Status         string
	Stage          string
	FilingDeadline *time.Time
	SubmittedAt    *time.Time
	ITAReference   string
	Schedules      int
}

// Season is everything written to a season workbook.
type Season struct {
	TaxYear        int
	Total          int
	CompletionRate int
	OverdueCount   int
	StatusCounts   []StatusCount
	Reports        []ReportRow
	GeneratedAt    time.Time
}

var reportHeader = []interface{}{
	"Report ID", "Client ID", "Client", "Client type", "Form",
	"Status", "Stage", "Filing deadline", "Submitted at", "ITA reference", "Schedules",
}

// WriteSeason renders the season as an XLSX workbook with a summary sheet and
// one row per report.
func WriteSeason(season Season) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(reportsSheet); err != nil {
		return nil, fmt.Errorf("failed to create reports sheet: %w", err)
	}

	summary := [][]interface{}{
		{"Tax year", season.TaxYear},
		{"Generated at", season.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Total reports", season.Total},
		{"Completion rate (%)", season.CompletionRate},
		{"Overdue", season.OverdueCount},
		{},
		{"Status", "Reports"},
	}
	for _, sc := range season.StatusCounts {
		summary = append(summary, []interface{}{sc.Label, sc.Count})
	}
	for i, row := range summary {
		if len(row) == 0 {
			continue
		}
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return nil, err
		}
	}

	if err := setRow(f, reportsSheet, 1, reportHeader); err != nil {
		return nil, err
	}
	for i, r := range season.Reports {
		row := []interface{}{
			r.ID, r.ClientID, r.ClientName, r.ClientType, r.FormType,
			r.Status, r.Stage, formatDate(r.FilingDeadline), formatDate(r.SubmittedAt),
			r.ITAReference, r.Schedules,
		}
		if err := setRow(f, reportsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
