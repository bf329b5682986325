package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteSeason(t *testing.T) {
	deadline := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)
	content, err := WriteSeason(Season{
		TaxYear:        2024,
		Total:          2,
		CompletionRate: 50,
		OverdueCount:   1,
		StatusCounts: []StatusCount{
			{Label: "Not started", Count: 1},
			{Label: "Submitted", Count: 1},
		},
		Reports: []ReportRow{
			{ID: 1, ClientID: 10, ClientName: "Acme Ltd", ClientType: "corporation", FormType: "1214",
				Status: "Submitted", Stage: "Transmitted", FilingDeadline: &deadline, ITAReference: "ITA-123", Schedules: 2},
			{ID: 2, ClientID: 11, ClientName: "Dana Levi", ClientType: "individual", FormType: "1301",
				Status: "Not started", Stage: "Material collection"},
		},
		GeneratedAt: time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Reports"}, f.GetSheetList())

	rate, err := f.GetCellValue("Summary", "B4")
	require.NoError(t, err)
	assert.Equal(t, "50", rate)

	rows, err := f.GetRows("Reports")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Report ID", rows[0][0])
	assert.Equal(t, "Acme Ltd", rows[1][2])
	assert.Equal(t, "2025-04-30", rows[1][7])
	assert.Equal(t, "ITA-123", rows[1][9])
}

func buildImportSheet(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(ImportColumns))
	for i, c := range ImportColumns {
		header[i] = c
	}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseReportImport(t *testing.T) {
	buf := buildImportSheet(t, [][]interface{}{
		{"12", "2024", "individual", "", "yes", "", "", "", "", "moved from paper file"},
		{"13", "2024", "corporation", "extended", "no", "y", "x", "1", "0", ""},
		{"abc", "2024", "individual"},
		{"14", "2024", "trust"},
		{"15", "2024", "individual", "standard", "maybe"},
	})

	rows, skipped, err := ParseReportImport(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, skipped, 3)

	assert.Equal(t, ImportRow{
		Line:         2,
		ClientID:     12,
		TaxYear:      2024,
		ClientType:   model.ClientIndividual,
		DeadlineType: model.DeadlineStandard,
		Flags:        model.DisclosureFlags{HasRentalIncome: true},
		Notes:        "moved from paper file",
	}, rows[0])

	assert.Equal(t, model.DeadlineExtended, rows[1].DeadlineType)
	assert.Equal(t, model.DisclosureFlags{
		HasCapitalGains:  true,
		HasForeignIncome: true,
		HasDepreciation:  true,
	}, rows[1].Flags)

	assert.Equal(t, 4, skipped[0].Line)
	assert.Contains(t, skipped[1].Reason, "client_type")
	assert.Contains(t, skipped[2].Error(), "has_rental_income")
}

func TestParseReportImport_Empty(t *testing.T) {
	f := excelize.NewFile()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	f.Close()

	_, _, err = ParseReportImport(buf)
	assert.Error(t, err)
}
