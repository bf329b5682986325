package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

// ImportColumns is the expected header of a report import sheet.
var ImportColumns = []string{
	"client_id", "tax_year", "client_type", "deadline_type",
	"has_rental_income", "has_capital_gains", "has_foreign_income",
	"has_depreciation", "has_exempt_rental", "notes",
}

// ImportRow is one report to create, with the sheet line it came from.
type ImportRow struct {
	Line         int
	ClientID     uint
	TaxYear      int
	ClientType   model.ClientType
	DeadlineType model.DeadlineType
	Flags        model.DisclosureFlags
	Notes        string
}

// RowError reports why a sheet line was skipped.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// ParseReportImport reads the first sheet of an XLSX workbook. Bad lines are
// returned as RowErrors and do not stop the parse.
func ParseReportImport(r io.Reader) ([]ImportRow, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open XLSX: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, nil, fmt.Errorf("no sheets found in XLSX file")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("no data found in XLSX file")
	}

	var (
		parsed  []ImportRow
		skipped []RowError
	)
	for i, row := range rows[1:] {
		line := i + 2
		if isBlank(row) {
			continue
		}
		item, err := parseImportRow(line, row)
		if err != nil {
			skipped = append(skipped, RowError{Line: line, Reason: err.Error()})
			continue
		}
		parsed = append(parsed, item)
	}
	return parsed, skipped, nil
}

func parseImportRow(line int, row []string) (ImportRow, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	clientID, err := strconv.ParseUint(cell(0), 10, 64)
	if err != nil || clientID == 0 {
		return ImportRow{}, fmt.Errorf("invalid client_id %q", cell(0))
	}
	taxYear, err := strconv.Atoi(cell(1))
	if err != nil {
		return ImportRow{}, fmt.Errorf("invalid tax_year %q", cell(1))
	}
	clientType := model.ClientType(strings.ToLower(cell(2)))
	if !clientType.Valid() {
		return ImportRow{}, fmt.Errorf("invalid client_type %q", cell(2))
	}
	deadlineType := model.DeadlineType(strings.ToLower(cell(3)))
	if deadlineType == "" {
		deadlineType = model.DeadlineStandard
	}
	if !deadlineType.Valid() {
		return ImportRow{}, fmt.Errorf("invalid deadline_type %q", cell(3))
	}

	flags := make([]bool, 5)
	for i := range flags {
		v, err := parseFlag(cell(4 + i))
		if err != nil {
			return ImportRow{}, fmt.Errorf("invalid %s %q", ImportColumns[4+i], cell(4+i))
		}
		flags[i] = v
	}

	return ImportRow{
		Line:         line,
		ClientID:     uint(clientID),
		TaxYear:      taxYear,
		ClientType:   clientType,
		DeadlineType: deadlineType,
		Flags: model.DisclosureFlags{
			HasRentalIncome:  flags[0],
			HasCapitalGains:  flags[1],
			HasForeignIncome: flags[2],
			HasDepreciation:  flags[3],
			HasExemptRental:  flags[4],
		},
		Notes: cell(9),
	}, nil
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "0", "n", "no", "false":
		return false, nil
	case "1", "y", "yes", "true", "x":
		return true, nil
	}
	return false, fmt.Errorf("not a yes/no value")
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
