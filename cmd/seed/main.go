package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ikkim/annualreport-backend/config"
	"github.com/ikkim/annualreport-backend/internal/app/repository"
	"github.com/ikkim/annualreport-backend/internal/app/service"
	"github.com/ikkim/annualreport-backend/internal/db"
	"github.com/ikkim/annualreport-backend/internal/export"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	staffEmail string
	assumeYes  bool
)

var rootCmd = &cobra.Command{
	Use:   "seed <xlsx_file_path>",
	Short: "Import a season's annual reports from an XLSX sheet",
	Long: `Reads the first sheet of an XLSX workbook with the columns
client_id, tax_year, client_type, deadline_type, has_rental_income,
has_capital_gains, has_foreign_income, has_depreciation, has_exempt_rental, notes
and opens one report per row through the report service, so every report gets
its schedules and creation history. Rows for a client and year that already
have a report are counted and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func main() {
	rootCmd.Flags().StringVar(&staffEmail, "staff", "", "email of the staff member recorded as creator (defaults to ADMIN_EMAIL)")
	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if staffEmail == "" {
		staffEmail = cfg.Admin.Email
	}
	if staffEmail == "" {
		return errors.New("no --staff given and ADMIN_EMAIL is not set")
	}

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open XLSX: %w", err)
	}
	rows, skipped, err := export.ParseReportImport(f)
	f.Close()
	if err != nil {
		return err
	}

	if len(skipped) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.SetTitle("Skipped lines")
		tw.AppendHeader(table.Row{"Line", "Reason"})
		for _, s := range skipped {
			tw.AppendRow(table.Row{s.Line, s.Reason})
		}
		tw.Render()
	}
	fmt.Printf("Total reports to import: %d\n", len(rows))

	if !assumeYes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return nil
		}
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	staff, err := repository.NewUserRepository(db.GetDB()).FindByEmail(staffEmail)
	if err != nil {
		return fmt.Errorf("staff account %s not found: %w", staffEmail, err)
	}

	calendar, err := service.NewSeasonCalendar(cfg.Season, nil)
	if err != nil {
		return fmt.Errorf("invalid season deadlines: %w", err)
	}
	reportService := service.NewReportService(
		repository.NewReportRepository(db.GetDB()),
		repository.NewHistoryRepository(db.GetDB()),
		repository.NewClientRepository(db.GetDB()),
		calendar,
		nil,
		db.GetDB(),
	)

	failures := table.NewWriter()
	failures.SetOutputMirror(os.Stdout)
	failures.SetTitle("Failed rows")
	failures.AppendHeader(table.Row{"Line", "Client", "Tax year", "Error"})

	actor := staff.Actor()
	created, existing, failed := 0, 0, 0
	for _, row := range rows {
		_, err := reportService.CreateReport(service.CreateReportInput{
			ClientID:     row.ClientID,
			TaxYear:      row.TaxYear,
			ClientType:   row.ClientType,
			DeadlineType: row.DeadlineType,
			Flags:        row.Flags,
			Notes:        row.Notes,
		}, actor)
		switch {
		case err == nil:
			created++
		case errors.Is(err, service.ErrReportAlreadyExists):
			existing++
		default:
			failed++
			failures.AppendRow(table.Row{row.Line, row.ClientID, row.TaxYear, err.Error()})
		}
	}

	if failed > 0 {
		failures.Render()
	}
	summary := table.NewWriter()
	summary.SetOutputMirror(os.Stdout)
	summary.AppendHeader(table.Row{"Created", "Already present", "Failed"})
	summary.AppendRow(table.Row{created, existing, failed})
	summary.Render()

	if failed > 0 {
		return fmt.Errorf("%d rows failed to import", failed)
	}
	return nil
}
