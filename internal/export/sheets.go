// Package export writes monthly finance summaries to a Google
// Sheets spreadsheet for sharing outside the app.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
)

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewExporter creates a Sheets exporter using Service Account
// credentials. Uses GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func NewExporter(ctx context.Context, spreadsheetID, sheetName string) (*Exporter, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if sheetName == "" {
		sheetName = "Reports"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ExportMonthlyFlow appends one row per month with income, expenses
// and savings. Rows are appended below any existing data so repeated
// exports build a running history.
func (e *Exporter) ExportMonthlyFlow(ctx context.Context, flows []core.MonthFlow) error {
	if len(flows) == 0 {
		return nil
	}

	values := make([][]any, 0, len(flows))
	for _, f := range flows {
		values = append(values, []any{
			f.Month,
			f.Income.Amount(),
			f.Expense.Amount(),
			f.Savings.Amount(),
		})
	}

	rng := fmt.Sprintf("%s!A:D", e.sheetName)
	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, &gsheet.ValueRange{
		Values: values,
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append monthly flow rows: %w", err)
	}

	slog.InfoContext(ctx, "exported monthly flows to sheet",
		"sheet", e.sheetName,
		"rows", len(values))
	return nil
}

// ExportCategoryTotals appends per-category totals for one month.
func (e *Exporter) ExportCategoryTotals(ctx context.Context, month string, totals []core.CategoryTotal) error {
	if len(totals) == 0 {
		return nil
	}

	values := make([][]any, 0, len(totals))
	for _, t := range totals {
		values = append(values, []any{month, t.Category, t.Total.Amount()})
	}

	rng := fmt.Sprintf("%s!F:H", e.sheetName)
	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, &gsheet.ValueRange{
		Values: values,
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append category total rows: %w", err)
	}

	slog.InfoContext(ctx, "exported category totals to sheet",
		"sheet", e.sheetName,
		"month", month,
		"rows", len(values))
	return nil
}
