package sheets

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/cliossg/intake/pkg/cl/logger"
)

// Appender adds rows to one sheet of a Google spreadsheet using a service
// account.
type Appender struct {
	credentialsPath string
	spreadsheetID   string
	sheetName       string
	service         *sheets.Service
	log             logger.Logger
}

func NewAppender(credentialsPath, spreadsheetID, sheetName string, log logger.Logger) *Appender {
	return &Appender{
		credentialsPath: credentialsPath,
		spreadsheetID:   spreadsheetID,
		sheetName:       sheetName,
		log:             log,
	}
}

// Start reads the service account credentials and builds the API client.
func (a *Appender) Start(ctx context.Context) error {
	credBytes, err := os.ReadFile(a.credentialsPath)
	if err != nil {
		return fmt.Errorf("cannot read sheets credentials: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credBytes, sheets.SpreadsheetsScope)
	if err != nil {
		return fmt.Errorf("cannot parse sheets credentials: %w", err)
	}

	// The client outlives Start's context.
	svc, err := sheets.NewService(context.Background(), option.WithHTTPClient(jwtConfig.Client(context.Background())))
	if err != nil {
		return fmt.Errorf("cannot create sheets client: %w", err)
	}
	a.service = svc

	a.log.Infof("Mirroring submissions to spreadsheet %s (%s)", a.spreadsheetID, a.sheetName)
	return nil
}

// Append writes row after the last filled row of the sheet.
func (a *Appender) Append(ctx context.Context, row []any) error {
	if a.service == nil {
		return fmt.Errorf("sheets appender not started")
	}

	_, err := a.service.Spreadsheets.Values.Append(
		a.spreadsheetID,
		a.sheetName,
		&sheets.ValueRange{Values: [][]any{row}},
	).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("cannot append row: %w", err)
	}
	return nil
}
