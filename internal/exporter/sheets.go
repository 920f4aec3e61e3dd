package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Sheets pushes records into a Google Sheets spreadsheet. Authentication
// follows the installed-app flow: a client secret JSON plus a previously
// minted token file. Minting the token is an out-of-band, interactive step;
// this exporter only refreshes it.
type Sheets struct {
	service       *sheets.Service
	spreadsheetID string
	sheetRange    string
}

// NewSheets builds a Sheets exporter from the client secret and token files.
func NewSheets(ctx context.Context, credentialsPath, tokenPath, spreadsheetID string) (*Sheets, error) {
	secret, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("reading google client secret: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(secret, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing google client secret: %w", err)
	}

	tokenData, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("reading google token (run the token setup first): %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("parsing google token: %w", err)
	}

	service, err := sheets.NewService(ctx,
		option.WithTokenSource(oauthConfig.TokenSource(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &Sheets{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetRange:    "Sheet1!A1",
	}, nil
}

// Export writes the header plus one row per record starting at A1.
func (s *Sheets) Export(ctx context.Context, records []Record) error {
	values := make([][]any, 0, len(records)+1)

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	values = append(values, headerRow)

	for _, r := range records {
		row := r.row()
		cells := make([]any, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		values = append(values, cells)
	}

	_, err := s.service.Spreadsheets.Values.
		Update(s.spreadsheetID, s.sheetRange, &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("updating spreadsheet: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"spreadsheet": s.spreadsheetID,
		"rows":        len(records),
	}).Infoln("Updated Google Sheet")

	return nil
}
