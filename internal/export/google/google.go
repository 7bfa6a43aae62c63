// Package google appends approved calendar modifications to a Google
// spreadsheet, one row per modification.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"paycal/internal/storage"

	ports "paycal/internal/export"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.Appender = (*Client)(nil)

// Options configure the audit-sheet client.
type Options struct {
	SpreadsheetID string
	SheetName     string
	// Service account credentials, inline JSON or a file path. Inline wins.
	CredsJSON string
	CredsFile string
}

// New creates a Sheets client from explicit options.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Modifications"
	}

	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(opts.CredsJSON) != "":
		credentialsJSON = []byte(opts.CredsJSON)
	case strings.TrimSpace(opts.CredsFile) != "":
		data, err := os.ReadFile(opts.CredsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets audit client created",
		"spreadsheet_id", spreadsheetID,
		"sheet", sheetName)

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// Append writes one modification as a new row and returns its range
// reference.
func (c *Client) Append(ctx context.Context, m storage.Modification) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	approvedAt := ""
	if m.ApprovedAt != nil {
		approvedAt = m.ApprovedAt.Format(time.RFC3339)
	}

	vr := &gsheet.ValueRange{Values: [][]any{{
		m.ID,
		string(m.Type),
		m.TransactionID,
		m.MerchantName,
		m.OriginalDate,
		m.NewDate,
		m.Amount,
		m.Category,
		m.Reason,
		m.CreatedAt.Format(time.RFC3339),
		approvedAt,
	}}}

	rng := fmt.Sprintf("%s!A:K", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}

	slog.InfoContext(ctx, "Modification appended to audit sheet",
		"modification_id", m.ID,
		"sheets_ref", ref)

	return ref, nil
}
