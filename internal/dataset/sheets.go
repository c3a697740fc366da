package dataset

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ParseSheetsSource splits sheets://<spreadsheetID>/<A1 range>
func ParseSheetsSource(source string) (spreadsheetID, readRange string, err error) {
	rest := strings.TrimPrefix(source, SheetsScheme)
	spreadsheetID, readRange, _ = strings.Cut(rest, "/")
	if spreadsheetID == "" {
		return "", "", fmt.Errorf("missing spreadsheet id in %q", source)
	}
	if readRange == "" {
		readRange = "A:Z"
	}
	return spreadsheetID, readRange, nil
}

func readSheets(ctx context.Context, source string, o options) ([][]string, error) {
	id, readRange, err := ParseSheetsSource(source)
	if err != nil {
		return nil, loadErr(source, "invalid sheets source", err)
	}

	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	switch {
	case o.credentials != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(o.credentials))
	case o.apiKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(o.apiKey))
	}
	clientOpts = append(clientOpts, o.clientOptions...)

	srv, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, loadErr(source, "cannot create sheets client", err)
	}

	resp, err := srv.Spreadsheets.Values.Get(id, readRange).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, loadErr(source, "cannot read spreadsheet", err)
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		rows[i] = cells
	}
	return rows, nil
}
