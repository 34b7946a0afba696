package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ContactImportRow is one parsed lead from an uploaded contact sheet
type ContactImportRow struct {
	IGUserID   string
	IGUsername string
	Name       string
}

// ContactImportResult reports what a sheet parse produced
type ContactImportResult struct {
	Rows    []ContactImportRow
	Skipped int // rows without an IG user id
}

// ParseContactSheet reads an XLSX workbook and extracts contact rows from its
// first sheet. The first row is treated as a header when it contains an
// "ig_user_id" column; otherwise columns are taken positionally as
// (ig_user_id, ig_username, name).
func ParseContactSheet(r io.Reader) (*ContactImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return &ContactImportResult{}, nil
	}

	idCol, usernameCol, nameCol := 0, 1, 2
	start := 0
	if header := normalizeHeader(rows[0]); header["ig_user_id"] >= 0 {
		idCol = header["ig_user_id"]
		usernameCol = header["ig_username"]
		nameCol = header["name"]
		start = 1
	}

	result := &ContactImportResult{Rows: make([]ContactImportRow, 0, len(rows)-start)}
	for _, row := range rows[start:] {
		id := cell(row, idCol)
		if id == "" {
			result.Skipped++
			continue
		}
		result.Rows = append(result.Rows, ContactImportRow{
			IGUserID:   id,
			IGUsername: cell(row, usernameCol),
			Name:       cell(row, nameCol),
		})
	}
	return result, nil
}

// normalizeHeader maps lowercased header names to column indexes; missing
// names map to -1
func normalizeHeader(row []string) map[string]int {
	header := map[string]int{"ig_user_id": -1, "ig_username": -1, "name": -1}
	for i, col := range row {
		key := strings.ToLower(strings.TrimSpace(col))
		key = strings.ReplaceAll(key, " ", "_")
		if _, known := header[key]; known {
			header[key] = i
		}
	}
	return header
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
