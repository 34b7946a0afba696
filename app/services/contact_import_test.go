package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildSheet(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		start, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, start, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseContactSheetWithHeader(t *testing.T) {
	buf := buildSheet(t, [][]string{
		{"IG User ID", "IG Username", "Name"},
		{"17842000000001", "ada.codes", "Ada"},
		{"17842000000002", "grace.h", ""},
	})

	result, err := ParseContactSheet(buf)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Zero(t, result.Skipped)

	assert.Equal(t, ContactImportRow{IGUserID: "17842000000001", IGUsername: "ada.codes", Name: "Ada"}, result.Rows[0])
	assert.Equal(t, ContactImportRow{IGUserID: "17842000000002", IGUsername: "grace.h"}, result.Rows[1])
}

func TestParseContactSheetReorderedHeader(t *testing.T) {
	buf := buildSheet(t, [][]string{
		{"name", "ig_user_id", "ig_username"},
		{"Ada", "17842000000001", "ada.codes"},
	})

	result, err := ParseContactSheet(buf)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, ContactImportRow{IGUserID: "17842000000001", IGUsername: "ada.codes", Name: "Ada"}, result.Rows[0])
}

func TestParseContactSheetPositionalColumns(t *testing.T) {
	// No recognizable header: columns are taken as id, username, name
	buf := buildSheet(t, [][]string{
		{"17842000000001", "ada.codes", "Ada"},
		{"17842000000002"},
	})

	result, err := ParseContactSheet(buf)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "17842000000001", result.Rows[0].IGUserID)
	assert.Equal(t, "17842000000002", result.Rows[1].IGUserID)
	assert.Empty(t, result.Rows[1].IGUsername)
}

func TestParseContactSheetSkipsRowsWithoutID(t *testing.T) {
	buf := buildSheet(t, [][]string{
		{"ig_user_id", "ig_username", "name"},
		{"", "ghost", "No ID"},
		{"17842000000001", "ada.codes", "Ada"},
		{"   ", "blank", "Whitespace"},
	})

	result, err := ParseContactSheet(buf)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, 2, result.Skipped)
}

func TestParseContactSheetTrimsWhitespace(t *testing.T) {
	buf := buildSheet(t, [][]string{
		{"ig_user_id", "ig_username", "name"},
		{"  17842000000001  ", " ada.codes ", "  Ada  "},
	})

	result, err := ParseContactSheet(buf)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, ContactImportRow{IGUserID: "17842000000001", IGUsername: "ada.codes", Name: "Ada"}, result.Rows[0])
}

func TestParseContactSheetRejectsGarbage(t *testing.T) {
	_, err := ParseContactSheet(bytes.NewReader([]byte("not an xlsx file")))
	assert.Error(t, err)
}
