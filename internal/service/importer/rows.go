package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mamadbah2/livestock/internal/domain/models"
)

// ErrSheetsDisabled indicates no spreadsheet source is configured.
var ErrSheetsDisabled = errors.New("spreadsheet import source is not configured")

// ParseCSV reads a delimited-text block into import rows. The first line
// is the header; short records are padded with empty values.
func ParseCSV(r io.Reader) ([]models.ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var rows []models.ImportRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}

		row := make(models.ImportRow, len(header))
		for i, key := range header {
			value := ""
			if i < len(record) {
				value = record[i]
			}
			row[strings.TrimSpace(key)] = value
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// RowsFromSheet converts a rectangular sheet range into import rows using
// the first row as the header.
func RowsFromSheet(values [][]any) []models.ImportRow {
	if len(values) < 2 {
		return nil
	}

	header := make([]string, len(values[0]))
	for i, cell := range values[0] {
		header[i] = strings.TrimSpace(fmt.Sprint(cell))
	}

	rows := make([]models.ImportRow, 0, len(values)-1)
	for _, line := range values[1:] {
		row := make(models.ImportRow, len(header))
		for i, key := range header {
			if key == "" {
				continue
			}
			value := ""
			if i < len(line) {
				value = fmt.Sprint(line[i])
			}
			row[key] = value
		}
		rows = append(rows, row)
	}

	return rows
}
