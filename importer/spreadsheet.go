package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"opsdashboard/consolidation"
)

// DefaultSheetName is recorded when the source format has no sheet concept
// (CSV) and no explicit name was given.
const DefaultSheetName = "Sheet1"

// LoadProductionFile loads a production spreadsheet (CSV or XLSX) and
// annotates every row with source traceability columns.
func LoadProductionFile(path, sheetName string) ([]consolidation.RawRow, error) {
	return loadSpreadsheet(path, sheetName)
}

// LoadShippingFile loads a shipping spreadsheet (CSV or XLSX) and annotates
// every row with source traceability columns.
func LoadShippingFile(path, sheetName string) ([]consolidation.RawRow, error) {
	return loadSpreadsheet(path, sheetName)
}

// loadSpreadsheet reads the file, normalizes column names and attaches
// source_file/source_sheet/source_row to each row. Spreadsheet row references
// are 1-based with the header at row 1, so the first data row is row 2.
// Unsupported formats fail fast with a descriptive error.
func loadSpreadsheet(path, sheetName string) ([]consolidation.RawRow, error) {
	var (
		grid  [][]string
		sheet string
		err   error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		grid, err = readCSV(path)
		sheet = sheetName
		if sheet == "" {
			sheet = DefaultSheetName
		}
	case ".xlsx", ".xls":
		grid, sheet, err = readExcel(path, sheetName)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
	if err != nil {
		return nil, err
	}

	if len(grid) < 2 {
		return nil, fmt.Errorf("file %s is too short, expected a header row and at least one data row", filepath.Base(path))
	}

	headers := normalizeColumns(grid[0])
	fileName := filepath.Base(path)

	rows := make([]consolidation.RawRow, 0, len(grid)-1)
	for i := 1; i < len(grid); i++ {
		cells := grid[i]
		if isEmptyRow(cells) {
			continue
		}

		row := make(consolidation.RawRow, len(headers)+3)
		for col, name := range headers {
			if name == "" {
				continue
			}
			var value any
			if col < len(cells) && strings.TrimSpace(cells[col]) != "" {
				value = cells[col]
			}
			row[name] = value
		}
		row[consolidation.ColumnSourceFile] = fileName
		row[consolidation.ColumnSourceSheet] = sheet
		row[consolidation.ColumnSourceRow] = i + 1

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("no data rows found in %s", fileName)
	}

	log.Printf("Loaded %d rows from %s (sheet %s)", len(rows), fileName, sheet)
	return rows, nil
}

// readCSV reads a CSV file. Payloads that are not valid UTF-8 are decoded as
// Windows-1252 before parsing, which covers the usual legacy spreadsheet
// exports.
func readCSV(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}

	if !utf8.Valid(data) {
		decoded, derr := io.ReadAll(transform.NewReader(bytes.NewReader(data), charmap.Windows1252.NewDecoder()))
		if derr != nil {
			return nil, fmt.Errorf("failed to decode CSV file encoding: %w", derr)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV file: %w", err)
	}
	return records, nil
}

// readExcel reads one sheet of an XLSX workbook. An empty sheet name selects
// the first sheet.
func readExcel(path, sheetName string) ([][]string, string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := sheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, "", fmt.Errorf("no sheets found in Excel file")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get rows from sheet %s: %w", sheet, err)
	}
	return rows, sheet, nil
}

// normalizeColumns converts spreadsheet headers into snake_case-like labels.
func normalizeColumns(headers []string) []string {
	normalized := make([]string, len(headers))
	for i, header := range headers {
		cleaned := strings.ToLower(strings.TrimSpace(header))
		cleaned = strings.ReplaceAll(cleaned, " ", "_")
		cleaned = strings.ReplaceAll(cleaned, "/", "_")
		normalized[i] = cleaned
	}
	return normalized
}

// isEmptyRow reports whether every cell is blank.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
