package matching

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Ramsey-B/fern/pkg/models"
)

// LoadRegistryFile loads property records from a CSV or XLSX file, keyed by
// header names. The extension picks the parser.
func LoadRegistryFile(path string) ([]models.PropertyRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadRegistryCSV(path)
	case ".xlsx":
		return LoadRegistryXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported registry file type: %s", path)
	}
}

// LoadRegistryCSV reads property records from a CSV file with a header row.
func LoadRegistryCSV(path string) ([]models.PropertyRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	return recordsFromRows(rows)
}

// LoadRegistryXLSX reads property records from the first sheet of an XLSX
// workbook with a header row.
func LoadRegistryXLSX(path string) ([]models.PropertyRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("registry workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read registry sheet: %w", err)
	}

	return recordsFromRows(rows)
}

func recordsFromRows(rows [][]string) ([]models.PropertyRecord, error) {
	if len(rows) < 1 {
		return nil, fmt.Errorf("registry file is empty")
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}
	if _, ok := columns["property_id"]; !ok {
		return nil, fmt.Errorf("registry file is missing the property_id column")
	}

	cell := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	records := make([]models.PropertyRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		id := cell(row, "property_id")
		if id == "" {
			continue
		}

		area, _ := strconv.ParseFloat(cell(row, "area"), 64)
		records = append(records, models.PropertyRecord{
			PropertyID:  id,
			CertNumber:  cell(row, "cert_number"),
			Address:     cell(row, "address"),
			HouseNumber: cell(row, "house_number"),
			OwnerName:   cell(row, "owner_name"),
			Area:        area,
		})
	}
	return records, nil
}
