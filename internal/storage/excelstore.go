package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"
)

// FallbackSheet receives rows whose submission carries no category.
const FallbackSheet = "Outros"

// sheetNameLimit is the xlsx identifier length limit. Categories differing
// only beyond it collide into one partition; that is documented behavior,
// not prevented.
const sheetNameLimit = 31

// ExcelStore appends flattened submission rows to an xlsx workbook with
// one sheet per category. Each append reads the target sheet, concatenates
// the new row and rewrites the whole sheet, so rows with new keys simply
// grow the column set (outer-join semantics, blanks backfilled). The
// strategy trades I/O for schema flexibility across heterogeneous category
// schemas and is fine at intake volume.
//
// The mutex serializes the read-modify-write cycle within this process.
// Concurrent writers from other processes can still corrupt the workbook;
// the deployment is assumed single-process.
type ExcelStore struct {
	mu   sync.Mutex
	path string
}

func NewExcelStore(path string) *ExcelStore {
	return &ExcelStore{path: path}
}

// SheetName maps a category to its partition name: the fallback for an
// absent category, truncated to the format's 31-character limit.
func SheetName(category string) string {
	if category == "" {
		category = FallbackSheet
	}
	if runes := []rune(category); len(runes) > sheetNameLimit {
		return string(runes[:sheetNameLimit])
	}
	return category
}

// Append writes one row to the partition named after category. keys gives
// the row's column order; row holds the values.
func (s *ExcelStore) Append(category string, keys []string, row map[string]any) error {
	sheet := SheetName(category)

	s.mu.Lock()
	defer s.mu.Unlock()

	f, created, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("excel store: sheet %q: %w", sheet, err)
	}
	if idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("excel store: create sheet %q: %w", sheet, err)
		}
	}

	header, records, err := s.readSheet(f, sheet)
	if err != nil {
		return err
	}

	// Columns become the union: existing first-seen order, then the new
	// row's unseen keys appended.
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[h] = true
	}
	for _, k := range keys {
		if !seen[k] {
			header = append(header, k)
			seen[k] = true
		}
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("excel store: write header: %w", err)
	}
	line := 2
	for _, rec := range records {
		cells := make([]any, len(header))
		for i, h := range header {
			cells[i] = rec[h]
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", line), &cells); err != nil {
			return fmt.Errorf("excel store: rewrite row %d: %w", line, err)
		}
		line++
	}
	cells := make([]any, len(header))
	for i, h := range header {
		if v, ok := row[h]; ok {
			cells[i] = v
		} else {
			cells[i] = ""
		}
	}
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", line), &cells); err != nil {
		return fmt.Errorf("excel store: write row: %w", err)
	}

	if created {
		// Drop the workbook's default sheet once a real partition exists.
		if sheet != "Sheet1" {
			f.DeleteSheet("Sheet1")
		}
		if dir := filepath.Dir(s.path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("excel store: mkdir %s: %w", dir, err)
			}
		}
		if err := f.SaveAs(s.path); err != nil {
			return fmt.Errorf("excel store: save %s: %w", s.path, err)
		}
		return nil
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("excel store: save %s: %w", s.path, err)
	}
	return nil
}

// Rows returns the partition's records as header-keyed maps, in row order.
// A missing workbook or partition yields no rows.
func (s *ExcelStore) Rows(category string) ([]map[string]string, error) {
	sheet := SheetName(category)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, nil
	}
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("excel store: open %s: %w", s.path, err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, nil
	}
	_, records, err := s.readSheet(f, sheet)
	return records, err
}

// RowCount returns the number of data rows in the category's partition.
func (s *ExcelStore) RowCount(category string) (int, error) {
	records, err := s.Rows(category)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *ExcelStore) open() (*excelize.File, bool, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return excelize.NewFile(), true, nil
	}
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, false, fmt.Errorf("excel store: open %s: %w", s.path, err)
	}
	return f, false, nil
}

func (s *ExcelStore) readSheet(f *excelize.File, sheet string) ([]string, []map[string]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("excel store: read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	header := rows[0]
	records := make([]map[string]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		rec := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(r) {
				rec[h] = r[i]
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}
	return header, records, nil
}
