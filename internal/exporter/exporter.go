// Package exporter writes cleaned records to a spreadsheet ordered by listing count.
package exporter

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/divar-cli/internal/label"
	"github.com/sells-group/divar-cli/internal/metrics"
	"github.com/sells-group/divar-cli/internal/model"
	"github.com/sells-group/divar-cli/internal/store"
)

// ErrEmptyCollection is returned when there are no cleaned records to export.
var ErrEmptyCollection = eris.New("exporter: no cleaned records")

const (
	sheetName   = "Sheet1"
	indexWidth  = 5
	columnWidth = 15
)

// Exporter renders NamedCollection[name-cleaned] to {dir}/{name}.xlsx.
type Exporter struct {
	store store.Store
	dir   string
}

// New creates an Exporter writing artifacts into dir.
func New(st store.Store, dir string) *Exporter {
	if dir == "" {
		dir = "."
	}
	return &Exporter{store: st, dir: dir}
}

// Path returns the artifact path for name.
func (e *Exporter) Path(name string) string {
	return filepath.Join(e.dir, name+".xlsx")
}

// Export sorts the cleaned records of name by descending label count and
// writes them to a spreadsheet. It returns the artifact path.
func (e *Exporter) Export(ctx context.Context, name string) (string, error) {
	records, err := store.ReadItems[model.CleanedRecord](ctx, e.store, model.CleanedCollection(name))
	if err != nil {
		return "", eris.Wrapf(err, "exporter: read %s", name)
	}
	if len(records) == 0 {
		return "", eris.Wrapf(ErrEmptyCollection, "%s", name)
	}

	sorted, err := SortByLabel(records)
	if err != nil {
		return "", eris.Wrapf(err, "exporter: %s", name)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "exporter: create dir %s", e.dir)
	}

	path := e.Path(name)
	if err := WriteXLSX(path, sorted); err != nil {
		return "", err
	}

	metrics.ObserveExport(name, len(sorted))
	zap.L().Info("export complete",
		zap.String("category", name),
		zap.String("path", path),
		zap.Int("records", len(sorted)),
	)
	return path, nil
}

// SortByLabel returns records ordered by descending normalized label. Records
// with equal counts keep their input order. Every label is normalized before
// sorting, so a bad label fails the whole export.
func SortByLabel(records []model.CleanedRecord) ([]model.CleanedRecord, error) {
	type keyed struct {
		rec   model.CleanedRecord
		count int
	}

	keys := make([]keyed, len(records))
	for i, r := range records {
		n, err := label.Normalize(r.Label)
		if err != nil {
			return nil, eris.Wrapf(err, "record %d (%s)", i, r.Slug)
		}
		keys[i] = keyed{rec: r, count: n}
	}

	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].count > keys[j].count
	})

	out := make([]model.CleanedRecord, len(keys))
	for i, k := range keys {
		out[i] = k.rec
	}
	return out, nil
}

// WriteXLSX writes records to path as a single-sheet workbook.
func WriteXLSX(path string, records []model.CleanedRecord) error {
	f, err := buildWorkbook(records)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "exporter: save %s", path)
	}
	return nil
}

// buildWorkbook lays out one sheet: a bold header row with an empty index
// column, then one row per record prefixed by its 1-based position.
func buildWorkbook(records []model.CleanedRecord) (*xlsx.File, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return nil, eris.Wrap(err, "exporter: add sheet")
	}

	bold := xlsx.NewStyle()
	bold.Font.Bold = true
	bold.ApplyFont = true

	header := sheet.AddRow()
	header.AddCell().SetString("")
	for _, field := range model.CleanedRecordFields {
		cell := header.AddCell()
		cell.SetString(field)
		cell.SetStyle(bold)
	}

	for i, rec := range records {
		row := sheet.AddRow()
		row.AddCell().SetInt(i + 1)
		for _, v := range rec.Values() {
			row.AddCell().SetString(v)
		}
	}

	sheet.SetColWidth(0, 0, indexWidth)
	sheet.SetColWidth(1, len(model.CleanedRecordFields), columnWidth)
	return f, nil
}

// ReadArtifact reads back the first sheet of an exported spreadsheet as strings.
// A missing artifact returns (nil, nil).
func ReadArtifact(path string) ([][]string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "exporter: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("exporter: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		rows = append(rows, rowToStrings(row))
	}
	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
