package exporter

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/divar-cli/internal/label"
	"github.com/sells-group/divar-cli/internal/model"
	"github.com/sells-group/divar-cli/internal/store"
)

func rec(title, lbl string) model.CleanedRecord {
	return model.CleanedRecord{Title: title, Slug: title + "-slug", Label: lbl}
}

func TestSortByLabel_Descending(t *testing.T) {
	t.Parallel()

	got, err := SortByLabel([]model.CleanedRecord{
		rec("five", "۵ آگهی"),
		rec("twelve", "۱۲ آگهی"),
		rec("one", "۱ آگهی"),
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "twelve", got[0].Title)
	assert.Equal(t, "five", got[1].Title)
	assert.Equal(t, "one", got[2].Title)
	assert.Equal(t, "۱۲ آگهی", got[0].Label, "original label text is kept")
}

func TestSortByLabel_TiesKeepInputOrder(t *testing.T) {
	t.Parallel()

	got, err := SortByLabel([]model.CleanedRecord{
		rec("a", "۳ آگهی"),
		rec("b", "۷ آگهی"),
		rec("c", "۳ آگهی"),
		rec("d", "۷ آگهی"),
		rec("e", "۳ آگهی"),
	})
	require.NoError(t, err)

	titles := make([]string, len(got))
	for i, r := range got {
		titles[i] = r.Title
	}
	assert.Equal(t, []string{"b", "d", "a", "c", "e"}, titles)
}

func TestSortByLabel_InvalidLabel(t *testing.T) {
	t.Parallel()

	_, err := SortByLabel([]model.CleanedRecord{rec("ok", "۵ آگهی"), rec("bad", "")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, label.ErrInvalidLabel))
	assert.Contains(t, err.Error(), "record 1 (bad-slug)")
}

func seedCleaned(t *testing.T, st store.Store, name string, records ...model.CleanedRecord) {
	t.Helper()
	require.NoError(t, store.AppendItems(context.Background(), st, model.CleanedCollection(name), records...))
}

func TestExport(t *testing.T) {
	st := store.NewMemory()
	seedCleaned(t, st, "personal",
		model.CleanedRecord{Title: "A", Slug: "a", Subtitle: "s", PhoneNumber: "0912", ImageURL: "u", Label: "۵ آگهی"},
		model.CleanedRecord{Title: "B", Slug: "b", Label: "۱۲ آگهی"},
		model.CleanedRecord{Title: "C", Slug: "c", Label: "۱ آگهی"},
	)
	dir := filepath.Join(t.TempDir(), "out")

	path, err := New(st, dir).Export(context.Background(), "personal")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "personal.xlsx"), path)

	rows, err := ReadArtifact(path)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"", "title", "slug", "subtitle", "phone_number", "image_url", "label"}, rows[0])
	assert.Equal(t, []string{"1", "B", "b", "", "", "", "۱۲ آگهی"}, rows[1])
	assert.Equal(t, []string{"2", "A", "a", "s", "0912", "u", "۵ آگهی"}, rows[2])
	assert.Equal(t, []string{"3", "C", "c", "", "", "", "۱ آگهی"}, rows[3])
}

func TestBuildWorkbook_HeaderIsBoldAndColumnsSized(t *testing.T) {
	t.Parallel()

	f, err := buildWorkbook([]model.CleanedRecord{rec("x", "۲ آگهی")})
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]

	require.Len(t, sheet.Rows, 2)
	assert.False(t, sheet.Rows[0].Cells[0].GetStyle().Font.Bold)
	assert.True(t, sheet.Rows[0].Cells[1].GetStyle().Font.Bold)
	require.GreaterOrEqual(t, sheet.Cols.Len, 2)
	assert.Equal(t, float64(indexWidth), sheet.Cols.FindColByIndex(0).Width)
	assert.Equal(t, float64(columnWidth), sheet.Cols.FindColByIndex(1).Width)
}

func TestExport_EmptyCollection(t *testing.T) {
	_, err := New(store.NewMemory(), t.TempDir()).Export(context.Background(), "personal")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyCollection))
}

func TestExport_BadLabelWritesNothing(t *testing.T) {
	st := store.NewMemory()
	seedCleaned(t, st, "personal", rec("a", "۵ آگهی"), rec("b", "n/a"))
	e := New(st, t.TempDir())

	_, err := e.Export(context.Background(), "personal")
	require.Error(t, err)
	assert.True(t, errors.Is(err, label.ErrInvalidLabel))
	assert.NoFileExists(t, e.Path("personal"))
}

func TestReadArtifact_Missing(t *testing.T) {
	rows, err := ReadArtifact(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.NoError(t, err)
	assert.Nil(t, rows)
}
