package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Format(t *testing.T) {
	dir := t.TempDir()
	s := NewFile(dir, CorruptRestore)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "personal", raw(`{"title":"فروشگاه","data":{"n":1}}`, `{"title":"<b>"}`)))

	data, err := os.ReadFile(filepath.Join(dir, "personal.json"))
	require.NoError(t, err)
	want := `[
    {
        "title": "فروشگاه",
        "data": {
            "n": 1
        }
    },
    {
        "title": "<b>"
    }
]`
	assert.Equal(t, want, string(data))
}

func TestFileStore_EmptyAppendCreatesFile(t *testing.T) {
	dir := t.TempDir()
	s := NewFile(dir, CorruptFail)

	require.NoError(t, s.Append(context.Background(), "empty", nil))

	data, err := os.ReadFile(filepath.Join(dir, "empty.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestFileStore_EmptyFileIsEmptyCollection(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blank.json"), nil, 0o644))
	s := NewFile(dir, CorruptFail)

	require.NoError(t, s.Append(context.Background(), "blank", raw(`1`)))
	got, err := s.Read(context.Background(), "blank")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFileStore_CorruptReset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personal.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"a": 1}, {"broken`), 0o644))
	s := NewFile(dir, CorruptReset)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "personal", raw(`{"x":1}`, `{"x":2}`)))

	got, err := s.Read(ctx, "personal")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.JSONEq(t, `{"x":1}`, string(got[0]))
	assert.JSONEq(t, `{"x":2}`, string(got[1]))
}

func TestFileStore_CorruptFail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personal.json")
	corrupt := []byte(`{"not": "an array"`)
	require.NoError(t, os.WriteFile(path, corrupt, 0o644))
	s := NewFile(dir, CorruptFail)
	ctx := context.Background()

	err := s.Append(ctx, "personal", raw(`1`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptCollection))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, corrupt, data, "file must be left untouched")

	_, err = s.Read(ctx, "personal")
	assert.True(t, errors.Is(err, ErrCorruptCollection))
}

func TestFileStore_CorruptRestoreFromBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personal.json")
	s := NewFile(dir, CorruptRestore)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "personal", raw(`1`)))
	require.NoError(t, s.Append(ctx, "personal", raw(`2`)))
	assert.FileExists(t, path+".bak")

	// Truncated write from some other process.
	require.NoError(t, os.WriteFile(path, []byte(`[1, 2, `), 0o644))

	got, err := s.Read(ctx, "personal")
	require.NoError(t, err)
	assert.Len(t, got, 1, "read falls back to the last snapshot")

	require.NoError(t, s.Append(ctx, "personal", raw(`3`)))
	got, err = s.Read(ctx, "personal")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", string(got[0]))
	assert.Equal(t, "3", string(got[1]))
}

func TestFileStore_CorruptRestoreWithoutBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personal.json")
	require.NoError(t, os.WriteFile(path, []byte(`garbage`), 0o644))
	s := NewFile(dir, CorruptRestore)

	err := s.Append(context.Background(), "personal", raw(`1`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptCollection))
	assert.Contains(t, err.Error(), "no usable backup")
}

func TestFileStore_NullIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "n.json"), []byte(`null`), 0o644))
	s := NewFile(dir, CorruptFail)

	_, err := s.Read(context.Background(), "n")
	assert.True(t, errors.Is(err, ErrCorruptCollection))
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s := NewFile(dir, CorruptRestore)
	ctx := context.Background()

	for range 3 {
		require.NoError(t, s.Append(ctx, "c", raw(`{}`)))
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFileStore_CancelledContext(t *testing.T) {
	s := NewFile(t.TempDir(), CorruptRestore)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Append(ctx, "c", raw(`1`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseCorruptPolicy(t *testing.T) {
	t.Parallel()

	tests := map[string]CorruptPolicy{
		"":        CorruptRestore,
		"restore": CorruptRestore,
		"FAIL":    CorruptFail,
		" reset ": CorruptReset,
	}
	for in, want := range tests {
		got, err := ParseCorruptPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseCorruptPolicy("ignore")
	assert.Error(t, err)
}
