package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CorruptPolicy selects how the file store reacts to a collection file that
// does not decode as a JSON array.
type CorruptPolicy string

const (
	// CorruptRestore falls back to the last good snapshot ({name}.json.bak).
	CorruptRestore CorruptPolicy = "restore"
	// CorruptFail returns ErrCorruptCollection and leaves the file alone.
	CorruptFail CorruptPolicy = "fail"
	// CorruptReset treats the corrupt content as an empty collection.
	CorruptReset CorruptPolicy = "reset"
)

// ParseCorruptPolicy parses a policy name; empty selects CorruptRestore.
func ParseCorruptPolicy(s string) (CorruptPolicy, error) {
	switch p := CorruptPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return CorruptRestore, nil
	case CorruptRestore, CorruptFail, CorruptReset:
		return p, nil
	default:
		return "", eris.Errorf("store: unknown corruption policy %q (want restore, fail or reset)", s)
	}
}

const backupSuffix = ".bak"

// FileStore stores each collection as a pretty-printed JSON array in
// {dir}/{name}.json. Writes replace the file atomically. The mutex
// serializes writers within the process only.
type FileStore struct {
	dir       string
	onCorrupt CorruptPolicy
	mu        sync.Mutex
}

// NewFile creates a FileStore rooted at dir.
func NewFile(dir string, onCorrupt CorruptPolicy) *FileStore {
	if dir == "" {
		dir = "."
	}
	if onCorrupt == "" {
		onCorrupt = CorruptRestore
	}
	return &FileStore{dir: dir, onCorrupt: onCorrupt}
}

// Path returns the file backing the named collection.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Migrate creates the store directory.
func (s *FileStore) Migrate(context.Context) error {
	return eris.Wrapf(os.MkdirAll(s.dir, 0o755), "file store: create dir %s", s.dir)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) Append(ctx context.Context, name string, items []json.RawMessage) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(name)
	if err := s.ensureFile(path); err != nil {
		return err
	}

	current, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "file store: read %s", path)
	}

	existing, healthy, err := s.decode(path, current)
	if err != nil {
		return err
	}

	combined := make([]json.RawMessage, 0, len(existing)+len(items))
	combined = append(combined, existing...)
	combined = append(combined, items...)

	data, err := encodeCollection(combined)
	if err != nil {
		return eris.Wrapf(err, "file store: encode %s", name)
	}

	// Snapshot the last good content before it is replaced.
	if s.onCorrupt == CorruptRestore && healthy && len(bytes.TrimSpace(current)) > 0 {
		if err := writeAtomic(path+backupSuffix, current); err != nil {
			return err
		}
	}

	return writeAtomic(path, data)
}

func (s *FileStore) Read(_ context.Context, name string) ([]json.RawMessage, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "file store: read %s", path)
	}

	items, _, err := s.decode(path, data)
	return items, err
}

func (s *FileStore) Stat(ctx context.Context, name string) (CollectionInfo, error) {
	items, err := s.Read(ctx, name)
	if err != nil {
		return CollectionInfo{}, err
	}
	return CollectionInfo{Name: name, Items: len(items)}, nil
}

// ensureFile creates an empty collection file when none exists yet.
func (s *FileStore) ensureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return eris.Wrapf(err, "file store: stat %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "file store: create dir for %s", path)
	}
	return writeAtomic(path, []byte("[]"))
}

// decode parses a collection file, applying the corruption policy when the
// content is not a JSON array. healthy reports whether data itself decoded.
func (s *FileStore) decode(path string, data []byte) (items []json.RawMessage, healthy bool, err error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []json.RawMessage{}, true, nil
	}

	items, decodeErr := decodeCollection(data)
	if decodeErr == nil {
		return items, true, nil
	}

	switch s.onCorrupt {
	case CorruptReset:
		zap.L().Warn("file store: corrupt collection reset to empty",
			zap.String("path", path),
			zap.Error(decodeErr),
		)
		return []json.RawMessage{}, false, nil

	case CorruptRestore:
		backup, readErr := os.ReadFile(path + backupSuffix)
		if readErr == nil {
			if restored, err := decodeCollection(backup); err == nil {
				zap.L().Warn("file store: corrupt collection restored from backup",
					zap.String("path", path),
					zap.Int("items", len(restored)),
					zap.Error(decodeErr),
				)
				return restored, false, nil
			}
		}
		return nil, false, eris.Wrapf(ErrCorruptCollection, "%s: %v (no usable backup)", path, decodeErr)

	default:
		return nil, false, eris.Wrapf(ErrCorruptCollection, "%s: %v", path, decodeErr)
	}
}

func decodeCollection(data []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	if items == nil {
		// A literal null is not a collection.
		return nil, eris.New("collection is null")
	}
	return items, nil
}

// encodeCollection renders items as a JSON array indented by four spaces,
// with non-ASCII and HTML characters written verbatim.
func encodeCollection(items []json.RawMessage) ([]byte, error) {
	if items == nil {
		items = []json.RawMessage{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(items); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// writeAtomic writes data to a temp file in the target directory and renames
// it over path, so readers never observe a partial write.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "file store: create temp for %s", path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "file store: write %s", path)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "file store: sync %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "file store: close %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrapf(err, "file store: rename %s", path)
	}
	return nil
}
