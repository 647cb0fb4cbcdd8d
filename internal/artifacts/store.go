package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Store persists per-run stage artifacts under a results root, one
// directory per pipeline per trade date. Writes are atomic: marshal to a
// temp file in the target directory, then rename. A stage artifact is
// durable before the next stage starts.
type Store struct {
	root string
}

// New creates a store rooted at dir.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the results root directory.
func (s *Store) Root() string {
	return s.root
}

// ScreenDir returns the screen-pipeline directory for a trade date.
func (s *Store) ScreenDir(tradeDate string) string {
	return filepath.Join(s.root, "screener", tradeDate)
}

// IterationDir returns the iteration-pipeline directory for a trade date.
func (s *Store) IterationDir(tradeDate string) string {
	return filepath.Join(s.root, "iteration", tradeDate)
}

// WriteJSON atomically writes v as indented JSON to dir/name.
func (s *Store) WriteJSON(dir, name string, v any) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact %s: %w", name, err)
	}
	return atomicWrite(filepath.Join(dir, name), data)
}

// WriteText atomically writes raw text to dir/name.
func (s *Store) WriteText(dir, name, text string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return atomicWrite(filepath.Join(dir, name), []byte(text))
}

// ReadJSON unmarshals dir/name into v.
func (s *Store) ReadJSON(dir, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal artifact %s: %w", name, err)
	}
	return nil
}

// Exists reports whether dir/name is present.
func (s *Store) Exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

// ScreenDates lists trade dates with screen-pipeline output, ascending,
// up to and including maxDate.
func (s *Store) ScreenDates(maxDate string) ([]string, error) {
	root := filepath.Join(s.root, "screener")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list screener dates: %w", err)
	}
	var dates []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse("2006-01-02", e.Name()); err != nil {
			continue
		}
		if e.Name() <= maxDate {
			dates = append(dates, e.Name())
		}
	}
	sort.Strings(dates)
	return dates, nil
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to publish artifact: %w", err)
	}
	return nil
}
