package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	timestampLayout = "20060102_150405"
	inputSuffix     = "_input_data.json"
	finalSuffix     = "_final_data.json"
)

// KST is the zone used for record file names.
var KST = time.FixedZone("KST", 9*60*60)

var recordName = regexp.MustCompile(`^(.+)_(\d{8}_\d{6})(?:-(\d+))?_(input|final)_data\.json$`)

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9._@-]`)

// FileStore writes each record as a JSON file into one or more directories.
// Reads use the first directory.
type FileStore struct {
	dirs []string
	now  func() time.Time // injectable for testing
	mu   sync.Mutex
}

// NewFileStore creates the directories if needed.
func NewFileStore(dirs ...string) (*FileStore, error) {
	var clean []string
	for _, d := range dirs {
		if strings.TrimSpace(d) == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		clean = append(clean, d)
	}
	if len(clean) == 0 {
		return nil, errors.New("file store requires at least one directory")
	}
	return &FileStore{dirs: clean, now: time.Now}, nil
}

// Dirs returns the directories records are written to.
func (s *FileStore) Dirs() []string {
	return append([]string(nil), s.dirs...)
}

// SaveInput writes {id}_{timestamp}_input_data.json.
func (s *FileStore) SaveInput(_ context.Context, rec InputRecord) (string, error) {
	rec.ID = normalizeID(rec.ID)
	if rec.Top3Region == nil {
		rec.Top3Region = []string{}
	}
	return s.write(rec.ID, inputSuffix, rec)
}

// SaveSelection writes {id}_{timestamp}_final_data.json.
func (s *FileStore) SaveSelection(_ context.Context, rec SelectionRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	rec.ID = strings.TrimSpace(rec.ID)
	return s.write(rec.ID, finalSuffix, rec)
}

func (s *FileStore) write(id, suffix string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	base := fileID(id) + "_" + s.now().In(KST).Format(timestampLayout)

	var (
		written string
		errs    []error
	)
	for _, dir := range s.dirs {
		name, err := createUnique(dir, base, suffix, data)
		if err != nil {
			slog.Warn("Failed to write record", "dir", dir, "error", err)
			errs = append(errs, err)
			continue
		}
		slog.Debug("Saved record", "path", filepath.Join(dir, name))
		if written == "" {
			written = name
		}
	}
	if written == "" {
		return "", fmt.Errorf("save record: %w", errors.Join(errs...))
	}
	return written, nil
}

func createUnique(dir, base, suffix string, data []byte) (string, error) {
	for n := 1; n < 1000; n++ {
		name := base + suffix
		if n > 1 {
			name = fmt.Sprintf("%s-%d%s", base, n, suffix)
		}
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", err
		}
		return name, f.Close()
	}
	return "", fmt.Errorf("too many records named %s in %s", base, dir)
}

// Inputs reads input records from the first directory.
func (s *FileStore) Inputs(_ context.Context, userID string) ([]InputRecord, error) {
	var out []InputRecord
	err := s.scan("input", userID, func(data []byte, savedAt time.Time) error {
		var rec InputRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if userID != "" && normalizeID(rec.ID) != normalizeID(userID) {
			return nil
		}
		rec.SavedAt = savedAt
		out = append(out, rec)
		return nil
	})
	return out, err
}

// Selections reads selection records from the first directory.
func (s *FileStore) Selections(_ context.Context, userID string) ([]SelectionRecord, error) {
	var out []SelectionRecord
	err := s.scan("final", userID, func(data []byte, savedAt time.Time) error {
		var rec SelectionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if userID != "" && normalizeID(rec.ID) != normalizeID(userID) {
			return nil
		}
		rec.SavedAt = savedAt
		out = append(out, rec)
		return nil
	})
	return out, err
}

func (s *FileStore) scan(kind, userID string, decode func([]byte, time.Time) error) error {
	dir := s.dirs[0]
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read store directory: %w", err)
	}

	type match struct {
		name    string
		id      string
		savedAt time.Time
		seq     int
	}
	var matches []match
	want := ""
	if userID != "" {
		want = fileID(userID)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := recordName.FindStringSubmatch(e.Name())
		if m == nil || m[4] != kind {
			continue
		}
		if want != "" && m[1] != want {
			continue
		}
		ts, err := time.ParseInLocation(timestampLayout, m[2], KST)
		if err != nil {
			continue
		}
		seq := 1
		if m[3] != "" {
			seq, _ = strconv.Atoi(m[3])
		}
		matches = append(matches, match{name: e.Name(), id: m[1], savedAt: ts, seq: seq})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if !a.savedAt.Equal(b.savedAt) {
			return a.savedAt.Before(b.savedAt)
		}
		if a.id != b.id {
			return a.id < b.id
		}
		return a.seq < b.seq
	})

	for _, m := range matches {
		data, err := os.ReadFile(filepath.Join(dir, m.name))
		if err != nil {
			return fmt.Errorf("read %s: %w", m.name, err)
		}
		if err := decode(data, m.savedAt); err != nil {
			slog.Warn("Skipping unreadable record", "file", m.name, "error", err)
		}
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }

// fileID makes an id safe to embed in a file name. Distinct ids can share a
// file name prefix, so reads also compare the id stored in the record.
func fileID(id string) string {
	return unsafeIDChars.ReplaceAllString(normalizeID(id), "_")
}
