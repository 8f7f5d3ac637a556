// Package storage implements the append-only versioned registration store
// and the poll-cycle run lock.
//
// Directory layout per identity:
//
//	<dir>/parent_at_example.com/
//	    v1_2026-08-20T10-30-00Z.json
//	    v2_2026-08-28T14-22-10Z.json
//	    current.json                  # copy of the latest version
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"meister-eder/domain"
)

var versionFileRe = regexp.MustCompile(`^v(\d+)_.*\.json$`)

// RegistrationStore persists immutable registration versions as JSON files.
// Writes are serialized per identity so concurrent completions across
// channels can never race on version numbers.
type RegistrationStore struct {
	dir string
	log *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRegistrationStore(dir string, log *slog.Logger) (*RegistrationStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create registration dir: %w", err)
	}
	return &RegistrationStore{dir: dir, log: log, locks: map[string]*sync.Mutex{}}, nil
}

// identityLock returns the mutex serializing writes for one identity,
// creating it on first use.
func (s *RegistrationStore) identityLock(identity string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := identityKey(identity)
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// SaveResult reports the version a completion attempt resolved to. Created
// is false when the content was identical to the current version and no new
// version was written.
type SaveResult struct {
	Version int
	Created bool
}

// SaveVersion appends a new immutable version for identity, updates
// current.json and returns the assigned version number. Writing identical
// content twice is a no-op (idempotent completion retries).
func (s *RegistrationStore) SaveVersion(identity string, rec domain.RegistrationRecord) (SaveResult, error) {
	lock := s.identityLock(identity)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.Current(identity)
	if err != nil {
		return SaveResult{}, err
	}
	if current != nil && domain.EqualContent(current.RegistrationData, rec.RegistrationData) {
		return SaveResult{Version: current.Metadata.Version, Created: false}, nil
	}

	rec.Metadata.Version = 1
	if rec.Metadata.SubmittedAt.IsZero() {
		rec.Metadata.SubmittedAt = time.Now().UTC()
	}
	if current != nil {
		rec.Metadata.Version = current.Metadata.Version + 1
		rec.Metadata.ChangeSummary = domain.Diff(current.RegistrationData, rec.RegistrationData)
	}

	regDir := filepath.Join(s.dir, identityKey(identity))
	if err := os.MkdirAll(regDir, 0o755); err != nil {
		return SaveResult{}, err
	}

	ts := rec.Metadata.SubmittedAt.Format("2006-01-02T15-04-05Z")
	versionPath := filepath.Join(regDir, fmt.Sprintf("v%d_%s.json", rec.Metadata.Version, ts))
	if err := writeAtomic(versionPath, rec); err != nil {
		return SaveResult{}, fmt.Errorf("version write failed: %w", err)
	}
	if err := writeAtomic(filepath.Join(regDir, "current.json"), rec); err != nil {
		return SaveResult{}, fmt.Errorf("current pointer write failed: %w", err)
	}

	s.log.Info("Saved registration version", "identity", identity, "version", rec.Metadata.Version)
	return SaveResult{Version: rec.Metadata.Version, Created: true}, nil
}

// Current resolves the current pointer, or nil when the identity has no
// completed registration yet.
func (s *RegistrationStore) Current(identity string) (*domain.RegistrationRecord, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, identityKey(identity), "current.json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec domain.RegistrationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("corrupt current.json for %s: %w", identity, err)
	}
	return &rec, nil
}

// History returns every version for identity in chronological order.
func (s *RegistrationStore) History(identity string) ([]domain.RegistrationRecord, error) {
	regDir := filepath.Join(s.dir, identityKey(identity))
	entries, err := os.ReadDir(regDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	type versioned struct {
		version int
		rec     domain.RegistrationRecord
	}
	var records []versioned
	for _, entry := range entries {
		m := versionFileRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		version, _ := strconv.Atoi(m[1])
		raw, err := os.ReadFile(filepath.Join(regDir, entry.Name()))
		if err != nil {
			s.log.Warn("Could not read registration version", "file", entry.Name(), "error", err)
			continue
		}
		var rec domain.RegistrationRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.log.Warn("Skipping corrupt registration version", "file", entry.Name())
			continue
		}
		records = append(records, versioned{version: version, rec: rec})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].version < records[j].version })
	return lo.Map(records, func(v versioned, _ int) domain.RegistrationRecord { return v.rec }), nil
}

// Filter narrows the export read path. Zero values mean "no constraint";
// constraints combine with AND.
type Filter struct {
	From    time.Time
	To      time.Time
	Type    domain.PlaygroupType
	Day     domain.Weekday
	Channel domain.Channel
}

func (f Filter) matches(rec domain.RegistrationRecord) bool {
	if !f.From.IsZero() && rec.Metadata.SubmittedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && rec.Metadata.SubmittedAt.After(f.To) {
		return false
	}
	if f.Type != "" && !lo.Contains(rec.Booking.PlaygroupTypes, f.Type) {
		return false
	}
	if f.Day != "" {
		if !lo.ContainsBy(rec.Booking.SelectedDays, func(d domain.BookingDay) bool { return d.Day == f.Day }) {
			return false
		}
	}
	if f.Channel != "" && rec.Metadata.Channel != f.Channel {
		return false
	}
	return true
}

// List returns the current registration of every identity that passes the
// filter, sorted by submission time.
func (s *RegistrationStore) List(filter Filter) ([]domain.RegistrationRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []domain.RegistrationRecord
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.dir, entry.Name(), "current.json"))
		if err != nil {
			continue
		}
		var rec domain.RegistrationRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.log.Warn("Skipping corrupt current.json", "dir", entry.Name())
			continue
		}
		if filter.matches(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Metadata.SubmittedAt.Before(out[j].Metadata.SubmittedAt)
	})
	return out, nil
}

// identityKey converts an identity to a safe directory name:
// "parent@example.com" → "parent_at_example.com".
func identityKey(identity string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(identity)), "@", "_at_")
	key = strings.ReplaceAll(key, string(filepath.Separator), "_")
	return key
}

// writeAtomic writes via a temp file and rename so readers never observe a
// partial version file.
func writeAtomic(path string, rec domain.RegistrationRecord) error {
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
