package mapsource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/walkthru-earth/tilecore/internal/diskstore"
)

// SeenLicenses tracks which map_type_ids have already had their license
// reminder shown to the user, persisted across runs. Switching map type
// while a layer loads from a saved project suppresses the reminder;
// otherwise the first use of each licensed source shows it once.
type SeenLicenses struct {
	mu   sync.Mutex
	path string
	seen map[int]bool
}

// LoadSeenLicenses reads the persisted seen-license set from path, treating
// a missing file as an empty set.
func LoadSeenLicenses(path string) (*SeenLicenses, error) {
	s := &SeenLicenses{path: path, seen: make(map[int]bool)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("license: read %s: %w", path, err)
	}

	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("license: parse %s: %w", path, err)
	}
	for _, id := range ids {
		s.seen[id] = true
	}
	return s, nil
}

// ShouldShow reports whether mapTypeID's license reminder must be shown:
// true only the first time a given map type is used, unless
// suppressFromProjectLoad is set (loading a saved project never nags).
func (s *SeenLicenses) ShouldShow(mapTypeID int, suppressFromProjectLoad bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if suppressFromProjectLoad {
		return false
	}
	return !s.seen[mapTypeID]
}

// MarkSeen records mapTypeID as acknowledged and persists the set.
func (s *SeenLicenses) MarkSeen(mapTypeID int) error {
	s.mu.Lock()
	s.seen[mapTypeID] = true
	ids := make([]int, 0, len(s.seen))
	for id := range s.seen {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("license: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("license: mkdir: %w", err)
	}
	return diskstore.WriteAtomic(s.path, data)
}
