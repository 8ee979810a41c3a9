// Package ledger persists the mapping from created record identifiers to the
// fixture items they came from. The ledger is a flat JSON object on disk and
// is written back after every mutation, so an interrupted run still leaves a
// valid partial ledger.
//
// A ledger file belongs to a single operator and a single process at a time.
// Concurrent invocations against the same path are unsupported and will race.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Ledger maps recordID -> fixture item identifier.
type Ledger struct {
	path    string
	entries map[string]string
}

// Load opens the ledger at path, creating an empty one when the file does
// not exist yet.
func Load(path string) (*Ledger, error) {
	l := &Ledger{
		path:    path,
		entries: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &l.entries); err != nil {
		return nil, fmt.Errorf("parsing ledger %s: %w", path, err)
	}
	return l, nil
}

// Put records a new mapping and persists the ledger immediately.
func (l *Ledger) Put(recordID, itemID string) error {
	l.entries[recordID] = itemID
	return l.save()
}

// Remove drops a mapping and persists the ledger immediately. Removing an
// unknown id is a no-op.
func (l *Ledger) Remove(recordID string) error {
	if _, ok := l.entries[recordID]; !ok {
		return nil
	}
	delete(l.entries, recordID)
	return l.save()
}

// Entries returns a copy of the current mappings.
func (l *Ledger) Entries() map[string]string {
	out := make(map[string]string, len(l.entries))
	for k, v := range l.entries {
		out[k] = v
	}
	return out
}

// Len returns the number of tracked records.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Path returns the on-disk location of the ledger.
func (l *Ledger) Path() string {
	return l.path
}

func (l *Ledger) save() error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating ledger directory: %w", err)
		}
	}
	data, err := json.Marshal(l.entries)
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("writing ledger %s: %w", l.path, err)
	}
	return nil
}
