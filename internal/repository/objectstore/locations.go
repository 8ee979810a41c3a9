package objectstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/nyulibraries/ultraviolet-cli/internal/config"
)

// LocationRegistry resolves named storage locations. Statically configured
// locations come from the config file; locations created at runtime are
// persisted to a small JSON registry file so later commands and rollbacks can
// find them.
type LocationRegistry struct {
	path    string
	static  map[string]config.LocationConfig
	created map[string]config.LocationConfig
}

// NewLocationRegistry loads the registry at path layered over the statically
// configured locations.
func NewLocationRegistry(path string, static map[string]config.LocationConfig) (*LocationRegistry, error) {
	r := &LocationRegistry{
		path:    path,
		static:  static,
		created: make(map[string]config.LocationConfig),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading location registry %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &r.created); err != nil {
		return nil, fmt.Errorf("parsing location registry %s: %w", path, err)
	}
	return r, nil
}

// Resolve returns the location with the given name, if known.
func (r *LocationRegistry) Resolve(name string) (config.LocationConfig, bool) {
	if loc, ok := r.created[name]; ok {
		return loc, true
	}
	loc, ok := r.static[name]
	return loc, ok
}

// Ensure returns the named location, creating it when it does not exist yet.
// A created location lives under the base location's bucket with a generated
// prefix. The second return reports whether this call created it, so the
// caller can roll it back if the operation it backs fails.
func (r *LocationRegistry) Ensure(name string, base config.LocationConfig) (config.LocationConfig, bool, error) {
	if loc, ok := r.Resolve(name); ok {
		return loc, false, nil
	}

	generated := strings.ToLower(fmt.Sprintf("loc-%s", uuid.New()))
	loc := config.LocationConfig{
		Platform: base.Platform,
		Bucket:   base.Bucket,
		Prefix:   generated,
	}
	r.created[name] = loc
	if err := r.save(); err != nil {
		delete(r.created, name)
		return config.LocationConfig{}, false, err
	}
	return loc, true, nil
}

// Remove drops a runtime-created location from the registry. Statically
// configured locations cannot be removed.
func (r *LocationRegistry) Remove(name string) error {
	if _, ok := r.created[name]; !ok {
		return fmt.Errorf("location %q was not created by this registry", name)
	}
	removed := r.created[name]
	delete(r.created, name)
	if err := r.save(); err != nil {
		r.created[name] = removed
		return err
	}
	return nil
}

func (r *LocationRegistry) save() error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating registry directory: %w", err)
		}
	}
	data, err := json.Marshal(r.created)
	if err != nil {
		return fmt.Errorf("encoding location registry: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("writing location registry %s: %w", r.path, err)
	}
	return nil
}
