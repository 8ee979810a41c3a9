// Package schema validates JSON payloads against the record and vocabulary
// schemas before any network or storage call is made.
package schema

import (
	"embed"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"

	uverrors "github.com/nyulibraries/ultraviolet-cli/internal/errors"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Record returns the compiled draft-record schema.
func Record() (*gojsonschema.Schema, error) {
	return fromEmbedded("record-v1")
}

// Vocabulary returns the compiled schema for the named vocabulary.
func Vocabulary(name string) (*gojsonschema.Schema, error) {
	return fromEmbedded(name)
}

// FromFile compiles an operator-supplied schema document.
func FromFile(path string) (*gojsonschema.Schema, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", path, err)
	}
	return s, nil
}

func fromEmbedded(name string) (*gojsonschema.Schema, error) {
	doc, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("no embedded schema %q: %w", name, err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("compiling schema %q: %w", name, err)
	}
	return s, nil
}

// Validate checks payload against s and reports the first violation as a
// validation error carrying the offending field path and message. It is a
// pure check with no side effects.
func Validate(payload []byte, s *gojsonschema.Schema) error {
	result, err := s.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return uverrors.Validationf("Invalid JSON input.")
	}
	if result.Valid() {
		return nil
	}
	first := result.Errors()[0]
	return uverrors.Validationf("Invalid data: %s: %s", first.Field(), first.Description())
}
