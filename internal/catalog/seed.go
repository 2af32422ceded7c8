package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"vocab-tiers-service/internal/domain"
)

//go:embed seed.yaml
var seedYAML []byte

// Document is the YAML schema of a catalog file.
type Document struct {
	Tiers  []domain.Tier  `json:"tiers" yaml:"tiers"`
	Words  []domain.Word  `json:"words" yaml:"words"`
	Badges []domain.Badge `json:"badges" yaml:"badges"`
}

// FromDocument validates doc into a Catalog.
func FromDocument(doc Document) (*Catalog, error) {
	return New(doc.Words, doc.Tiers, doc.Badges)
}

// Parse decodes and validates a YAML catalog document.
func Parse(r io.Reader) (*Catalog, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return FromDocument(doc)
}

// LoadFile parses the catalog at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Default returns the built-in vocabulary.
func Default() (*Catalog, error) {
	return Parse(bytes.NewReader(seedYAML))
}

// SeedDocument returns the built-in vocabulary undecoded into a Catalog, for
// seeding external stores.
func SeedDocument() (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(seedYAML, &doc); err != nil {
		return Document{}, fmt.Errorf("decode seed: %w", err)
	}
	return doc, nil
}
