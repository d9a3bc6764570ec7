package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LoadFile reads a catalog snapshot from a JSON file containing an array of
// listings. The snapshot is validated before being returned.
func LoadFile(path string) ([]Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog file %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a catalog snapshot from r and validates it.
func Load(r io.Reader) ([]Listing, error) {
	var listings []Listing
	if err := json.NewDecoder(r).Decode(&listings); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if err := Validate(listings); err != nil {
		return nil, err
	}
	return listings, nil
}
