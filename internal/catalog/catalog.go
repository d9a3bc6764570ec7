// Package catalog defines the listing schema and the snapshot loader that
// feeds index rebuilds.
package catalog

import (
	"fmt"
	"strings"

	"github.com/meridian-labs/catalog-search/pkg/errors"
)

// Listing is one catalog entry. ID and Title are required; everything else
// is optional and passed through to search responses untouched.
type Listing struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Price       float64  `json:"price,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// SearchableText concatenates the fields that participate in keyword and
// semantic matching.
func (l Listing) SearchableText() string {
	parts := make([]string, 0, 3+len(l.Tags))
	parts = append(parts, l.Title)
	if l.Description != "" {
		parts = append(parts, l.Description)
	}
	if l.Category != "" {
		parts = append(parts, l.Category)
	}
	parts = append(parts, l.Tags...)
	return strings.Join(parts, " ")
}

// Validate checks the whole snapshot once before a rebuild: ids must be
// unique and non-empty, titles non-empty. Any violation rejects the rebuild.
func Validate(listings []Listing) error {
	if len(listings) == 0 {
		return errors.New(errors.ErrInvalidCatalog, 400, "catalog is empty")
	}
	seen := make(map[string]int, len(listings))
	for i, l := range listings {
		if strings.TrimSpace(l.ID) == "" {
			return errors.Newf(errors.ErrInvalidCatalog, 400, "listing %d has an empty id", i)
		}
		if strings.TrimSpace(l.Title) == "" {
			return errors.Newf(errors.ErrInvalidCatalog, 400, "listing %q has an empty title", l.ID)
		}
		if prev, dup := seen[l.ID]; dup {
			return errors.Newf(errors.ErrInvalidCatalog, 400,
				"duplicate listing id %q at positions %d and %d", l.ID, prev, i)
		}
		seen[l.ID] = i
	}
	return nil
}

// String implements fmt.Stringer for log-friendly output.
func (l Listing) String() string {
	return fmt.Sprintf("%s (%s)", l.ID, l.Title)
}
