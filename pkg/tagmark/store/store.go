// Package store holds the hand-written SQL data access for links, tags and
// their associations.
package store

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/mikepea/tagmark/pkg/tagmark/database"
	"gorm.io/gorm"
)

var (
	// ErrImmutableField is returned when an update tries to change a link's
	// owner or saved time.
	ErrImmutableField = errors.New("field cannot be changed after creation")

	// ErrIDOverflow is returned when storage assigns an id that cannot be
	// represented exactly as a JSON number.
	ErrIDOverflow = errors.New("assigned id exceeds safe integer range")

	// ErrEmptyTagName is returned when a tag name normalizes to nothing
	ErrEmptyTagName = errors.New("tag name is empty")
)

// MaxSafeID is the largest id we hand out (2^53 - 1)
const MaxSafeID = 1<<53 - 1

// Stores bundles the three stores over one connection
type Stores struct {
	Tags     *TagStore
	LinkTags *LinkTagStore
	Links    *LinkStore
}

// New creates all stores on the given connection
func New(db *gorm.DB) *Stores {
	limit := database.ParamLimit(db)
	return &Stores{
		Tags:     &TagStore{db: db, paramLimit: limit},
		LinkTags: &LinkTagStore{db: db, paramLimit: limit},
		Links:    &LinkStore{db: db, paramLimit: limit},
	}
}

// NormalizeTagName maps a user-entered tag name to its stored form.
// Names are case-insensitive and may not contain whitespace, since search
// queries are whitespace-tokenized, or commas, which separate tags in a
// bookmark file's TAGS attribute.
func NormalizeTagName(name string) string {
	name = strings.TrimLeft(strings.TrimSpace(name), "#")
	return strings.ToLower(strings.Join(strings.FieldsFunc(name, isTagSeparator), "-"))
}

func isTagSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}

// normalizeTagNames normalizes and deduplicates names, keeping first-seen order
func normalizeTagNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = NormalizeTagName(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func checkID(id int64) (uint, error) {
	if id <= 0 || id > MaxSafeID {
		return 0, fmt.Errorf("%w: %d", ErrIDOverflow, id)
	}
	return uint(id), nil
}

// chunk splits items into slices of at most size elements
func chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

// valuesPlaceholder returns "(?, ?, ...), (?, ?, ...)" for rows x cols
func valuesPlaceholder(rows, cols int) string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"
	var b strings.Builder
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(row)
	}
	return b.String()
}
