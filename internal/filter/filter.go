// Package filter narrows a transaction snapshot for display.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// Spec holds the active criteria. A zero field places no constraint.
type Spec struct {
	Type       core.EntryType
	CategoryID int64
	Search     string
}

// Active reports whether any criterion is set.
func (s Spec) Active() bool {
	return s.Type != "" || s.CategoryID != 0 || s.Search != ""
}

// Reset clears every criterion.
func (s *Spec) Reset() {
	*s = Spec{}
}

// Match reports whether t satisfies every set criterion. Search is a
// case-insensitive substring match on the description.
func (s Spec) Match(t core.Transaction) bool {
	if s.Type != "" && t.Type != s.Type {
		return false
	}
	if s.CategoryID != 0 && t.CategoryID != s.CategoryID {
		return false
	}
	if s.Search != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(s.Search)) {
		return false
	}
	return true
}

// Apply returns the matching transactions in their original order. The input
// is not modified.
func (s Spec) Apply(txns []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txns))
	for _, t := range txns {
		if s.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// ParseCategoryID converts a category selection to an id. Empty means no
// category filter.
func ParseCategoryID(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 {
		return 0, &core.ValidationError{Field: "category_id", Message: fmt.Sprintf("invalid category %q", v)}
	}
	return id, nil
}

// ParseType converts a type selection. Empty means both types.
func ParseType(v string) (core.EntryType, error) {
	t := core.EntryType(strings.ToLower(strings.TrimSpace(v)))
	if t == "" || t.Valid() {
		return t, nil
	}
	return "", core.ErrInvalidType
}
