package helpers

import "strings"

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

// NilIfEmpty returns nil for blank strings, otherwise a pointer to the trimmed value
func NilIfEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed value or the zero value for nil
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// LikePattern escapes LIKE wildcards and wraps s for a contains match
func LikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}
