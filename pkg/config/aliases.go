package config

import "github.com/cmaudit/claimscope/pkg/catalog"

// Aliases maps version spellings to their canonical version. The zero value
// maps every version to itself.
type Aliases struct {
	m map[string]string
}

// NewAliases builds an alias table; keys and values are cleaned.
func NewAliases(m map[string]string) Aliases {
	a := Aliases{m: make(map[string]string, len(m))}
	for k, v := range m {
		a.m[catalog.Clean(k)] = catalog.CleanVersion(v)
	}
	return a
}

// Canonical returns the canonical form of a version label.
func (a Aliases) Canonical(version string) string {
	v := catalog.CleanVersion(version)
	if c, ok := a.m[v]; ok {
		return c
	}
	return v
}

// Map returns a copy of the alias table.
func (a Aliases) Map() map[string]string {
	out := make(map[string]string, len(a.m))
	for k, v := range a.m {
		out[k] = v
	}
	return out
}
