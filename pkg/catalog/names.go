package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/width"
)

// Fold maps full-width ASCII and punctuation to half-width and half-width
// kana to their standard forms. Wide characters are left alone.
func Fold(s string) string {
	return width.Fold.String(s)
}

// Clean folds, lower-cases and trims a name.
func Clean(s string) string {
	return strings.ToLower(strings.TrimSpace(Fold(s)))
}

// CleanVersion is Clean with the generic default for blank versions.
func CleanVersion(s string) string {
	v := Clean(s)
	if v == "" {
		return GenericVersion
	}
	return v
}

func isNameSeparator(r rune) bool {
	return r == ',' || r == '，' || r == '|'
}

// SplitNames splits a multi-valued artist field on comma, fullwidth comma
// and pipe. Parts are cleaned and empty parts dropped.
func SplitNames(s string) []string {
	fields := strings.FieldsFunc(s, isNameSeparator)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = Clean(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// JoinSorted de-duplicates, sorts and comma-joins names.
func JoinSorted(names []string) string {
	seen := make(map[string]struct{}, len(names))
	uniq := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		uniq = append(uniq, n)
	}
	sort.Strings(uniq)
	return strings.Join(uniq, ",")
}
