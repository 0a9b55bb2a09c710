// Package skills canonicalizes free-text technology names and splits keyword
// input into tokens.
package skills

import (
	"strings"
	"unicode"
)

// aliases collapses common spellings of a technology to one canonical token.
// Keys are already stripped to [a-z0-9]. Every value maps to itself so that
// Normalize stays idempotent.
var aliases = map[string]string{
	"reactjs": "react",
	"react":   "react",

	"nodejs": "node",
	"node":   "node",

	"csharp": "csharp",
	"cs":     "csharp",
	"c":      "csharp",

	"cplusplus": "cpp",
	"cpp":       "cpp",

	"dotnet":     "dotnet",
	"net":        "dotnet",
	"netcore":    "dotnet",
	"aspnet":     "dotnet",
	"aspnetcore": "dotnet",

	"k8s":        "kubernetes",
	"kubernetes": "kubernetes",

	"golang": "go",
	"go":     "go",

	"typescript": "typescript",
	"javascript": "javascript",
}

// Normalize lower-cases raw, drops every rune outside [a-z0-9] and applies the
// alias table. "React.js", "react" and "REACT" all become "react".
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	stripped := b.String()
	if canonical, ok := aliases[stripped]; ok {
		return canonical
	}
	return stripped
}

// Tokenize splits s on whitespace and commas and lower-cases each piece.
// Empty pieces are dropped; order is preserved.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

// NormalizeAll maps Normalize over names.
func NormalizeAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = Normalize(n)
	}
	return out
}
