// Package category maps file names to destination folder names.
package category

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tidyup/internal/config"
)

// Others receives every file whose extension no category claims.
const Others = "Others"

// Extension returns the lowercased extension of name including the leading
// dot, or "" when name has none.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(filepath.Base(name)))
}

// Resolve returns the first category in m whose extension set contains the
// extension of filename, or Others.
func Resolve(filename string, m config.CategoryMap) string {
	ext := Extension(filename)
	if ext == "" {
		return Others
	}
	for _, cat := range m {
		for _, candidate := range cat.Extensions {
			if strings.EqualFold(candidate, ext) {
				return cat.Name
			}
		}
	}
	return Others
}

// Resolver is an indexed form of a CategoryMap for repeated lookups within a
// run. It resolves exactly like Resolve.
type Resolver struct {
	index map[string]string
}

// NewResolver indexes m; extensions claimed by an earlier category keep that
// category.
func NewResolver(m config.CategoryMap) *Resolver {
	index := make(map[string]string)
	for _, cat := range m {
		for _, ext := range cat.Extensions {
			key := strings.ToLower(ext)
			if _, taken := index[key]; taken {
				continue
			}
			index[key] = cat.Name
		}
	}
	return &Resolver{index: index}
}

// Resolve returns the category for filename.
func (r *Resolver) Resolve(filename string) string {
	if name, ok := r.index[Extension(filename)]; ok && name != "" {
		return name
	}
	return Others
}

// ExtensionFolder returns the folder used by the extension layout: the
// extension without its dot in title case (".jpg" -> "Jpg"), or Others.
func ExtensionFolder(filename string) string {
	ext := strings.TrimPrefix(Extension(filename), ".")
	if ext == "" {
		return Others
	}
	return cases.Title(language.Und).String(ext)
}
