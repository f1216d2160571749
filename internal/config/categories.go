package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Category names one destination folder and the extensions routed to it.
type Category struct {
	Name       string   `toml:"name" json:"name"`
	Extensions []string `toml:"extensions" json:"extensions"`
}

// CategoryMap is the ordered extension -> category table. Order matters:
// when an extension is listed under more than one category, the first one
// declared wins.
//
// In JSON it is an object whose key order is preserved
// ({"Images": [".jpg"], ...}) or an array of {name, extensions}; in TOML it is
// an array of tables.
type CategoryMap []Category

// UnmarshalJSON decodes either the object or the array form while keeping the
// declared category order.
func (m *CategoryMap) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*m = nil
		return nil
	}
	if trimmed[0] == '[' {
		var list []Category
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("organize_map: %w", err)
		}
		*m = CategoryMap(list)
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("organize_map: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("organize_map: expected object or array, got %v", tok)
	}
	out := CategoryMap{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("organize_map: %w", err)
		}
		name, _ := keyTok.(string)
		var exts []string
		if err := dec.Decode(&exts); err != nil {
			return fmt.Errorf("organize_map.%s: %w", name, err)
		}
		out = append(out, Category{Name: name, Extensions: exts})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("organize_map: %w", err)
	}
	*m = out
	return nil
}

// MarshalJSON writes the object form in declared order.
func (m CategoryMap) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cat := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cat.Name)
		if err != nil {
			return nil, err
		}
		exts := cat.Extensions
		if exts == nil {
			exts = []string{}
		}
		value, err := json.Marshal(exts)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Names returns the category names in declared order.
func (m CategoryMap) Names() []string {
	names := make([]string, 0, len(m))
	for _, cat := range m {
		names = append(names, cat.Name)
	}
	return names
}

// NormalizeExtension lowercases ext and ensures a leading dot. Blank input
// stays blank.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := NormalizeExtension(value)
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}

// normalizeCategories trims names, merges repeated names into the first
// occurrence and normalizes every extension list.
func normalizeCategories(m CategoryMap) CategoryMap {
	out := make(CategoryMap, 0, len(m))
	index := make(map[string]int, len(m))
	for _, cat := range m {
		name := strings.TrimSpace(cat.Name)
		if pos, ok := index[name]; ok {
			out[pos].Extensions = normalizeExtensions(append(out[pos].Extensions, cat.Extensions...))
			continue
		}
		index[name] = len(out)
		out = append(out, Category{Name: name, Extensions: normalizeExtensions(cat.Extensions)})
	}
	return out
}
