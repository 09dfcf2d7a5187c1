// Package i18n resolves user-facing strings from embedded locale files.
// Keys use dot notation ("errors.rate_limited") and values may contain
// {placeholder} markers. A missing key resolves to the key itself so a
// translation gap degrades to something greppable instead of a crash.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed locales/*.json
var localeFS embed.FS

// Bundle holds the strings for one loaded locale.
type Bundle struct {
	locale string
	data   map[string]any
}

// Load parses the embedded locale file for the given locale code.
func Load(locale string) (*Bundle, error) {
	raw, err := localeFS.ReadFile("locales/" + locale + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown locale %q: %w", locale, err)
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse locale %q: %w", locale, err)
	}

	return &Bundle{locale: locale, data: data}, nil
}

// Locale returns the locale code this bundle was loaded for.
func (b *Bundle) Locale() string {
	return b.locale
}

// T resolves a dot-notation key. pairs alternate placeholder names and
// values: T("reader.more_comments", "count", "5").
func (b *Bundle) T(key string, pairs ...string) string {
	value := b.lookup(key)
	for i := 0; i+1 < len(pairs); i += 2 {
		value = strings.ReplaceAll(value, "{"+pairs[i]+"}", pairs[i+1])
	}
	return value
}

func (b *Bundle) lookup(key string) string {
	var node any = b.data
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return key
		}
		node, ok = m[part]
		if !ok {
			return key
		}
	}
	s, ok := node.(string)
	if !ok {
		return key
	}
	return s
}
