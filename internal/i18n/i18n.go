// Package i18n translates user-facing CLI messages.
//
// Messages are keyed by their English text, so English needs no catalog
// entries. Polish translations live in catalog.go.
package i18n

import (
	"os"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// EnvLang forces the interface language.
const EnvLang = "EPHETZNER_LANG"

var (
	English = language.English
	Polish  = language.Polish
)

var (
	mu      sync.RWMutex
	current = English
	printer = message.NewPrinter(English, message.Catalog(messages))

	messages = newCatalog()
)

// Detect picks the language from EPHETZNER_LANG, then LC_ALL, LC_MESSAGES
// and LANG. Anything that is not Polish falls back to English.
func Detect() language.Tag {
	for _, env := range []string{EnvLang, "LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return Normalize(v)
		}
	}
	return English
}

// Normalize maps a locale string such as "pl_PL.UTF-8" to a supported tag.
func Normalize(locale string) language.Tag {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(locale), "-", "_"))
	if i := strings.IndexAny(slug, ".@"); i >= 0 {
		slug = slug[:i]
	}
	if strings.HasPrefix(slug, "pl") {
		return Polish
	}
	return English
}

// SetLanguage switches the active language.
func SetLanguage(tag language.Tag) {
	mu.Lock()
	defer mu.Unlock()

	current = tag
	printer = message.NewPrinter(tag, message.Catalog(messages))
}

// Language returns the active language.
func Language() language.Tag {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// T formats key in the active language. Keys are fmt format strings.
func T(key string, args ...any) string {
	mu.RLock()
	p := printer
	mu.RUnlock()
	return p.Sprintf(key, args...)
}

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(English))
	for key, msg := range polish {
		// SetString only fails for malformed message trees.
		_ = b.SetString(Polish, key, msg)
	}
	return b
}
