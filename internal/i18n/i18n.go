// Package i18n serves the message catalog. Files under locales/ hold
// one top-level language code each, with nested sections flattened to
// dot keys: builder.send_token, gate.subscribe_first and so on.
package i18n

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultDir = "internal/i18n/locales"

// Translator resolves a dot key to the message text for one language.
// A missing key falls back to the default language, then to the key
// itself, so a typo shows up in chat instead of as an empty bubble.
type Translator interface {
	T(key string) string
	Lang() string
}

type catalog map[string]map[string]string

// Manager holds every loaded language and hands out Translators.
type Manager struct {
	byLang      catalog
	defaultLang string
}

// Load reads the catalog from the standard locales directory.
func Load(defaultLang string) (*Manager, error) {
	return LoadFromDir(defaultDir, defaultLang)
}

// LoadFromDir reads every YAML file in dir and merges them into one
// catalog. The default language must end up present.
func LoadFromDir(dir, defaultLang string) (*Manager, error) {
	if defaultLang == "" {
		defaultLang = "en"
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read dir %s: %w", dir, err)
	}

	merged := catalog{}
	found := false
	for _, e := range entries {
		name := strings.ToLower(e.Name())
		if e.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		found = true

		if err := mergeFile(merged, filepath.Join(dir, e.Name())); err != nil {
			return nil, err
		}
	}
	if !found {
		return nil, fmt.Errorf("i18n: no yaml files in %s", dir)
	}

	if merged[defaultLang] == nil {
		return nil, fmt.Errorf("i18n: default language %q not loaded", defaultLang)
	}

	return &Manager{byLang: merged, defaultLang: defaultLang}, nil
}

// Translator returns the translator for lang, or for the default
// language when lang is unknown.
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}

	lang = strings.ToLower(strings.TrimSpace(lang))
	if m.byLang[lang] == nil {
		lang = m.defaultLang
	}
	return translator{lang: lang, def: m.defaultLang, byLang: m.byLang}
}

// Languages lists every language code in the catalog.
func (m *Manager) Languages() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.byLang))
	for lang := range m.byLang {
		out = append(out, lang)
	}
	return out
}

type translator struct {
	lang   string
	def    string
	byLang catalog
}

func (t translator) Lang() string { return t.lang }

func (t translator) T(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if msg := t.byLang[t.lang][key]; msg != "" {
		return msg
	}
	if msg := t.byLang[t.def][key]; msg != "" {
		return msg
	}
	return key
}

func mergeFile(dst catalog, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("i18n: read %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil
	}

	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("i18n: parse %s: %w", path, err)
	}

	for lang, tree := range root {
		lang = strings.ToLower(strings.TrimSpace(lang))
		section, ok := asMap(tree)
		if lang == "" || !ok {
			continue
		}

		if dst[lang] == nil {
			dst[lang] = make(map[string]string)
		}
		walk("", section, dst[lang])
	}
	return nil
}

// walk flattens nested sections into dot keys.
func walk(prefix string, node map[string]any, out map[string]string) {
	for key, value := range node {
		if key == "" {
			continue
		}
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}

		if msg, ok := value.(string); ok {
			out[full] = msg
			continue
		}
		if child, ok := asMap(value); ok {
			walk(full, child, out)
		}
	}
}

// asMap accepts both map shapes yaml.v3 can produce.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[interface{}]any:
		out := make(map[string]any, len(m))
		for k, item := range m {
			if s, ok := k.(string); ok {
				out[s] = item
			}
		}
		return out, true
	default:
		return nil, false
	}
}
