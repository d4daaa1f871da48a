package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDir(t *testing.T) {
	m, err := LoadFromDir("locales", "uz")
	require.NoError(t, err)

	tr := m.Translator("uz")
	assert.Equal(t, "uz", tr.Lang())
	assert.Equal(t, "❌ Xatolik yuz berdi", tr.T("common.error"))
	assert.Contains(t, tr.T("builder.welcome"), "/newbot")
}

func TestTranslator_FallbackToKey(t *testing.T) {
	m, err := LoadFromDir("locales", "uz")
	require.NoError(t, err)

	tr := m.Translator("uz")
	assert.Equal(t, "no.such.key", tr.T("no.such.key"))
}

func TestTranslator_UnknownLanguageUsesDefault(t *testing.T) {
	m, err := LoadFromDir("locales", "uz")
	require.NoError(t, err)

	tr := m.Translator("de")
	assert.Equal(t, "uz", tr.Lang())
}

func TestLoadFromDir_MissingDefault(t *testing.T) {
	_, err := LoadFromDir("locales", "fr")
	assert.Error(t, err)
}
