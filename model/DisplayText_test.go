package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestUntranslated(t *testing.T) {
	d := Untranslated("Disk space is too low!")
	assert.Equal(t, "Disk space is too low!", d.Original)
	assert.Equal(t, d.Original, d.Translated)
	assert.False(t, d.Empty())
	assert.True(t, Untranslated("").Empty())
}

func TestTranslateWithNilTranslator(t *testing.T) {
	d := Translate(nil, "hello")
	assert.Equal(t, Untranslated("hello"), d)
}

func TestJoinDisplayText(t *testing.T) {
	joined := JoinDisplayText([]DisplayText{
		{Original: "a", Translated: "A"},
		{Original: "b", Translated: "B"},
	}, "<hr />")

	assert.Equal(t, "a<hr />b", joined.Original)
	assert.Equal(t, "A<hr />B", joined.Translated)

	assert.Equal(t, DisplayText{}, JoinDisplayText(nil, "<hr />"))
}

func TestCatalogTranslator(t *testing.T) {
	tr := NewCatalogTranslator("de")
	assert.Equal(t, "de", tr.Tag().String())

	require.NoError(t, tr.Set(language.German, "Wallet is locked", "Wallet ist gesperrt"))

	d := Translate(tr, "Wallet is locked")
	assert.Equal(t, "Wallet is locked", d.Original)
	assert.Equal(t, "Wallet ist gesperrt", d.Translated)

	// unknown keys, including ones with format verbs, pass through untouched
	assert.Equal(t, "100% full", tr.Translate("100% full"))
}

func TestCatalogTranslatorBadLanguageFallsBack(t *testing.T) {
	tr := NewCatalogTranslator("!!")
	assert.Equal(t, "en", tr.Tag().String())
}

func TestLoadTranslations(t *testing.T) {
	tr := NewCatalogTranslator("de")

	err := tr.LoadTranslations(strings.NewReader(`{"de": {"Wallet locked": "Wallet gesperrt"}, "fr": {"Wallet locked": "Portefeuille verrouillé"}}`))
	require.NoError(t, err)

	assert.Equal(t, "Wallet gesperrt", tr.Translate("Wallet locked"))
	assert.Equal(t, "unknown", tr.Translate("unknown"))
}

func TestLoadTranslationsInvalid(t *testing.T) {
	tr := NewCatalogTranslator("de")

	require.Error(t, tr.LoadTranslations(strings.NewReader(`not json`)))
	require.Error(t, tr.LoadTranslations(strings.NewReader(`{"??-!!": {"a": "b"}}`)))
}
