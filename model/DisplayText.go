package model

import (
	"strings"
)

// DisplayText is a message with both its source form and the form rendered for
// the configured locale. Original is what logs and RPC consumers see,
// Translated is what a UI shows.
type DisplayText struct {
	Original   string
	Translated string
}

// Untranslated wraps text that must never be localised, such as operator
// supplied warnings.
func Untranslated(s string) DisplayText {
	return DisplayText{Original: s, Translated: s}
}

// Translate renders s through t. A nil translator leaves the text as is.
func Translate(t Translator, s string) DisplayText {
	if t == nil {
		return Untranslated(s)
	}

	return DisplayText{Original: s, Translated: t.Translate(s)}
}

func (d DisplayText) Empty() bool {
	return d.Original == ""
}

func (d DisplayText) String() string {
	return d.Original
}

// JoinDisplayText joins texts with sep, keeping the original and translated
// forms aligned.
func JoinDisplayText(texts []DisplayText, sep string) DisplayText {
	originals := make([]string, 0, len(texts))
	translated := make([]string, 0, len(texts))

	for _, t := range texts {
		originals = append(originals, t.Original)
		translated = append(translated, t.Translated)
	}

	return DisplayText{
		Original:   strings.Join(originals, sep),
		Translated: strings.Join(translated, sep),
	}
}
