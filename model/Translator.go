package model

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/peercoin/warnd/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Translator renders a source message for a locale. Implementations must be
// safe for concurrent use.
type Translator interface {
	Translate(key string) string
}

// CatalogTranslator looks messages up in an x/text catalog. Keys that were
// never registered come back unchanged, so free-form text containing printf
// verbs is never run through the formatter.
type CatalogTranslator struct {
	mu      sync.RWMutex
	tag     language.Tag
	builder *catalog.Builder
	printer *message.Printer
	known   map[string]struct{}
}

func NewCatalogTranslator(lang string) *CatalogTranslator {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}

	builder := catalog.NewBuilder(catalog.Fallback(language.English))

	return &CatalogTranslator{
		tag:     tag,
		builder: builder,
		printer: message.NewPrinter(tag, message.Catalog(builder)),
		known:   make(map[string]struct{}),
	}
}

// Tag returns the locale this translator renders into.
func (c *CatalogTranslator) Tag() language.Tag {
	return c.tag
}

// Set registers the translation of key for lang.
func (c *CatalogTranslator) Set(lang language.Tag, key, translation string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.builder.SetString(lang, key, translation); err != nil {
		return err
	}

	c.known[key] = struct{}{}

	return nil
}

func (c *CatalogTranslator) Translate(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.known[key]; !ok {
		return key
	}

	return c.printer.Sprintf(key)
}

// LoadTranslations reads a JSON document of the form
//
//	{"de": {"source message": "übersetzte Nachricht"}}
//
// and registers every entry.
func (c *CatalogTranslator) LoadTranslations(r io.Reader) error {
	var doc map[string]map[string]string

	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return errors.NewConfigurationError("invalid translations document", err)
	}

	for lang, entries := range doc {
		tag, err := language.Parse(lang)
		if err != nil {
			return errors.NewConfigurationError("invalid language %q in translations", lang, err)
		}

		for key, translation := range entries {
			if err = c.Set(tag, key, translation); err != nil {
				return errors.NewConfigurationError("invalid translation of %q for %s", key, lang, err)
			}
		}
	}

	return nil
}
