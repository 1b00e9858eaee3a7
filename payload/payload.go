// Package payload models the translation document served by the
// translocale API and decodes it.
//
// Document shape:
//
//	{
//	  "data": [
//	    {"languageCode": "en", "name": "English", "nativeName": "English",
//	     "isRtl": false, "translationCount": 2,
//	     "translations": {"common.save": "Save", ...}}
//	  ],
//	  "meta": {"totalKeys": 2, "version": "12", "lastModified": "...",
//	           "supportedLocales": ["en"], "fallbacks": {"en_GB": "en"}, ...}
//	}
//
// Translation order is preserved as served; it drives the key order of the
// generated bundles.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrMalformed marks a document that lacks a required field.
var ErrMalformed = errors.New("malformed translation payload")

// Translation is a single raw key → text pair.
type Translation struct {
	Key  string
	Text string
}

// Translations is an ordered key → text map.
type Translations []Translation

// UnmarshalJSON decodes a JSON object keeping member order. null values
// decode to empty strings.
func (t *Translations) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("translations: expected object, got %v", tok)
	}

	out := Translations{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("translations: %w", err)
		}
		key, _ := keyTok.(string)

		var text *string
		if err := dec.Decode(&text); err != nil {
			return fmt.Errorf("translations: value for %q: %w", key, err)
		}
		tr := Translation{Key: key}
		if text != nil {
			tr.Text = *text
		}
		out = append(out, tr)
	}
	*t = out
	return nil
}

// Map returns the translations as a plain map.
func (t Translations) Map() map[string]string {
	m := make(map[string]string, len(t))
	for _, tr := range t {
		m[tr.Key] = tr.Text
	}
	return m
}

// Language is the data served for one supported language.
type Language struct {
	Code             string       `json:"languageCode"`
	Name             string       `json:"name"`
	NativeName       string       `json:"nativeName"`
	RTL              bool         `json:"isRtl"`
	TranslationCount int          `json:"translationCount"`
	Translations     Translations `json:"translations"`
}

// Meta holds bundle-wide facts shared by every language of a run.
type Meta struct {
	TotalKeys         int               `json:"totalKeys"`
	TotalTranslations int               `json:"totalTranslations"`
	LanguageCount     int               `json:"languageCount"`
	Format            string            `json:"format"`
	Version           string            `json:"version"`
	LastModified      string            `json:"lastModified"`
	SupportedLocales  []string          `json:"supportedLocales"`
	Fallbacks         map[string]string `json:"fallbacks"`
	Project           string            `json:"project"`
}

// Document is a decoded payload.
type Document struct {
	Languages []Language
	Meta      Meta
}

// Language returns the language with the given code.
func (d *Document) Language(code string) (Language, bool) {
	for _, l := range d.Languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

type wireLanguage struct {
	Language
	Translations *Translations `json:"translations"`
}

type wireDocument struct {
	Data *[]wireLanguage `json:"data"`
	Meta Meta            `json:"meta"`
}

// Decode reads a payload document from r.
func Decode(r io.Reader) (*Document, error) {
	var w wireDocument
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.Data == nil {
		return nil, fmt.Errorf("%w: missing data array", ErrMalformed)
	}

	doc := &Document{Meta: w.Meta}
	for i, wl := range *w.Data {
		if wl.Translations == nil {
			return nil, fmt.Errorf("%w: language #%d (%q) has no translations", ErrMalformed, i+1, wl.Code)
		}
		l := wl.Language
		l.Translations = *wl.Translations
		doc.Languages = append(doc.Languages, l)
	}
	doc.Meta.SupportedLocales = dedupe(doc.Meta.SupportedLocales)
	return doc, nil
}

// ReadFile decodes a payload stored on disk.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func dedupe(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
