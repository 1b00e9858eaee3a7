package bundle

import (
	"fmt"
	"strings"

	"github.com/minios-linux/translocale/arbfile"
)

// Bundle-level attribute keys.
const (
	LanguageNameKey = "@@languageName"
	NativeNameKey   = "@@nativeName"
	RTLKey          = "@@isRtl"
	KeyMappingKey   = "@@translocaleKeyMapping"
	VersionKey      = "@@version"
	LastModifiedKey = "@@lastModified"
)

// FileName returns the ARB file name for locale: "<prefix>_<locale>.arb"
// with hyphens in the locale replaced by underscores.
func FileName(prefix, locale string) string {
	return prefix + "_" + strings.ReplaceAll(locale, "-", "_") + ".arb"
}

// KeyMappingJSON renders the raw key → identifier mapping as a JSON object
// string. A key that appears twice keeps its last identifier.
func (b *Bundle) KeyMappingJSON() (string, error) {
	m := make(map[string]string, len(b.KeyMapping))
	for _, km := range b.KeyMapping {
		m[km.Key] = km.Identifier
	}
	data, err := arbfile.Encode(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ARB converts the bundle to an ARB document with a fixed member order.
func (b *Bundle) ARB() (*arbfile.File, error) {
	f := arbfile.New(b.Locale)

	set := func(key string, v any) error {
		if err := f.SetMeta(key, v); err != nil {
			return fmt.Errorf("bundle %s: %w", b.Locale, err)
		}
		return nil
	}

	if err := set(LanguageNameKey, b.LanguageName); err != nil {
		return nil, err
	}
	if err := set(NativeNameKey, b.NativeName); err != nil {
		return nil, err
	}
	if b.RTL {
		if err := set(RTLKey, true); err != nil {
			return nil, err
		}
	}

	for _, e := range b.Entries {
		if err := f.SetMessage(e.Identifier, e.Text); err != nil {
			return nil, fmt.Errorf("bundle %s: %w", b.Locale, err)
		}
		meta, err := e.metadata()
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %s: %w", b.Locale, e.Key, err)
		}
		if err := set(arbfile.MetaKey(e.Identifier), meta); err != nil {
			return nil, err
		}
	}

	mapping, err := b.KeyMappingJSON()
	if err != nil {
		return nil, fmt.Errorf("bundle %s: key mapping: %w", b.Locale, err)
	}
	if err := set(KeyMappingKey, mapping); err != nil {
		return nil, err
	}
	if err := set(VersionKey, b.Version); err != nil {
		return nil, err
	}
	if err := set(LastModifiedKey, b.LastModified); err != nil {
		return nil, err
	}
	return f, nil
}

// metadata builds the "@identifier" object in its canonical member order.
func (e Entry) metadata() (arbfile.Object, error) {
	var meta arbfile.Object
	if err := meta.Set("description", e.Description); err != nil {
		return nil, err
	}
	if len(e.Placeholders) == 0 {
		return meta, nil
	}

	var phs arbfile.Object
	for _, p := range e.Placeholders {
		var rec arbfile.Object
		if err := rec.Set("type", string(p.Type)); err != nil {
			return nil, err
		}
		if err := rec.Set("example", p.Example); err != nil {
			return nil, err
		}
		if p.Format != "" {
			if err := rec.Set("format", p.Format); err != nil {
				return nil, err
			}
		}
		if err := phs.Set(p.Name, rec); err != nil {
			return nil, err
		}
	}
	if err := meta.Set("placeholders", phs); err != nil {
		return nil, err
	}
	return meta, nil
}
