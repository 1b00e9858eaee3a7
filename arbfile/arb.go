// Package arbfile implements reading and writing of Flutter ARB (Application
// Resource Bundle) files.
//
// ARB files are JSON files with a specific structure:
//
//   - "@@locale" holds the language code (e.g. "en", "pt_BR").
//   - Other "@@" keys are bundle-level attributes (e.g. "@@version").
//   - Keys starting with a single "@" are metadata entries for the message
//     of the same name (e.g. "@greeting").
//   - All other keys are messages with string values.
//
// Key order is significant: it is preserved on parse, new keys are appended,
// and "@@locale" is always written first.
package arbfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocaleKey is the reserved key holding the bundle locale.
const LocaleKey = "@@locale"

// ---------------------------------------------------------------------------
// File model
// ---------------------------------------------------------------------------

// entry is a single key in the ARB file.
type entry struct {
	key      string
	value    string // decoded string value of a message
	isMeta   bool   // true for @-keys (metadata and @@ attributes)
	rawValue []byte // JSON value bytes (authoritative for meta)
}

// File represents an ARB document.
type File struct {
	// locale is the value of @@locale.
	locale string
	// entries stores all keys in document order.
	entries []entry
	// index maps key → index in entries.
	index map[string]int
}

// New returns an empty document for locale.
func New(locale string) *File {
	return &File{locale: locale, index: make(map[string]int)}
}

// IsMetaKey reports whether key names metadata rather than a message.
func IsMetaKey(key string) bool { return strings.HasPrefix(key, "@") }

// MetaKey returns the metadata key for a message key.
func MetaKey(key string) string { return "@" + key }

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses an ARB file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse parses ARB content from a byte slice.
func Parse(data []byte) (*File, error) {
	fields, err := ParseObject(data)
	if err != nil {
		return nil, fmt.Errorf("parsing ARB: %w", err)
	}

	f := New("")
	for _, fld := range fields {
		e := entry{
			key:      fld.Key,
			isMeta:   IsMetaKey(fld.Key),
			rawValue: fld.Value,
		}
		if fld.Key == LocaleKey {
			_ = json.Unmarshal(fld.Value, &f.locale)
		}
		if !e.isMeta {
			var s string
			if err := json.Unmarshal(fld.Value, &s); err != nil {
				return nil, fmt.Errorf("parsing ARB: message %q is not a string", fld.Key)
			}
			e.value = s
		}
		f.index[e.key] = len(f.entries)
		f.entries = append(f.entries, e)
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Locale returns the @@locale value.
func (f *File) Locale() string { return f.locale }

// Keys returns all message (non-metadata) keys in document order.
func (f *File) Keys() []string {
	var keys []string
	for _, e := range f.entries {
		if !e.isMeta {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Get returns the string value of a message key.
func (f *File) Get(key string) (string, bool) {
	if idx, ok := f.index[key]; ok && !f.entries[idx].isMeta {
		return f.entries[idx].value, true
	}
	return "", false
}

// Meta returns the raw JSON value of a metadata or attribute key.
func (f *File) Meta(key string) (json.RawMessage, bool) {
	if idx, ok := f.index[key]; ok && f.entries[idx].isMeta {
		return json.RawMessage(f.entries[idx].rawValue), true
	}
	return nil, false
}

// Stats returns (messages, nonEmpty, percentNonEmpty).
func (f *File) Stats() (int, int, float64) {
	total, filled := 0, 0
	for _, e := range f.entries {
		if !e.isMeta {
			total++
			if e.value != "" {
				filled++
			}
		}
	}
	pct := 0.0
	if total > 0 {
		pct = float64(filled) / float64(total) * 100
	}
	return total, filled, pct
}

// ---------------------------------------------------------------------------
// Building
// ---------------------------------------------------------------------------

// SetMessage sets a message value, appending the key if it is new.
func (f *File) SetMessage(key, value string) error {
	if IsMetaKey(key) {
		return fmt.Errorf("message key %q must not start with '@'", key)
	}
	raw, err := Encode(value)
	if err != nil {
		return err
	}
	f.put(entry{key: key, value: value, rawValue: raw})
	return nil
}

// SetMeta sets a metadata or attribute value, appending the key if it is
// new. v is marshaled unless it already is a json.RawMessage.
func (f *File) SetMeta(key string, v any) error {
	if !IsMetaKey(key) {
		return fmt.Errorf("metadata key %q must start with '@'", key)
	}
	raw, ok := v.(json.RawMessage)
	if !ok {
		var err error
		if raw, err = Encode(v); err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
	}
	if key == LocaleKey {
		if err := json.Unmarshal(raw, &f.locale); err != nil {
			return fmt.Errorf("%s must be a string", LocaleKey)
		}
	}
	f.put(entry{key: key, isMeta: true, rawValue: raw})
	return nil
}

func (f *File) put(e entry) {
	if idx, ok := f.index[e.key]; ok {
		f.entries[idx] = e
		return
	}
	f.index[e.key] = len(f.entries)
	f.entries = append(f.entries, e)
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Marshal serialises the ARB file to JSON with 2-space indentation.
// The @@locale key is always written first.
func (f *File) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")

	// Write @@locale first if present.
	localeWritten := false
	if f.locale != "" {
		raw, _ := Encode(f.locale)
		buf.WriteString("  \"" + LocaleKey + "\": ")
		buf.Write(raw)
		localeWritten = true
	}

	for _, e := range f.entries {
		if e.key == LocaleKey {
			continue // already written
		}
		if localeWritten {
			buf.WriteString(",\n")
		}
		keyBytes, _ := Encode(e.key)
		buf.WriteString("  ")
		buf.Write(keyBytes)
		buf.WriteString(": ")
		if e.isMeta {
			// Pretty-print metadata objects.
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, e.rawValue, "  ", "  "); err != nil {
				return nil, fmt.Errorf("encoding %s: %w", e.key, err)
			}
			buf.Write(pretty.Bytes())
		} else {
			raw, err := Encode(e.value)
			if err != nil {
				return nil, err
			}
			buf.Write(raw)
		}
		localeWritten = true
	}

	buf.WriteString("\n}\n")
	return buf.Bytes(), nil
}

// WriteFile serialises and writes to path.
func (f *File) WriteFile(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	return WriteBytes(path, data)
}

// WriteBytes writes already marshaled content to path, creating parent
// directories as needed.
func WriteBytes(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
