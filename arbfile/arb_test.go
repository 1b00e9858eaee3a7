package arbfile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleARB = `{
  "@@locale": "en",
  "greeting": "Hello, {name}!",
  "@greeting": {
    "description": "A greeting message",
    "placeholders": {
      "name": {"type": "String", "example": "name"}
    }
  },
  "farewell": "Goodbye!",
  "@@isRtl": false
}
`

func TestParse_Basic(t *testing.T) {
	f, err := Parse([]byte(sampleARB))
	if err != nil {
		t.Fatal(err)
	}
	if f.Locale() != "en" {
		t.Errorf("locale = %q, want %q", f.Locale(), "en")
	}
	if v, _ := f.Get("greeting"); v != "Hello, {name}!" {
		t.Errorf("greeting = %q", v)
	}
	if v, _ := f.Get("farewell"); v != "Goodbye!" {
		t.Errorf("farewell = %q", v)
	}
	if _, ok := f.Get("@greeting"); ok {
		t.Error("Get(@greeting) should not return metadata")
	}
}

func TestParse_MetadataNotMessages(t *testing.T) {
	f, err := Parse([]byte(sampleARB))
	if err != nil {
		t.Fatal(err)
	}
	keys := f.Keys()
	for _, k := range keys {
		if strings.HasPrefix(k, "@") {
			t.Errorf("metadata key %q should not appear in Keys()", k)
		}
	}
	if len(keys) != 2 {
		t.Errorf("expected 2 message keys, got %d: %v", len(keys), keys)
	}

	raw, ok := f.Meta("@@isRtl")
	if !ok || string(raw) != "false" {
		t.Errorf("Meta(@@isRtl) = %s, %v", raw, ok)
	}
}

func TestParse_RejectsNonStringMessage(t *testing.T) {
	if _, err := Parse([]byte(`{"a": 1}`)); err == nil {
		t.Fatal("expected error for numeric message value")
	}
	if _, err := Parse([]byte(`["a"]`)); err == nil {
		t.Fatal("expected error for non-object document")
	}
}

func TestStats(t *testing.T) {
	data := `{"@@locale":"en","a":"hello","b":"","c":"world"}`
	f, err := Parse([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	total, filled, _ := f.Stats()
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if filled != 2 {
		t.Errorf("filled = %d, want 2", filled)
	}
}

func TestBuildAndMarshal_Order(t *testing.T) {
	f := New("de")
	if err := f.SetMeta("@@languageName", "German"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetMessage("save", "Speichern"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetMeta("@save", map[string]string{"description": "Save button"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetMeta("@@version", "3"); err != nil {
		t.Fatal(err)
	}

	out, err := f.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)

	order := []string{`"@@locale"`, `"@@languageName"`, `"save"`, `"@save"`, `"@@version"`}
	last := -1
	for _, k := range order {
		pos := strings.Index(s, k)
		if pos <= last {
			t.Fatalf("key %s out of order in:\n%s", k, s)
		}
		last = pos
	}

	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, s)
	}
}

func TestSetMessage_ReplacesInPlace(t *testing.T) {
	f, err := Parse([]byte(`{"@@locale":"en","a":"1","b":"2"}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetMessage("a", "one"); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(f.Keys(), ","); got != "a,b" {
		t.Fatalf("Keys() = %s, want a,b", got)
	}
	if v, _ := f.Get("a"); v != "one" {
		t.Fatalf("a = %q, want one", v)
	}
	if err := f.SetMessage("@bad", "x"); err == nil {
		t.Fatal("SetMessage should reject @-keys")
	}
	if err := f.SetMeta("bad", "x"); err == nil {
		t.Fatal("SetMeta should reject message keys")
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	f, err := Parse([]byte(sampleARB))
	if err != nil {
		t.Fatal(err)
	}
	out, err := f.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse(out)
	if err != nil {
		t.Fatalf("re-parse: %v\n%s", err, out)
	}
	meta, ok := again.Meta("@greeting")
	if !ok {
		t.Fatal("@greeting metadata should be preserved in output")
	}
	obj, err := ParseObject(meta)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(obj.Keys(), ","); got != "description,placeholders" {
		t.Errorf("@greeting keys = %s", got)
	}
}

func TestWriteFile_CreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib", "l10n", "app_en.arb")

	f := New("en")
	if err := f.SetMessage("hello", "Hello"); err != nil {
		t.Fatal(err)
	}
	if err := f.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	parsed, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if v, _ := parsed.Get("hello"); v != "Hello" {
		t.Fatalf("hello = %q", v)
	}
	if _, err := ParseFile(filepath.Join(dir, "missing.arb")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("ParseFile(missing) error = %v, want not-exist", err)
	}
}

func TestMarshal_KeepsMarkupUnescaped(t *testing.T) {
	f := New("en")
	if err := f.SetMessage("bold", "<b>Tom & Jerry</b>"); err != nil {
		t.Fatalf("SetMessage() error: %v", err)
	}
	if err := f.SetMeta("@bold", Object{{Key: "description", Value: json.RawMessage(`"a <b> & c"`)}}); err != nil {
		t.Fatalf("SetMeta() error: %v", err)
	}

	data, err := f.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"bold": "<b>Tom & Jerry</b>"`) {
		t.Fatalf("Marshal() escaped message text:\n%s", out)
	}
	if strings.Contains(out, `\u003c`) || strings.Contains(out, `\u0026`) {
		t.Fatalf("Marshal() output contains HTML escapes:\n%s", out)
	}

	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if v, _ := back.Get("bold"); v != "<b>Tom & Jerry</b>" {
		t.Fatalf("Get(bold) = %q, want %q", v, "<b>Tom & Jerry</b>")
	}
}

func TestEncode(t *testing.T) {
	got, err := Encode(map[string]string{"a": "<x&y>"})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if want := `{"a":"<x&y>"}`; string(got) != want {
		t.Fatalf("Encode() = %s, want %s", got, want)
	}
}
