package arbfile

import (
	"encoding/json"
	"testing"
)

func TestObject_EditPreservesOrder(t *testing.T) {
	obj, err := ParseObject([]byte(`{"z": 1, "a": {"x": true}, "m": "s"}`))
	if err != nil {
		t.Fatal(err)
	}

	if err := obj.Set("a", "replaced"); err != nil {
		t.Fatal(err)
	}
	if err := obj.Set("new", json.RawMessage(`[1,2]`)); err != nil {
		t.Fatal(err)
	}
	if !obj.Delete("z") {
		t.Fatal("Delete(z) = false, want true")
	}
	if obj.Delete("missing") {
		t.Fatal("Delete(missing) = true, want false")
	}

	out, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"a":"replaced","m":"s","new":[1,2]}`
	if string(out) != want {
		t.Fatalf("Marshal = %s, want %s", out, want)
	}

	v, ok := obj.Get("m")
	if !ok || string(v) != `"s"` {
		t.Fatalf("Get(m) = %s, %v", v, ok)
	}
}

func TestParseObject_Errors(t *testing.T) {
	for _, in := range []string{``, `[]`, `{"a":}`, `{"a": 1`} {
		if _, err := ParseObject([]byte(in)); err == nil {
			t.Errorf("ParseObject(%q) expected error", in)
		}
	}
}
