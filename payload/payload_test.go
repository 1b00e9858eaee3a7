package payload

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "data": [
    {
      "languageCode": "en",
      "name": "English",
      "nativeName": "English",
      "translationCount": 3,
      "translations": {"z.last": "Z", "common.save": "Save", "common.empty": null}
    },
    {
      "languageCode": "ar",
      "name": "Arabic",
      "nativeName": "العربية",
      "isRtl": true,
      "translations": {}
    }
  ],
  "meta": {
    "totalKeys": 3,
    "version": "7",
    "lastModified": "2026-10-01T12:00:00Z",
    "supportedLocales": ["en", "ar", "en"],
    "fallbacks": {"en_GB": "en"},
    "project": "demo"
  }
}`

func TestDecode(t *testing.T) {
	doc, err := Decode(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	require.Len(t, doc.Languages, 2)

	en := doc.Languages[0]
	assert.Equal(t, "en", en.Code)
	assert.Equal(t, 3, en.TranslationCount)
	assert.False(t, en.RTL)
	assert.Equal(t, Translations{
		{Key: "z.last", Text: "Z"},
		{Key: "common.save", Text: "Save"},
		{Key: "common.empty", Text: ""},
	}, en.Translations)

	ar, ok := doc.Language("ar")
	require.True(t, ok)
	assert.True(t, ar.RTL)
	assert.Equal(t, 0, ar.TranslationCount)
	assert.Empty(t, ar.Translations)
	assert.NotNil(t, ar.Translations)

	assert.Equal(t, "7", doc.Meta.Version)
	assert.Equal(t, []string{"en", "ar"}, doc.Meta.SupportedLocales)
	assert.Equal(t, map[string]string{"en_GB": "en"}, doc.Meta.Fallbacks)
	assert.Equal(t, 0, doc.Meta.TotalTranslations)

	_, ok = doc.Language("fr")
	assert.False(t, ok)
}

func TestDecodeMalformed(t *testing.T) {
	tests := map[string]string{
		"missing data":         `{"meta": {}}`,
		"null data":            `{"data": null}`,
		"missing translations": `{"data": [{"languageCode": "en"}]}`,
		"numeric translation":  `{"data": [{"languageCode": "en", "translations": {"a": 1}}]}`,
		"not json":             `<html>`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(in))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestTranslationsMap(t *testing.T) {
	tr := Translations{{Key: "a", Text: "1"}, {Key: "b", Text: "2"}}
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, tr.Map())
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0644))

	doc, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.Languages, 2)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestClientFetch(t *testing.T) {
	var gotAuth, gotProject, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotProject = r.URL.Query().Get("project")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleDoc))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1/translations", WithAPIKey("secret"), WithProject("demo"))
	doc, err := c.Fetch(context.Background())
	require.NoError(t, err)

	assert.Len(t, doc.Languages, 2)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "demo", gotProject)
}

func TestClientFetchErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, WithHTTPClient(srv.Client())).Fetch(context.Background())
	var fe *FetchError
	require.True(t, errors.As(err, &fe), "error %v is not a FetchError", err)
	assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
	assert.Contains(t, fe.Body, "upstream down")
	assert.Equal(t, 1, calls, "fetch must not retry")

	_, err = NewClient("not a url").Fetch(context.Background())
	assert.Error(t, err)

	malformed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta": {}}`))
	}))
	defer malformed.Close()
	_, err = NewClient(malformed.URL).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrMalformed)
}
