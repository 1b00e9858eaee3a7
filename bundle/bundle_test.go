package bundle

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/minios-linux/translocale/arbfile"
	"github.com/minios-linux/translocale/icu"
	"github.com/minios-linux/translocale/payload"
)

func lang(code string, trs ...payload.Translation) payload.Language {
	if trs == nil {
		trs = payload.Translations{}
	}
	return payload.Language{Code: code, Name: "English", NativeName: "English", Translations: trs}
}

// memberOrder returns every top-level key of the serialized document.
func memberOrder(t *testing.T, f *arbfile.File) []string {
	t.Helper()
	data, err := f.Marshal()
	require.NoError(t, err)
	obj, err := arbfile.ParseObject(data)
	require.NoError(t, err)
	return obj.Keys()
}

func tr(key, text string) payload.Translation { return payload.Translation{Key: key, Text: text} }

func TestBuildSimpleBundle(t *testing.T) {
	meta := payload.Meta{Version: "3", LastModified: "2026-10-01T12:00:00Z"}
	b, err := Build(lang("en", tr("common.save", "Save")), meta)
	require.NoError(t, err)

	require.Len(t, b.Entries, 1)
	e := b.Entries[0]
	assert.Equal(t, "commonSave", e.Identifier)
	assert.Equal(t, "Save", e.Text)
	assert.Equal(t, "Translation for common.save", e.Description)
	assert.Empty(t, e.Placeholders)
	assert.Equal(t, []KeyMapping{{Key: "common.save", Identifier: "commonSave"}}, b.KeyMapping)

	f, err := b.ARB()
	require.NoError(t, err)
	assert.Equal(t, "en", f.Locale())
	assert.Equal(t, []string{
		"@@locale", "@@languageName", "@@nativeName",
		"commonSave", "@commonSave",
		KeyMappingKey, VersionKey, LastModifiedKey,
	}, memberOrder(t, f))

	v, ok := f.Get("commonSave")
	require.True(t, ok)
	assert.Equal(t, "Save", v)

	raw, ok := f.Meta(KeyMappingKey)
	require.True(t, ok)
	var mapping string
	require.NoError(t, json.Unmarshal(raw, &mapping))
	assert.JSONEq(t, `{"common.save":"commonSave"}`, mapping)

	raw, ok = f.Meta("@commonSave")
	require.True(t, ok)
	assert.JSONEq(t, `{"description":"Translation for common.save"}`, string(raw))
}

func TestBuildRTLAndEmpty(t *testing.T) {
	l := payload.Language{Code: "ar", Name: "Arabic", NativeName: "العربية", RTL: true, Translations: payload.Translations{}}
	b, err := Build(l, payload.Meta{})
	require.NoError(t, err)
	assert.Empty(t, b.Entries)

	f, err := b.ARB()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"@@locale", "@@languageName", "@@nativeName", RTLKey,
		KeyMappingKey, VersionKey, LastModifiedKey,
	}, memberOrder(t, f))

	raw, _ := f.Meta(KeyMappingKey)
	assert.Equal(t, `"{}"`, string(raw))

	data, err := f.Marshal()
	require.NoError(t, err)
	parsed, err := arbfile.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "ar", parsed.Locale())
}

func TestBuildPluralFilter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	msg := "{count, plural, one{{count} item {ok} {weird name#}} other{{count} items}}"

	b, err := Build(lang("en", tr("cart.items", msg)), payload.Meta{}, WithLogger(zap.New(core)))
	require.NoError(t, err)

	e := b.Entries[0]
	assert.Equal(t, icu.Plural, e.Kind)
	assert.Equal(t, msg, e.Text)
	names := make([]string, len(e.Placeholders))
	for i, p := range e.Placeholders {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"count", "ok"}, names)
	assert.Equal(t, icu.Integer, e.Placeholders[0].Type)
	assert.Equal(t, []string{"weird name#"}, e.Dropped)

	assert.Equal(t, 1, b.Warnings())
	dropped := logs.FilterField(zap.String("code", CodeDroppedPlaceholders)).All()
	require.Len(t, dropped, 1)
	assert.Equal(t, zapcore.WarnLevel, dropped[0].Level)
	assert.Equal(t, "en", dropped[0].ContextMap()["locale"])
}

func TestBuildSelectKeepsAndSanitizesPlaceholders(t *testing.T) {
	b, err := Build(lang("en", tr("greet", "{gender, select, male{He {first-name}} other{They}}")), payload.Meta{})
	require.NoError(t, err)

	e := b.Entries[0]
	assert.Equal(t, icu.Select, e.Kind)
	require.Len(t, e.Placeholders, 2)
	assert.Equal(t, PlaceholderMeta{Name: "gender", Type: icu.Text, Example: "gender"}, e.Placeholders[0])
	assert.Equal(t, "first_name", e.Placeholders[1].Name)
	assert.Empty(t, e.Dropped)
}

func TestBuildPlaceholderMetadata(t *testing.T) {
	b, err := Build(lang("en", tr("files", "{n, plural, one{{n} file} other{{n} files}}")), payload.Meta{})
	require.NoError(t, err)

	f, err := b.ARB()
	require.NoError(t, err)
	raw, ok := f.Meta("@files")
	require.True(t, ok)

	obj, err := arbfile.ParseObject(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"description", "placeholders"}, obj.Keys())

	phs, _ := obj.Get("placeholders")
	assert.JSONEq(t, `{"n":{"type":"int","example":"42","format":"compact"}}`, string(phs))
}

func TestBuildRepairDiagnostic(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b, err := Build(lang("en", tr("n", "{count, plural, one{1 item}}")), payload.Meta{}, WithLogger(zap.New(core)))
	require.NoError(t, err)

	assert.Equal(t, "{count, plural, one{1 item} other{count}}", b.Entries[0].Text)
	require.Len(t, b.Diagnostics, 1)
	assert.Equal(t, CodeRepaired, b.Diagnostics[0].Code)
	assert.Equal(t, SeverityInfo, b.Diagnostics[0].Severity)
	assert.Equal(t, 0, b.Warnings())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.InfoLevel).Len())
}

func TestBuildCollisionPolicies(t *testing.T) {
	colliding := lang("en",
		tr("a.b", "first"),
		tr("other", "middle"),
		tr("a-.b", "second"),
	)

	t.Run("suffix", func(t *testing.T) {
		b, err := Build(colliding, payload.Meta{})
		require.NoError(t, err)
		require.Len(t, b.Entries, 3)
		assert.Equal(t, "aB", b.Entries[0].Identifier)
		assert.Equal(t, "aB2", b.Entries[2].Identifier)
		assert.Equal(t, "second", b.Entries[2].Text)
		assert.Equal(t, KeyMapping{Key: "a-.b", Identifier: "aB2"}, b.KeyMapping[2])
		assert.Equal(t, 1, b.Warnings())
	})

	t.Run("overwrite", func(t *testing.T) {
		b, err := Build(colliding, payload.Meta{}, WithCollisionPolicy(CollisionOverwrite))
		require.NoError(t, err)
		require.Len(t, b.Entries, 2)
		assert.Equal(t, "aB", b.Entries[0].Identifier)
		assert.Equal(t, "second", b.Entries[0].Text)
		assert.Equal(t, "a-.b", b.Entries[0].Key)

		s, err := b.KeyMappingJSON()
		require.NoError(t, err)
		assert.JSONEq(t, `{"a.b":"aB","other":"other","a-.b":"aB"}`, s)
	})

	t.Run("fail", func(t *testing.T) {
		_, err := Build(colliding, payload.Meta{}, WithCollisionPolicy(CollisionFail))
		var ce *CollisionError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "aB", ce.Identifier)
		assert.Equal(t, "a.b", ce.First)
		assert.Equal(t, "a-.b", ce.Second)
	})
}

func TestBuildDuplicateRawKeyKeepsLastText(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	b, err := Build(lang("en",
		tr("common.save", "Save"),
		tr("common.cancel", "Cancel"),
		tr("common.save", "Store"),
	), payload.Meta{}, WithLogger(zap.New(core)))
	require.NoError(t, err)

	require.Len(t, b.Entries, 2)
	assert.Equal(t, "commonSave", b.Entries[0].Identifier)
	assert.Equal(t, "Store", b.Entries[0].Text)
	assert.Equal(t, []KeyMapping{
		{Key: "common.save", Identifier: "commonSave"},
		{Key: "common.cancel", Identifier: "commonCancel"},
	}, b.KeyMapping)

	s, err := b.KeyMappingJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"common.save":"commonSave","common.cancel":"commonCancel"}`, s)

	require.Len(t, b.Diagnostics, 1)
	assert.Equal(t, CodeDuplicateKey, b.Diagnostics[0].Code)
	assert.Equal(t, 1, logs.FilterField(zap.String("code", CodeDuplicateKey)).Len())
}

func TestBuildDuplicateKeyAfterSuffixKeepsIdentifier(t *testing.T) {
	b, err := Build(lang("en", tr("a.b", "1"), tr("a-.b", "2"), tr("a-.b", "3")), payload.Meta{})
	require.NoError(t, err)
	require.Len(t, b.Entries, 2)
	assert.Equal(t, "aB2", b.Entries[1].Identifier)
	assert.Equal(t, "3", b.Entries[1].Text)
	assert.Len(t, b.KeyMapping, 2)
}

func TestBuildSuffixSkipsTakenNames(t *testing.T) {
	b, err := Build(lang("en", tr("x.y", "1"), tr("x.y2", "2"), tr("x-.y", "3")), payload.Meta{})
	require.NoError(t, err)
	ids := []string{b.Entries[0].Identifier, b.Entries[1].Identifier, b.Entries[2].Identifier}
	assert.Equal(t, []string{"xY", "xY2", "xY3"}, ids)
}

func TestBuildLanguageNameFallback(t *testing.T) {
	b, err := Build(payload.Language{Code: "de", Translations: payload.Translations{}}, payload.Meta{})
	require.NoError(t, err)
	assert.Equal(t, "German", b.LanguageName)
	assert.Equal(t, "Deutsch", b.NativeName)

	_, err = Build(payload.Language{}, payload.Meta{})
	assert.ErrorIs(t, err, ErrNoLocale)
}

func TestParseCollisionPolicy(t *testing.T) {
	p, err := ParseCollisionPolicy("")
	require.NoError(t, err)
	assert.Equal(t, CollisionSuffix, p)

	p, err = ParseCollisionPolicy("fail")
	require.NoError(t, err)
	assert.Equal(t, CollisionFail, p)

	_, err = ParseCollisionPolicy("merge")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "app_en.arb", FileName("app", "en"))
	assert.Equal(t, "app_pt_BR.arb", FileName("app", "pt-BR"))
	assert.Equal(t, "app_zh_Hant_TW.arb", FileName("app", "zh_Hant-TW"))
}
