package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSynthesize(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"common.buttons.save", "commonButtonsSave"},
		{"common.save", "commonSave"},
		{"Greeting", "greeting"},
		{"errors.404.title", "errors404Title"},
		{"auth.SIGN-IN.label", "authSigninLabel"},
		{"user_profile.first_name", "userProfileFirstName"},
		{"menu.ÜberItem", "menuBeritem"},
		{"1st.key", "_1stKey"},
		{"404", "_404"},
		{"a..b", "aB"},
		{"", "_"},
		{"...", "___"},
		{"!!", "_"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			got := Synthesize(tc.key)
			assert.Equal(t, tc.want, got)
			assert.True(t, legalRe.MatchString(got), "Synthesize(%q) = %q is not a legal identifier", tc.key, got)
		})
	}
}

func TestSynthesizeIsDeterministic(t *testing.T) {
	for _, key := range []string{"a.b.c", "settings.notifications.push_enabled", "x"} {
		assert.Equal(t, Synthesize(key), Synthesize(key))
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "param"},
		{"count", "count"},
		{"user name", "user_name"},
		{"weird name#", "weird_name_"},
		{"item-count", "item_count"},
		{"2fa", "_2fa"},
		{"$price", "$price"},
		{"имя", "___"},
		{"a.b", "a_b"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Sanitize(tc.name)
			assert.Equal(t, tc.want, got)
			assert.True(t, IsLegal(got), "Sanitize(%q) = %q is not legal", tc.name, got)
		})
	}
}

func TestIsLegal(t *testing.T) {
	legal := []string{"count", "_x", "$y", "camelCase9", "a_b"}
	illegal := []string{"", "9lives", "weird name#", "a-b", "#", "a b", "a.b", "ü"}

	for _, n := range legal {
		assert.True(t, IsLegal(n), "IsLegal(%q)", n)
	}
	for _, n := range illegal {
		assert.False(t, IsLegal(n), "IsLegal(%q)", n)
	}
}
