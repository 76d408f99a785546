package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	vars := map[string]string{"name": "Asha", "date": "2025-01-24", "time": "10:00"}
	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{name: "substitutes", tmpl: "Hello {{name}}, on {{date}}", want: "Hello Asha, on 2025-01-24"},
		{name: "unknown key kept", tmpl: "Join: {{meetingLink}}", want: "Join: {{meetingLink}}"},
		{name: "whitespace in braces", tmpl: "Hi {{ name }}!", want: "Hi Asha!"},
		{name: "unknown key keeps its spacing", tmpl: "{{ missing }}", want: "{{ missing }}"},
		{name: "every occurrence", tmpl: "{{name}} and {{name}}", want: "Asha and Asha"},
		{name: "unterminated tail", tmpl: "Hi {{name}}, see {{date", want: "Hi Asha, see {{date"},
		{name: "only unterminated", tmpl: "{{name", want: "{{name"},
		{name: "no placeholders", tmpl: "Plain text", want: "Plain text"},
		{name: "empty", tmpl: "", want: ""},
		{name: "stray closing braces", tmpl: "}} {{time}}", want: "}} 10:00"},
		{name: "stray opening braces before placeholder", tmpl: "Hi {{ {{name}}", want: "Hi {{ Asha"},
		{name: "repeated stray opening braces", tmpl: "{{{{name}}!", want: "{{Asha!"},
		{name: "stray opening braces before unknown key", tmpl: "a {{ b {{missing}}", want: "a {{ b {{missing}}"},
		{name: "extra closing brace", tmpl: "{{name}}}", want: "Asha}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.tmpl, vars))
		})
	}
}

func TestRender_NilVars(t *testing.T) {
	assert.Equal(t, "Hello {{name}}", Render("Hello {{name}}", nil))
}

func TestRender_ValueIsNotReexpanded(t *testing.T) {
	vars := map[string]string{"name": "{{date}}", "date": "2025-01-24"}
	assert.Equal(t, "Hi {{date}}", Render("Hi {{name}}", vars))
}

func TestRecipientVars(t *testing.T) {
	cfg := Config{
		Channel:      ChannelWhatsApp,
		Context:      map[string]string{"date": "2025-01-24"},
		FallbackName: FallbackNameDM,
	}

	vars := recipientVars(cfg, "  ", "15550001000")
	assert.Equal(t, "Friend", vars["name"])
	assert.Equal(t, "15550001000", vars["phone"])
	assert.Equal(t, "2025-01-24", vars["date"])
	assert.NotContains(t, vars, "email")

	vars = recipientVars(cfg, "Asha", "")
	assert.Equal(t, "Asha", vars["name"])
	assert.NotContains(t, vars, "phone")

	// The run context is shared and must not pick up recipient values.
	assert.NotContains(t, cfg.Context, "name")
}
