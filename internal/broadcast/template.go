package broadcast

import (
	"io"
	"strings"

	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{{"
	endTag   = "}}"
)

// Render substitutes {{key}} placeholders from vars. Unknown keys and an
// unterminated trailing "{{" are left in the output as written.
func Render(tmpl string, vars map[string]string) string {
	if !strings.Contains(tmpl, startTag) {
		return tmpl
	}
	body, tail := splitUnterminated(tmpl)

	var sb strings.Builder
	sb.Grow(len(tmpl))
	_, err := fasttemplate.ExecuteFunc(body, startTag, endTag, &sb, func(w io.Writer, tag string) (int, error) {
		// fasttemplate pairs the first "{{" with the next "}}"; a stray
		// "{{" before a placeholder is literal text.
		prefix := ""
		if i := strings.LastIndex(tag, startTag); i >= 0 {
			prefix, tag = startTag+tag[:i], tag[i+len(startTag):]
		}
		if v, ok := vars[strings.TrimSpace(tag)]; ok {
			return io.WriteString(w, prefix+v)
		}
		return io.WriteString(w, prefix+startTag+tag+endTag)
	})
	if err != nil {
		// splitUnterminated leaves only closed tags in body; keep the
		// template intact rather than lose text if that ever changes.
		return tmpl
	}
	sb.WriteString(tail)
	return sb.String()
}

// splitUnterminated cuts tmpl before the first start tag that has no end tag after it.
func splitUnterminated(tmpl string) (body, tail string) {
	cut := 0
	if i := strings.LastIndex(tmpl, endTag); i >= 0 {
		cut = i + len(endTag)
	}
	if j := strings.Index(tmpl[cut:], startTag); j >= 0 {
		return tmpl[:cut+j], tmpl[cut+j:]
	}
	return tmpl, ""
}

// recipientVars merges run context with per-recipient values.
func recipientVars(cfg Config, name, contact string) map[string]string {
	vars := make(map[string]string, len(cfg.Context)+3)
	for k, v := range cfg.Context {
		vars[k] = v
	}
	if strings.TrimSpace(name) == "" {
		name = cfg.FallbackName
	}
	if name != "" {
		vars["name"] = name
	}
	if contact == "" {
		return vars
	}
	switch cfg.Channel {
	case ChannelEmail:
		vars["email"] = contact
	case ChannelWhatsApp:
		vars["phone"] = contact
	}
	return vars
}
