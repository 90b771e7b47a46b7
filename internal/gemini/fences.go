package gemini

import "strings"

const fence = "```"

// StripFences removes a Markdown code fence wrapped around a document. Text
// that does not open with a fence is returned unchanged. Only the line break
// after the opening tag and the one before the closing fence are dropped;
// the document between them is returned byte for byte.
func StripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, fence) {
		return s
	}

	inner := trimmed[len(fence):]
	if len(inner) >= 4 && strings.EqualFold(inner[:4], "html") {
		inner = inner[4:]
	}
	inner = dropLineBreak(inner, strings.CutPrefix)

	if body, ok := strings.CutSuffix(inner, fence); ok {
		inner = dropLineBreak(body, strings.CutSuffix)
	}
	return inner
}

// dropLineBreak removes one "\r\n" or "\n" using cut.
func dropLineBreak(s string, cut func(string, string) (string, bool)) string {
	if out, ok := cut(s, "\r\n"); ok {
		return out
	}
	out, _ := cut(s, "\n")
	return out
}
