package synthesis

import (
	"strings"
	"unicode"
)

const fence = "```"

// Sanitize turns a chat model answer into something json.Unmarshal can
// read. It keeps only the first fenced block when one is present, drops the
// block's info string, strips // comments that sit outside JSON strings and
// finally trims any prose around the outermost object.
func Sanitize(raw string) string {
	text := raw
	if strings.Contains(text, fence) {
		parts := strings.SplitN(text, fence, 3)
		text = dropInfoString(parts[1])
	}
	text = stripLineComments(text)
	return trimToObject(strings.TrimSpace(text))
}

// dropInfoString removes a language tag such as "json" that directly follows
// the opening fence.
func dropInfoString(block string) string {
	end := strings.IndexFunc(block, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '+')
	})
	switch {
	case end == -1:
		return ""
	case end > 0:
		return block[end:]
	}
	return block
}

func stripLineComments(text string) string {
	var out strings.Builder
	out.Grow(len(text))

	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			out.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(text) && text[i+1] == '/' {
			for i < len(text) && text[i] != '\n' {
				i++
			}
			if i < len(text) {
				out.WriteByte('\n')
			}
			continue
		}
		out.WriteByte(c)
	}
	return out.String()
}

func trimToObject(text string) string {
	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		return text
	}
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return text
	}
	return text[start : end+1]
}
