package render

import (
	"fmt"
	"strings"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/odf"
)

// EscapeMapping is the fixed table between literal whitespace and the ODF
// elements standing for it.
var EscapeMapping = map[rune]string{
	'\n': odf.LineBreak,
	'\t': odf.Tab,
}

// EncodingMismatchError reports literal whitespace found in an element that
// is not whitelisted while an enclosing element is. The innermost element
// wins, so the text is left as is.
type EncodingMismatchError struct {
	// Element is the innermost open element.
	Element string
	// Owner is the nearest whitelisted ancestor.
	Owner string
}

func (e *EncodingMismatchError) Error() string {
	return fmt.Sprintf("encoding mismatch: whitespace in <%s> nested in whitelisted <%s> left unencoded", e.Element, e.Owner)
}

type codecOptions struct {
	whitelist map[string]bool
	observer  func(error)
}

// CodecOption configures EncodeEscapeChars.
type CodecOption func(*codecOptions)

// WithWhitelist replaces the default set of elements whose text is encoded.
func WithWhitelist(names ...string) CodecOption {
	return func(o *codecOptions) {
		o.whitelist = make(map[string]bool, len(names))
		for _, n := range names {
			o.whitelist[n] = true
		}
	}
}

// WithObserver receives non-fatal problems such as *EncodingMismatchError.
func WithObserver(fn func(error)) CodecOption {
	return func(o *codecOptions) {
		o.observer = fn
	}
}

// EncodeEscapeChars replaces each literal newline and tab in the direct text
// of whitelisted elements with <text:line-break/> and <text:tab/>. The input
// may be a fragment with several top-level elements. Everything else,
// including character references such as &#223;, is copied byte for byte.
func EncodeEscapeChars(s string, opts ...CodecOption) string {
	o := codecOptions{whitelist: odf.EscapeWhitelist}
	for _, opt := range opts {
		opt(&o)
	}

	var sb strings.Builder
	sb.Grow(len(s))
	var stack []string

	for i := 0; i < len(s); {
		if s[i] == '<' {
			end := markupEnd(s, i)
			tag := s[i:end]
			switch {
			case strings.HasPrefix(tag, "</"):
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			case strings.HasPrefix(tag, "<?"), strings.HasPrefix(tag, "<!"):
			case strings.HasSuffix(tag, "/>"):
			default:
				stack = append(stack, elementName(tag))
			}
			sb.WriteString(tag)
			i = end
			continue
		}

		next := strings.IndexByte(s[i:], '<')
		if next < 0 {
			next = len(s)
		} else {
			next += i
		}
		text := s[i:next]
		i = next

		if len(stack) == 0 || !strings.ContainsAny(text, "\n\t") {
			sb.WriteString(text)
			continue
		}
		top := stack[len(stack)-1]
		if !o.whitelist[top] {
			if owner := nearestWhitelisted(stack, o.whitelist); owner != "" && o.observer != nil {
				o.observer(&EncodingMismatchError{Element: top, Owner: owner})
			}
			sb.WriteString(text)
			continue
		}
		for _, r := range text {
			if name, ok := EscapeMapping[r]; ok {
				sb.WriteString("<" + name + "/>")
				continue
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// DecodeEscapeChars turns <text:line-break/> and <text:tab/> found inside tag
// regions back into literal characters, so that expressions written over
// several lines reach the engine as text.
func DecodeEscapeChars(s string) string {
	return mapRegions(s, func(_ TagKind, tag string) string {
		if !strings.Contains(tag, "<") {
			return tag
		}
		var sb strings.Builder
		for i := 0; i < len(tag); {
			if tag[i] != '<' {
				sb.WriteByte(tag[i])
				i++
				continue
			}
			end := markupEnd(tag, i)
			markup := tag[i:end]
			switch elementName(markup) {
			case odf.LineBreak:
				sb.WriteByte('\n')
			case odf.Tab:
				sb.WriteByte('\t')
			default:
				sb.WriteString(markup)
			}
			i = end
		}
		return sb.String()
	})
}

// markupEnd returns the index just past the markup starting at s[i] == '<'.
// Quoted attribute values may contain '>'.
func markupEnd(s string, i int) int {
	for _, pair := range [][2]string{{"<!--", "-->"}, {"<![CDATA[", "]]>"}, {"<?", "?>"}} {
		if strings.HasPrefix(s[i:], pair[0]) {
			if j := strings.Index(s[i+len(pair[0]):], pair[1]); j >= 0 {
				return i + len(pair[0]) + j + len(pair[1])
			}
			return len(s)
		}
	}
	var quote byte
	for j := i + 1; j < len(s); j++ {
		c := s[j]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return j + 1
		}
	}
	return len(s)
}

// elementName extracts the qualified name from "<name ...>", "</name>" or
// "<name/>".
func elementName(tag string) string {
	name := strings.TrimLeft(tag, "</")
	if idx := strings.IndexAny(name, " \t\r\n/>"); idx >= 0 {
		name = name[:idx]
	}
	return name
}

func nearestWhitelisted(stack []string, whitelist map[string]bool) string {
	for i := len(stack) - 2; i >= 0; i-- {
		if whitelist[stack[i]] {
			return stack[i]
		}
	}
	return ""
}
