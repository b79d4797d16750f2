package render

import (
	"strings"
)

// TagKind identifies the delimiter pair of a tag.
type TagKind int

const (
	// TagExpression is a {{ ... }} tag.
	TagExpression TagKind = iota
	// TagStatement is a {% ... %} tag.
	TagStatement
	// TagComment is a {# ... #} tag.
	TagComment
)

func (k TagKind) String() string {
	switch k {
	case TagExpression:
		return "expression"
	case TagStatement:
		return "statement"
	case TagComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Delimiters returns the opening and closing markers of k.
func (k TagKind) Delimiters() (string, string) {
	switch k {
	case TagStatement:
		return "{%", "%}"
	case TagComment:
		return "{#", "#}"
	default:
		return "{{", "}}"
	}
}

// openerKind maps the second character of an opening marker to its kind.
func openerKind(second rune) (TagKind, bool) {
	switch second {
	case '{':
		return TagExpression, true
	case '%':
		return TagStatement, true
	case '#':
		return TagComment, true
	}
	return 0, false
}

// closerFirst is the first character of the closing marker of k.
func closerFirst(k TagKind) rune {
	switch k {
	case TagStatement:
		return '%'
	case TagComment:
		return '#'
	default:
		return '}'
	}
}

// Tag is a classified template tag.
type Tag struct {
	Kind TagKind
	// Keyword is the first word of a statement, such as "for" or "endif".
	Keyword string
	// Body is the text between the delimiters with whitespace control
	// markers and surrounding spaces removed.
	Body string
	Raw  string
}

// ParseTag classifies raw, which must be exactly one tag.
func ParseTag(raw string) (Tag, bool) {
	s := strings.TrimSpace(raw)
	if len(s) < 4 || s[0] != '{' {
		return Tag{}, false
	}
	kind, ok := openerKind(rune(s[1]))
	if !ok {
		return Tag{}, false
	}
	open, closing := kind.Delimiters()
	if !strings.HasPrefix(s, open) || !strings.HasSuffix(s, closing) {
		return Tag{}, false
	}

	body := s[2 : len(s)-2]
	// A closing marker inside the body means raw holds more than one tag.
	if strings.Contains(body, closing) {
		return Tag{}, false
	}
	// Whitespace control markers sit right against the delimiters: {%- x -%}
	if strings.HasPrefix(body, "-") || strings.HasPrefix(body, "+") {
		body = body[1:]
	}
	if strings.HasSuffix(body, "-") || strings.HasSuffix(body, "+") {
		body = body[:len(body)-1]
	}
	body = strings.TrimSpace(body)

	tag := Tag{Kind: kind, Body: body, Raw: s}
	if kind == TagStatement {
		if fields := strings.Fields(body); len(fields) > 0 {
			tag.Keyword = fields[0]
		}
	}
	return tag, true
}

// IsTemplateTag reports whether s is a single {{ }} or {% %} tag.
func IsTemplateTag(s string) bool {
	tag, ok := ParseTag(s)
	return ok && tag.Kind != TagComment
}

// IsBlockTag reports whether s is a single statement tag.
func IsBlockTag(s string) bool {
	tag, ok := ParseTag(s)
	return ok && tag.Kind == TagStatement
}

// blockClosers maps statements that open a block to their terminator.
var blockClosers = map[string]string{
	"for":        "endfor",
	"if":         "endif",
	"with":       "endwith",
	"block":      "endblock",
	"macro":      "endmacro",
	"filter":     "endfilter",
	"autoescape": "endautoescape",
	"spaceless":  "endspaceless",
	"ifchanged":  "endifchanged",
	"ifequal":    "endifequal",
	"ifnotequal": "endifnotequal",
	"call":       "endcall",
	"raw":        "endraw",
	"verbatim":   "endverbatim",
	"comment":    "endcomment",
}

// intermediates maps statements valid only inside a block to the openers
// that accept them.
var intermediates = map[string][]string{
	"elif":  {"if"},
	"else":  {"if", "for", "ifchanged", "ifequal", "ifnotequal"},
	"empty": {"for"},
}

// BlockCloser returns the terminator of an opening statement keyword.
func BlockCloser(keyword string) (string, bool) {
	c, ok := blockClosers[keyword]
	return c, ok
}

// IsBlockTerminator reports whether keyword closes a block.
func IsBlockTerminator(keyword string) bool {
	for _, c := range blockClosers {
		if c == keyword {
			return true
		}
	}
	return false
}

// AcceptsIntermediate reports whether opener may contain keyword, such as
// "else" inside "for". ok is false when keyword is not an intermediate.
func AcceptsIntermediate(opener, keyword string) (accepted, ok bool) {
	openers, ok := intermediates[keyword]
	if !ok {
		return false, false
	}
	for _, o := range openers {
		if o == opener {
			return true, true
		}
	}
	return false, true
}

// FindTemplateTags returns every complete tag in s in order of appearance.
func FindTemplateTags(s string) []string {
	var tags []string
	for _, r := range scanRegions(s) {
		tags = append(tags, s[r.start:r.end])
	}
	return tags
}
