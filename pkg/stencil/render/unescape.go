package render

import (
	"strings"
)

// &amp; stays escaped so that a second pass never sees a new entity.
var entityReplacer = strings.NewReplacer(
	"&gt;", ">",
	"&lt;", "<",
	"&quot;", `"`,
	"&apos;", "'",
)

var smartQuoteReplacer = strings.NewReplacer(
	"&gt;", ">",
	"&lt;", "<",
	"&quot;", `"`,
	"&apos;", "'",
	"“", `"`,
	"”", `"`,
	"„", `"`,
	"‘", "'",
	"’", "'",
)

type unescapeOptions struct {
	smartQuotes bool
}

// UnescapeOption configures UnescapeEntities.
type UnescapeOption func(*unescapeOptions)

// WithSmartQuotes also turns typographic quotes inside tags into ASCII
// quotes. Word processors autocorrect the quotes of string literals.
func WithSmartQuotes() UnescapeOption {
	return func(o *unescapeOptions) {
		o.smartQuotes = true
	}
}

// UnescapeEntities replaces &gt;, &lt;, &quot; and &apos; with the literal
// characters inside {{ }}, {% %} and {# #} regions. Text outside the regions
// is returned unchanged. The function is idempotent.
func UnescapeEntities(s string, opts ...UnescapeOption) string {
	var o unescapeOptions
	for _, opt := range opts {
		opt(&o)
	}
	replacer := entityReplacer
	if o.smartQuotes {
		replacer = smartQuoteReplacer
	}
	return mapRegions(s, func(_ TagKind, tag string) string {
		return replacer.Replace(tag)
	})
}
