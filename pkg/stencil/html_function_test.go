package stencil

import (
	"reflect"
	"strings"
	"testing"
)

const lb = `<text:line-break/>`

func htmlSpan(format, text string) string {
	return `<text:span text:style-name="stencil_html_` + format + `">` + text + `</text:span>`
}

func TestHTMLParsingBasicTags(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		format string
	}{
		{"bold tag", "<b>bold text</b>", "bold"},
		{"strong tag", "<strong>strong text</strong>", "bold"},
		{"italic tag", "<i>italic text</i>", "italic"},
		{"emphasis tag", "<em>emphasis text</em>", "italic"},
		{"underline tag", "<u>underlined text</u>", "underline"},
		{"strikethrough tag", "<s>strikethrough text</s>", "strike"},
		{"superscript tag", "<sup>superscript text</sup>", "superscript"},
		{"subscript tag", "<sub>subscript text</sub>", "subscript"},
		{"code tag", "<code>code text</code>", "code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markup, styles, err := HTML(tt.html, "text")
			if err != nil {
				t.Fatalf("HTML failed: %v", err)
			}
			text := tt.html[strings.Index(tt.html, ">")+1 : strings.LastIndex(tt.html, "<")]
			if want := htmlSpan(tt.format, text); markup != want {
				t.Errorf("markup = %s, want %s", markup, want)
			}
			if want := []string{"stencil_html_" + tt.format}; !reflect.DeepEqual(styles, want) {
				t.Errorf("styles = %v, want %v", styles, want)
			}
		})
	}
}

func TestHTMLParsingComplexStructures(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "mixed formatting",
			html: "Normal <b>bold</b> and <i>italic</i>",
			want: "Normal " + htmlSpan("bold", "bold") + " and " + htmlSpan("italic", "italic"),
		},
		{
			name: "nested formatting",
			html: "<b>bold <i>both</i></b>",
			want: `<text:span text:style-name="stencil_html_bold">bold ` + htmlSpan("italic", "both") + `</text:span>`,
		},
		{
			name: "paragraphs",
			html: "<p>one</p><p>two</p>",
			want: "one" + lb + lb + "two",
		},
		{
			name: "whitespace between blocks",
			html: "<p>one</p>\n  <p>two</p>",
			want: "one" + lb + lb + "two",
		},
		{
			name: "line break",
			html: "line<br>next",
			want: "line" + lb + "next",
		},
		{
			name: "unordered list",
			html: "<ul><li>a</li><li>b</li></ul>",
			want: "• a" + lb + "• b",
		},
		{
			name: "ordered list with start",
			html: `<ol start="3"><li>x</li><li>y</li></ol>`,
			want: "3. x" + lb + "4. y",
		},
		{
			name: "heading",
			html: "<h2>Title</h2><p>text</p>",
			want: htmlSpan("bold", "Title") + lb + lb + "text",
		},
		{
			name: "escaped text",
			html: "a &amp; b &lt; c",
			want: "a &amp; b &lt; c",
		},
		{
			name: "collapsed spaces",
			html: "a    b",
			want: "a b",
		},
		{
			name: "preformatted spaces",
			html: "<pre>a   b</pre>",
			want: `<text:span text:style-name="stencil_html_code">a <text:s text:c="2"/>b</text:span>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markup, _, err := HTML(tt.html, "text")
			if err != nil {
				t.Fatalf("HTML failed: %v", err)
			}
			if markup != tt.want {
				t.Errorf("markup = %s\nwant     %s", markup, tt.want)
			}
		})
	}
}

func TestHTMLLinks(t *testing.T) {
	markup, _, err := HTML(`see <a href="https://example.com/a?b=1&amp;c=2">the site</a>`, "text")
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	want := `see <text:a xlink:type="simple" xlink:href="https://example.com/a?b=1&amp;c=2">the site</text:a>`
	if markup != want {
		t.Errorf("markup = %s, want %s", markup, want)
	}

	markup, _, err = HTML(`<a>plain</a>`, "text")
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	if markup != "plain" {
		t.Errorf("anchor without href = %s, want plain", markup)
	}
}

func TestHTMLSanitizes(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"script", "<script>alert(1)</script>safe", "safe"},
		{"event handler", `<b onclick="evil()">x</b>`, htmlSpan("bold", "x")},
		{"javascript url", `<a href="javascript:evil()">x</a>`, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markup, _, err := HTML(tt.html, "text")
			if err != nil {
				t.Fatalf("HTML failed: %v", err)
			}
			if markup != tt.want {
				t.Errorf("markup = %s, want %s", markup, tt.want)
			}
		})
	}
}

func TestHTMLTextPrefix(t *testing.T) {
	markup, _, err := HTML("<i>x</i><br>", "t")
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	want := `<t:span t:style-name="stencil_html_italic">x</t:span><t:line-break/>`
	if markup != want {
		t.Errorf("markup = %s, want %s", markup, want)
	}
}

func TestHTMLEmpty(t *testing.T) {
	markup, styles, err := HTML("", "text")
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	if markup != "" || len(styles) != 0 {
		t.Errorf("HTML(\"\") = %q, %v", markup, styles)
	}
}
