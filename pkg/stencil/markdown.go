package stencil

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
).Parser()

// Markdown converts markdown to inline ODF markup. Paragraphs are separated
// by an empty line, emphasis and code use the stencil_markdown_* automatic
// styles, which are returned so that the caller can define them.
func Markdown(source, textPrefix string) (markup string, styles []string) {
	rt := newRichText(textPrefix, "markdown")
	rt.markdown(source)
	return string(rt.Markup()), rt.Styles()
}

func (rt *richText) markdown(source string) {
	src := []byte(source)
	doc := markdownParser.Parse(text.NewReader(src))
	rt.markdownBlocks(doc, src, 2, 2)
}

// markdownBlocks renders the children of parent, separating the first from
// earlier content with first line breaks and the others with rest.
func (rt *richText) markdownBlocks(parent ast.Node, src []byte, first, rest int) {
	sep := first
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		rt.markdownBlock(c, src, sep)
		sep = rest
	}
}

func (rt *richText) markdownBlock(n ast.Node, src []byte, sep int) {
	switch b := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		rt.breaks(sep)
		rt.markdownInline(n, src)
	case *ast.Heading:
		rt.breaks(sep)
		rt.open(formatBold)
		rt.markdownInline(n, src)
		rt.close()
	case *ast.List:
		i := 0
		for item := b.FirstChild(); item != nil; item = item.NextSibling() {
			if i == 0 {
				rt.breaks(sep)
			} else {
				rt.breaks(1)
			}
			marker := "• "
			if b.IsOrdered() {
				marker = strconv.Itoa(b.Start+i) + ". "
			}
			rt.text(marker)
			rt.markdownBlocks(item, src, 0, 1)
			i++
		}
	case *ast.CodeBlock, *ast.FencedCodeBlock:
		rt.breaks(sep)
		rt.open(formatCode)
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			if i > 0 {
				rt.lineBreak()
			}
			rt.text(strings.TrimRight(string(seg.Value(src)), "\r\n"))
		}
		rt.close()
	case *ast.ThematicBreak, *ast.HTMLBlock:
	default:
		rt.markdownBlocks(n, src, sep, 2)
	}
}

func (rt *richText) markdownInline(parent ast.Node, src []byte) {
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *ast.Text:
			rt.text(string(n.Segment.Value(src)))
			switch {
			case n.HardLineBreak():
				rt.lineBreak()
			case n.SoftLineBreak():
				rt.text(" ")
			}
		case *ast.String:
			rt.text(string(n.Value))
		case *ast.CodeSpan:
			rt.open(formatCode)
			rt.markdownInline(n, src)
			rt.close()
		case *ast.Emphasis:
			format := formatItalic
			if n.Level >= 2 {
				format = formatBold
			}
			rt.open(format)
			rt.markdownInline(n, src)
			rt.close()
		case *extast.Strikethrough:
			rt.open(formatStrike)
			rt.markdownInline(n, src)
			rt.close()
		case *ast.Link:
			rt.openLink(string(n.Destination))
			rt.markdownInline(n, src)
			rt.close()
		case *ast.AutoLink:
			rt.openLink(string(n.URL(src)))
			rt.text(string(n.Label(src)))
			rt.close()
		case *ast.RawHTML:
		default:
			// images keep their alt text
			rt.markdownInline(n, src)
		}
	}
}
