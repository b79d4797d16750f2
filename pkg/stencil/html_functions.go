package stencil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlPolicy drops scripts, event handlers and unsafe URLs before the
// fragment is converted. List numbering and keyboard input are kept.
var htmlPolicy = newHTMLPolicy()

func newHTMLPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")
	p.AllowElements("kbd")
	return p
}

var htmlFormats = map[atom.Atom]string{
	atom.B:      formatBold,
	atom.Strong: formatBold,
	atom.I:      formatItalic,
	atom.Em:     formatItalic,
	atom.U:      formatUnderline,
	atom.Ins:    formatUnderline,
	atom.S:      formatStrike,
	atom.Strike: formatStrike,
	atom.Del:    formatStrike,
	atom.Sup:    formatSuperscript,
	atom.Sub:    formatSubscript,
	atom.Code:   formatCode,
	atom.Kbd:    formatCode,
	atom.Samp:   formatCode,
	atom.Tt:     formatCode,
}

// HTML converts an HTML fragment to inline ODF markup using the
// stencil_html_* automatic styles.
func HTML(source, textPrefix string) (markup string, styles []string, err error) {
	rt := newRichText(textPrefix, "html")
	if err := rt.html(source); err != nil {
		return "", nil, err
	}
	return string(rt.Markup()), rt.Styles(), nil
}

func (rt *richText) html(source string) error {
	clean := htmlPolicy.Sanitize(source)
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(clean), body)
	if err != nil {
		return fmt.Errorf("invalid HTML: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	rt.htmlChildren(body, false)
	return nil
}

func (rt *richText) htmlNode(n *html.Node, pre bool) {
	switch n.Type {
	case html.TextNode:
		switch {
		case pre:
			rt.text(n.Data)
		case strings.TrimSpace(n.Data) == "" && besideBlock(n):
		default:
			rt.text(collapseSpace(n.Data, rt.lineStart))
		}
		return
	case html.ElementNode:
	default:
		return
	}

	if format, ok := htmlFormats[n.DataAtom]; ok {
		rt.open(format)
		rt.htmlChildren(n, pre)
		rt.close()
		return
	}

	switch n.DataAtom {
	case atom.Br:
		rt.lineBreak()
	case atom.A:
		href := attr(n, "href")
		if href == "" {
			rt.htmlChildren(n, pre)
			return
		}
		rt.openLink(href)
		rt.htmlChildren(n, pre)
		rt.close()
	case atom.P, atom.Blockquote, atom.Ul, atom.Ol, atom.Table:
		rt.breaks(2)
		rt.htmlChildren(n, pre)
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		rt.breaks(2)
		rt.open(formatBold)
		rt.htmlChildren(n, pre)
		rt.close()
	case atom.Pre:
		rt.breaks(2)
		rt.open(formatCode)
		rt.htmlChildren(n, true)
		rt.close()
	case atom.Li:
		rt.breaks(1)
		rt.text(listMarker(n))
		rt.htmlChildren(n, pre)
	case atom.Div, atom.Tr, atom.Hr:
		rt.breaks(1)
		rt.htmlChildren(n, pre)
	case atom.Td, atom.Th:
		if n.PrevSibling != nil {
			rt.text(" ")
		}
		rt.htmlChildren(n, pre)
	case atom.Img:
		rt.text(attr(n, "alt"))
	default:
		rt.htmlChildren(n, pre)
	}
}

func (rt *richText) htmlChildren(n *html.Node, pre bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rt.htmlNode(c, pre)
	}
}

var htmlBlocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Blockquote: true, atom.Ul: true, atom.Ol: true,
	atom.Li: true, atom.Table: true, atom.Tbody: true, atom.Thead: true, atom.Tr: true,
	atom.Td: true, atom.Th: true, atom.Pre: true, atom.Hr: true, atom.Br: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
}

// besideBlock reports whether a text node sits between block elements or at
// the edge of the fragment, where whitespace is not rendered.
func besideBlock(n *html.Node) bool {
	for _, sib := range []*html.Node{n.PrevSibling, n.NextSibling} {
		if sib == nil {
			if n.Parent == nil || n.Parent.DataAtom == atom.Body || htmlBlocks[n.Parent.DataAtom] {
				return true
			}
			continue
		}
		if sib.Type == html.ElementNode && htmlBlocks[sib.DataAtom] {
			return true
		}
	}
	return false
}

func collapseSpace(s string, trimLeft bool) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s == "" || trimLeft {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if !trimLeft && isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// listMarker is "• " for unordered items and "n. " inside an ol.
func listMarker(li *html.Node) string {
	parent := li.Parent
	if parent == nil || parent.DataAtom != atom.Ol {
		return "• "
	}
	start := 1
	if s := attr(parent, "start"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			start = v
		}
	}
	n := start
	for c := parent.FirstChild; c != nil && c != li; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Li {
			n++
		}
	}
	return strconv.Itoa(n) + ". "
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
