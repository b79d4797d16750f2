package stencil

import (
	"fmt"
	"html"
	"strings"

	"github.com/beevik/etree"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/engine"
	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/odf"
)

// linkMarker is the element replaceLink renders. It is removed once the
// enclosing hyperlink points at its URL.
const linkMarker = "stencil-link"

// replaceLink(url) points the hyperlink around the tag at url:
//
//	<text:a xlink:href="https://placeholder">{{ replaceLink(site) }}Visit us</text:a>
func replaceLink(args ...interface{}) (interface{}, error) {
	url, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("replaceLink expects a string argument, got %T", args[0])
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("replaceLink: URL cannot be empty")
	}
	return engine.Safe(`<` + linkMarker + ` href="` + html.EscapeString(url) + `"/>`), nil
}

// applyLinkReplacements moves the URL of every replaceLink marker to the
// nearest enclosing text:a and drops the marker.
func applyLinkReplacements(root *etree.Element) (int, error) {
	markers := odf.FindAll(root, linkMarker)
	for _, m := range markers {
		href := m.SelectAttrValue("href", "")
		a := odf.Ancestor(m, odf.Anchor)
		if a == nil {
			return 0, fmt.Errorf("replaceLink(%q) is not inside a hyperlink", href)
		}
		a.CreateAttr("xlink:href", href)
		m.Parent().RemoveChild(m)
	}
	return len(markers), nil
}
