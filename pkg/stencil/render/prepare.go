package render

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/odf"
)

var fieldElements = []string{odf.TextInput, odf.Placeholder, odf.DropDown}

// PrepareFields replaces input, placeholder and drop-down fields whose text
// is a single tag with a text node holding the tag. A field description such
// as "after::table-row" moves the tag next to the named ancestor instead.
// It returns the number of fields replaced.
func PrepareFields(doc *odf.Document) int {
	root := doc.Root()
	if root == nil {
		return 0
	}

	var fields []*etree.Element
	for _, name := range fieldElements {
		fields = append(fields, odf.FindAll(root, name)...)
	}

	n := 0
	for _, field := range fields {
		if field.Parent() == nil {
			continue
		}
		text := strings.TrimSpace(odf.Text(field))
		if !IsTemplateTag(text) {
			continue
		}
		node := odf.CreateTextNode(text)

		hint := field.SelectAttrValue("text:description", "")
		if before, name, ok := ParseHint(hint); ok {
			if anchor := odf.Ancestor(field, name); anchor != nil {
				if before {
					odf.InsertBefore(anchor, node)
				} else {
					odf.InsertAfter(anchor, node)
				}
				field.Parent().RemoveChild(field)
				n++
				continue
			}
		}

		odf.Replace(field, node)
		n++
	}
	return n
}

// DecodeHyperlinks URL-decodes the href of text:a elements when the decoded
// value holds a tag. Word processors store "{{ url }}" as
// "%7B%7B%20url%20%7D%7D", sometimes behind a "../" prefix.
func DecodeHyperlinks(root *etree.Element) int {
	n := 0
	for _, a := range odf.FindAll(root, odf.Anchor) {
		attr := a.SelectAttr("xlink:href")
		if attr == nil || !strings.Contains(attr.Value, "%") {
			continue
		}
		decoded, err := url.PathUnescape(attr.Value)
		if err != nil || len(scanRegions(decoded)) == 0 {
			continue
		}
		// The relative prefix is an artifact of saving, not part of the link.
		trimmed := decoded
		for strings.HasPrefix(trimmed, "../") {
			trimmed = trimmed[3:]
		}
		if strings.HasPrefix(trimmed, "{") {
			decoded = trimmed
		}
		attr.Value = decoded
		n++
	}
	return n
}

var frameNamePattern = regexp.MustCompile(`^\s*\{\{\s*(.+?)\s*\}\}\s*$`)

// RewriteImageFrames turns image frames named "{{ expr }}" into
// "{{ fn(expr) }}" so that rendering the name resolves the image.
func RewriteImageFrames(root *etree.Element, fn string) int {
	n := 0
	for _, frame := range odf.FindAll(root, odf.Frame) {
		attr := frame.SelectAttr("draw:name")
		if attr == nil || frame.SelectElement(odf.Image) == nil {
			continue
		}
		m := frameNamePattern.FindStringSubmatch(attr.Value)
		if m == nil {
			continue
		}
		attr.Value = "{{ " + fn + "(" + m[1] + ") }}"
		n++
	}
	return n
}

// FixMediaFrames points the image of every frame whose rendered name
// resolves to a media entry at that entry. Frames whose name rendered empty
// lose the name and keep their placeholder image.
func FixMediaFrames(root *etree.Element, resolve func(name string) (href string, ok bool)) int {
	n := 0
	for _, frame := range odf.FindAll(root, odf.Frame) {
		attr := frame.SelectAttr("draw:name")
		if attr == nil {
			continue
		}
		if strings.TrimSpace(attr.Value) == "" {
			frame.RemoveAttr("draw:name")
			continue
		}
		href, ok := resolve(attr.Value)
		if !ok {
			continue
		}
		img := frame.SelectElement(odf.Image)
		if img == nil {
			continue
		}
		img.CreateAttr("xlink:href", href)
		for _, bin := range img.SelectElements("office:binary-data") {
			img.RemoveChild(bin)
		}
		n++
	}
	return n
}
