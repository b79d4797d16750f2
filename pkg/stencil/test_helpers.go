// test_helpers.go contains functions that are exposed only for testing purposes.
// These should not be used in production code.

package stencil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/container"
)

const testNamespaces = `xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"` +
	` xmlns:style="urn:oasis:names:tc:opendocument:xmlns:style:1.0"` +
	` xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"` +
	` xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0"` +
	` xmlns:draw="urn:oasis:names:tc:opendocument:xmlns:drawing:1.0"` +
	` xmlns:fo="urn:oasis:names:tc:opendocument:xmlns:xsl-fo-compatible:1.0"` +
	` xmlns:xlink="http://www.w3.org/1999/xlink"` +
	` xmlns:svg="urn:oasis:names:tc:opendocument:xmlns:svg-compatible:1.0"`

type testODT struct {
	header string
	media  map[string][]byte
}

// TestODTOption customizes NewTestODT.
type TestODTOption func(*testODT)

// WithTestMedia adds a file below Pictures/.
func WithTestMedia(name string, data []byte) TestODTOption {
	return func(o *testODT) {
		o.media[name] = data
	}
}

// WithTestHeader sets the content of the page header in styles.xml.
func WithTestHeader(content string) TestODTOption {
	return func(o *testODT) {
		o.header = content
	}
}

// TestContentXML wraps body, the content of office:text, in a content.xml
// document declaring the usual ODF namespaces.
func TestContentXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<office:document-content ` + testNamespaces + ` office:version="1.3">` +
		`<office:automatic-styles/>` +
		`<office:body><office:text>` + body + `</office:text></office:body>` +
		`</office:document-content>`
}

// NewTestODT builds an in-memory text document whose body is the given
// office:text content.
func NewTestODT(body string, opts ...TestODTOption) []byte {
	o := &testODT{media: make(map[string][]byte)}
	for _, opt := range opts {
		opt(o)
	}

	master := `<style:master-page style:name="Standard"/>`
	if o.header != "" {
		master = `<style:master-page style:name="Standard"><style:header>` + o.header + `</style:header></style:master-page>`
	}
	styles := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<office:document-styles ` + testNamespaces + ` office:version="1.3">` +
		`<office:styles/><office:automatic-styles/>` +
		`<office:master-styles>` + master + `</office:master-styles>` +
		`</office:document-styles>`

	names := make([]string, 0, len(o.media))
	for name := range o.media {
		names = append(names, name)
	}
	sort.Strings(names)

	var manifest strings.Builder
	manifest.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	manifest.WriteString(`<manifest:manifest xmlns:manifest="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0" manifest:version="1.3">`)
	fmt.Fprintf(&manifest, `<manifest:file-entry manifest:full-path="/" manifest:media-type="%s"/>`, container.MimeTypeText)
	manifest.WriteString(`<manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/>`)
	manifest.WriteString(`<manifest:file-entry manifest:full-path="styles.xml" manifest:media-type="text/xml"/>`)
	for _, name := range names {
		fmt.Fprintf(&manifest, `<manifest:file-entry manifest:full-path="%s%s" manifest:media-type="image/png"/>`, container.MediaDir, name)
	}
	manifest.WriteString(`</manifest:manifest>`)

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	write := func(name string, data []byte, method uint16) {
		fw, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			panic(err)
		}
		if _, err := fw.Write(data); err != nil {
			panic(err)
		}
	}
	write(container.MimeTypePart, []byte(container.MimeTypeText), zip.Store)
	write(container.ContentPart, []byte(TestContentXML(body)), zip.Deflate)
	write(container.StylesPart, []byte(styles), zip.Deflate)
	for _, name := range names {
		write(container.MediaDir+name, o.media[name], zip.Store)
	}
	write(container.ManifestPart, []byte(manifest.String()), zip.Deflate)
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
