package stencil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/engine"
	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/odf"
)

func TestReplaceLinkFunction(t *testing.T) {
	tests := []struct {
		name    string
		arg     interface{}
		want    engine.Safe
		wantErr bool
	}{
		{name: "url", arg: "https://example.com", want: `<stencil-link href="https://example.com"/>`},
		{name: "trimmed", arg: " /path/to/page ", want: `<stencil-link href="/path/to/page"/>`},
		{name: "escaped", arg: `https://example.com/?a=1&b="2"`, want: `<stencil-link href="https://example.com/?a=1&amp;b=&#34;2&#34;"/>`},
		{name: "empty", arg: "  ", wantErr: true},
		{name: "not a string", arg: 123, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := replaceLink(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyLinkReplacements(t *testing.T) {
	doc, err := odf.ParseString(TestContentXML(`<text:p><text:a xlink:type="simple" xlink:href="https://old.example">` +
		`<text:span><stencil-link href="https://new.example"/>Visit</text:span> us</text:a></text:p>`))
	require.NoError(t, err)

	n, err := applyLinkReplacements(doc.Root())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	a := odf.FindAll(doc.Root(), odf.Anchor)[0]
	assert.Equal(t, "https://new.example", a.SelectAttrValue("xlink:href", ""))
	assert.Equal(t, "Visit us", odf.Text(a))
	assert.NotContains(t, doc.String(), linkMarker)
}

func TestApplyLinkReplacementsOutsideHyperlink(t *testing.T) {
	doc, err := odf.ParseString(TestContentXML(`<text:p><stencil-link href="https://x.example"/></text:p>`))
	require.NoError(t, err)

	_, err = applyLinkReplacements(doc.Root())
	assert.ErrorContains(t, err, "not inside a hyperlink")
}

func TestRenderReplaceLink(t *testing.T) {
	tmpl := prepareBody(t, `<text:p><text:a xlink:type="simple" xlink:href="https://placeholder.example">{{ replaceLink(site) }}Visit us</text:a></text:p>`)

	content := renderContent(t, tmpl, TemplateData{"site": "https://example.com/?a=1&b=2"})
	doc, err := odf.ParseString(content)
	require.NoError(t, err)
	links := odf.FindAll(doc.Root(), odf.Anchor)
	require.Len(t, links, 1)
	assert.Equal(t, "https://example.com/?a=1&b=2", links[0].SelectAttrValue("xlink:href", ""))
	assert.Equal(t, "Visit us", odf.Text(links[0]))
}
