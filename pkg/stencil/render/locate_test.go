package render

import (
	"errors"
	"testing"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/odf"
)

func parse(t *testing.T, xml string) *odf.Document {
	t.Helper()
	doc, err := odf.ParseString(xml)
	if err != nil {
		t.Fatalf("ParseString(%q) error = %v", xml, err)
	}
	return doc
}

func TestLocate(t *testing.T) {
	tests := []struct {
		name       string
		xml        string
		want       []string
		fragmented []bool
	}{
		{
			name:       "single run",
			xml:        `<text:p>Hello {{ name }}!</text:p>`,
			want:       []string{"{{ name }}"},
			fragmented: []bool{false},
		},
		{
			name:       "split by span",
			xml:        `<text:p>Hello {{ <text:span text:style-name="T1">na</text:span>me }}!</text:p>`,
			want:       []string{"{{ name }}"},
			fragmented: []bool{true},
		},
		{
			name:       "split delimiters",
			xml:        `<text:p>{<text:span>%</text:span> if x %<text:span>}</text:span>{{ y }}</text:p>`,
			want:       []string{"{% if x %}", "{{ y }}"},
			fragmented: []bool{true, false},
		},
		{
			name:       "whitespace element",
			xml:        `<text:p>{{<text:s/>a<text:s text:c="2"/>}}</text:p>`,
			want:       []string{"{{ a  }}"},
			fragmented: []bool{true},
		},
		{
			name:       "bookmark inside tag",
			xml:        `<text:p>{{ a<text:bookmark text:name="b"/> }}</text:p>`,
			want:       []string{"{{ a }}"},
			fragmented: []bool{true},
		},
		{
			name:       "opener of another kind restarts",
			xml:        `<text:p>{{{% if x %}</text:p>`,
			want:       []string{"{% if x %}"},
			fragmented: []bool{false},
		},
		{
			name: "blocks scanned separately",
			xml: `<office:text><text:p>{{ a }}</text:p><text:h>{{ b }}</text:h>` +
				`<table:table><table:table-row><table:table-cell><text:p>{{ c }}</text:p></table:table-cell></table:table-row></table:table></office:text>`,
			want:       []string{"{{ a }}", "{{ b }}", "{{ c }}"},
			fragmented: []bool{false, false, false},
		},
		{
			name: "nested paragraph",
			xml: `<text:p>{{ outer }}<draw:frame><draw:text-box><text:p>{{ inner }}</text:p></draw:text-box></draw:frame></text:p>`,
			want:       []string{"{{ outer }}", "{{ inner }}"},
			fragmented: []bool{false, false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.xml)
			spans, err := Locate(doc.Root())
			if err != nil {
				t.Fatalf("Locate() error = %v", err)
			}
			if len(spans) != len(tt.want) {
				t.Fatalf("Locate() found %d spans, want %d", len(spans), len(tt.want))
			}
			for i, s := range spans {
				if s.Text != tt.want[i] {
					t.Errorf("span %d text = %q, want %q", i, s.Text, tt.want[i])
				}
				if s.Fragmented() != tt.fragmented[i] {
					t.Errorf("span %d fragmented = %v, want %v", i, s.Fragmented(), tt.fragmented[i])
				}
			}
		})
	}
}

func TestLocateMalformed(t *testing.T) {
	tests := []struct {
		name     string
		xml      string
		wantText string
		offset   int
	}{
		{
			name:     "never closed",
			xml:      `<office:text><text:p>ok {{ a }}</text:p><text:p>Hello {{ name</text:p></office:text>`,
			wantText: "{{ name",
			offset:   6,
		},
		{
			name:     "closer in next paragraph",
			xml:      `<office:text><text:p>{% if x</text:p><text:p>%}</text:p></office:text>`,
			wantText: "{% if x",
			offset:   0,
		},
		{
			name:     "opaque element inside tag",
			xml:      `<text:p>{{ a <office:annotation><text:p>note</text:p></office:annotation> }}</text:p>`,
			wantText: "{{ a ",
			offset:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.xml)
			_, err := Locate(doc.Root())
			var malformedErr *MalformedTagError
			if !errors.As(err, &malformedErr) {
				t.Fatalf("Locate() error = %v, want *MalformedTagError", err)
			}
			if malformedErr.Text != tt.wantText || malformedErr.Offset != tt.offset {
				t.Errorf("error = %+v, want text %q at %d", malformedErr, tt.wantText, tt.offset)
			}
			if malformedErr.Path == "" {
				t.Error("error should carry the block path")
			}
		})
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want string
	}{
		{
			name: "spell checker split",
			xml:  `<text:p>Hello {{ <text:span text:style-name="T1">na</text:span>me }}!</text:p>`,
			want: `<text:p>Hello {{ name }}!</text:p>`,
		},
		{
			name: "span keeps other text",
			xml:  `<text:p>{{ a<text:span text:style-name="T1">b }} bold</text:span></text:p>`,
			want: `<text:p>{{ ab }}<text:span text:style-name="T1"> bold</text:span></text:p>`,
		},
		{
			name: "whitespace elements dropped",
			xml:  `<text:p>{{<text:s/>name<text:tab/>}}</text:p>`,
			want: "<text:p>{{ name\t}}</text:p>",
		},
		{
			name: "several tags in reverse order",
			xml:  `<text:p>{<text:span>{ a }</text:span>} and {<text:span>% if b %}</text:span>x</text:p>`,
			want: `<text:p>{{ a }} and {% if b %}x</text:p>`,
		},
		{
			name: "nested spans pruned",
			xml:  `<text:p>{{ <text:span><text:a xlink:href="u">x</text:a></text:span> }}</text:p>`,
			want: `<text:p>{{ x }}</text:p>`,
		},
		{
			name: "unsplit tags untouched",
			xml:  `<text:p>A <text:span text:style-name="B">{{ b }}</text:span></text:p>`,
			want: `<text:p>A <text:span text:style-name="B">{{ b }}</text:span></text:p>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.xml)
			spans, err := Locate(doc.Root())
			if err != nil {
				t.Fatalf("Locate() error = %v", err)
			}
			merged := Merge(spans)
			if got := doc.WriteNode(doc.Root()); got != tt.want {
				t.Errorf("Merge() tree = %q, want %q", got, tt.want)
			}
			for _, s := range merged {
				if s.Fragmented() {
					t.Errorf("span %q still fragmented after Merge", s.Text)
				}
				if got := s.Start.Node.Data[s.Start.Offset:s.End.Offset]; got != s.Text {
					t.Errorf("span positions cover %q, want %q", got, s.Text)
				}
			}
		})
	}
}

func TestMergeIdempotent(t *testing.T) {
	doc := parse(t, `<text:p>{{ <text:span>a</text:span> }}</text:p>`)
	spans, _ := Locate(doc.Root())
	Merge(spans)
	first := doc.WriteNode(doc.Root())

	spans, err := Locate(doc.Root())
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	Merge(spans)
	if got := doc.WriteNode(doc.Root()); got != first {
		t.Errorf("second merge changed the tree: %q, want %q", got, first)
	}
}

func TestMergeRestyled(t *testing.T) {
	tests := []struct {
		xml  string
		want bool
	}{
		{`<text:p>{{ <text:span>na</text:span>me }}</text:p>`, false},
		{`<text:p><text:span text:style-name="T1">{{ na</text:span><text:span text:style-name="T1">me }}</text:span></text:p>`, false},
		{`<text:p>{{ <text:span text:style-name="Bold">na</text:span>me }}</text:p>`, true},
		{`<text:p>{{ name }}</text:p>`, false},
	}
	for _, tt := range tests {
		doc := parse(t, tt.xml)
		spans, err := Locate(doc.Root())
		if err != nil {
			t.Fatalf("Locate() error = %v", err)
		}
		merged := Merge(spans)
		if len(merged) != 1 {
			t.Fatalf("Merge(%s) returned %d spans", tt.xml, len(merged))
		}
		if merged[0].Restyled != tt.want {
			t.Errorf("Merge(%s).Restyled = %v, want %v", tt.xml, merged[0].Restyled, tt.want)
		}
	}
}
