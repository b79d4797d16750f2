package render

import "testing"

const regionSource = "Title\n{{ x }} {% if y %}ok{% endif %}\nü {{ z }}"

func TestRegions(t *testing.T) {
	regions := Regions(regionSource)
	if len(regions) != 4 {
		t.Fatalf("Regions() returned %d regions, want 4", len(regions))
	}
	want := []struct {
		text         string
		line, column int
	}{
		{"{{ x }}", 2, 1},
		{"{% if y %}", 2, 9},
		{"{% endif %}", 2, 21},
		{"{{ z }}", 3, 3},
	}
	for i, w := range want {
		r := regions[i]
		if r.Text != w.text || r.Line != w.line || r.Column != w.column {
			t.Errorf("region %d = %q at %d:%d, want %q at %d:%d", i, r.Text, r.Line, r.Column, w.text, w.line, w.column)
		}
		if regionSource[r.Start:r.End] != r.Text {
			t.Errorf("region %d offsets %d:%d do not match text", i, r.Start, r.End)
		}
	}
}

func TestOffset(t *testing.T) {
	tests := []struct {
		line, column, want int
	}{
		{1, 1, 0},
		{1, 3, 2},
		{2, 0, 6},
		{2, 9, 14},
		{3, 3, 41},
		{9, 1, len(regionSource)},
	}
	for _, tt := range tests {
		if got := Offset(regionSource, tt.line, tt.column); got != tt.want {
			t.Errorf("Offset(%d, %d) = %d, want %d", tt.line, tt.column, got, tt.want)
		}
	}
}

func TestRegionAt(t *testing.T) {
	tests := []struct {
		name         string
		line, column int
		want         string
		ok           bool
	}{
		{"inside", 2, 12, "{% if y %}", true},
		{"between tags", 2, 8, "{{ x }}", true},
		{"before first tag of line", 3, 1, "{{ z }}", true},
		{"line without tags", 1, 2, "", false},
		{"unknown position", 0, 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RegionAt(regionSource, tt.line, tt.column)
			if ok != tt.ok || got.Text != tt.want {
				t.Errorf("RegionAt(%d, %d) = %q, %v, want %q, %v", tt.line, tt.column, got.Text, ok, tt.want, tt.ok)
			}
		})
	}
}
