package render

import (
	"strings"
	"unicode/utf8"
)

type region struct {
	kind       TagKind
	start, end int
}

// scanRegions finds delimiter-pair scoped tag regions. A region ends at the
// first closing marker of its own kind; an opener without a closer is skipped.
func scanRegions(s string) []region {
	var out []region
	for i := 0; i+1 < len(s); {
		if s[i] != '{' {
			i++
			continue
		}
		kind, ok := openerKind(rune(s[i+1]))
		if !ok {
			i++
			continue
		}
		_, closing := kind.Delimiters()
		j := strings.Index(s[i+2:], closing)
		if j < 0 {
			i += 2
			continue
		}
		end := i + 2 + j + len(closing)
		out = append(out, region{kind: kind, start: i, end: end})
		i = end
	}
	return out
}

// mapRegions rewrites every tag region of s with fn and copies the rest.
func mapRegions(s string, fn func(kind TagKind, tag string) string) string {
	regions := scanRegions(s)
	if len(regions) == 0 {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	last := 0
	for _, r := range regions {
		sb.WriteString(s[last:r.start])
		sb.WriteString(fn(r.kind, s[r.start:r.end]))
		last = r.end
	}
	sb.WriteString(s[last:])
	return sb.String()
}

// Region is a tag found in a template source.
type Region struct {
	Kind TagKind
	// Start and End are byte offsets, End exclusive.
	Start, End int
	// Line and Column locate Start, both 1-based. Column counts runes.
	Line, Column int
	Text         string
}

// Regions lists the tags of source with their positions.
func Regions(source string) []Region {
	raw := scanRegions(source)
	out := make([]Region, 0, len(raw))
	line, col, pos := 1, 1, 0
	for _, r := range raw {
		for pos < r.start {
			ch, size := utf8.DecodeRuneInString(source[pos:])
			if ch == '\n' {
				line++
				col = 1
			} else {
				col++
			}
			pos += size
		}
		out = append(out, Region{
			Kind:   r.kind,
			Start:  r.start,
			End:    r.end,
			Line:   line,
			Column: col,
			Text:   source[r.start:r.end],
		})
	}
	return out
}

// Offset converts a 1-based line and rune column into a byte offset of
// source. A column of 0 means the start of the line.
func Offset(source string, line, column int) int {
	pos := 0
	for l := 1; l < line; l++ {
		nl := strings.IndexByte(source[pos:], '\n')
		if nl < 0 {
			return len(source)
		}
		pos += nl + 1
	}
	for c := 1; c < column && pos < len(source); c++ {
		if source[pos] == '\n' {
			break
		}
		_, size := utf8.DecodeRuneInString(source[pos:])
		pos += size
	}
	return pos
}

// RegionAt returns the tag that contains the given position. When the
// position falls between tags, the closest tag starting before it on the
// same line is used, then the first tag of that line.
func RegionAt(source string, line, column int) (Region, bool) {
	if line <= 0 {
		return Region{}, false
	}
	off := Offset(source, line, column)
	var before, first *Region
	regions := Regions(source)
	for i := range regions {
		r := &regions[i]
		if r.Start <= off && off < r.End {
			return *r, true
		}
		if r.Line != line {
			continue
		}
		if first == nil {
			first = r
		}
		if r.Start <= off {
			before = r
		}
	}
	if before != nil {
		return *before, true
	}
	if first != nil {
		return *first, true
	}
	return Region{}, false
}
