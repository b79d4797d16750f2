package stencil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/container"
	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/engine"
	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/odf"
	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/render"
	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/value"
)

// templateParts are rendered in this order. styles.xml holds headers and
// footers.
var templateParts = []string{container.ContentPart, container.StylesPart}

// RenderState is the stage a part has reached in the render pipeline.
type RenderState int

const (
	StateLoaded RenderState = iota
	StateTagsExtracted
	StateEvaluated
	StateReinjected
	StateDone
	StateFailed
)

func (s RenderState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateTagsExtracted:
		return "tags-extracted"
	case StateEvaluated:
		return "evaluated"
	case StateReinjected:
		return "reinjected"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("RenderState(%d)", int(s))
	}
}

// preparedPart is an XML part reduced to its template source.
type preparedPart struct {
	name string
	// raw is the part as stored in the package.
	raw        string
	source     string
	textPrefix string
}

// PreparedTemplate represents a compiled template ready for rendering.
// Use Prepare() or PrepareFile() to create an instance. A PreparedTemplate
// is safe for concurrent use; every render works on trees parsed afresh
// from the prepared sources.
type PreparedTemplate struct {
	pkg      *container.Package
	parts    []*preparedPart
	engine   engine.Engine
	config   *Config
	registry FunctionRegistry
	logger   *Logger

	closed bool
	mu     sync.RWMutex
}

// TemplateData represents the data context for rendering templates.
// It's a map of key-value pairs where values can be strings, numbers,
// booleans, slices, maps, structs, or any other type that can be accessed
// in template expressions. Rendering never modifies it.
//
// Example:
//
//	data := TemplateData{
//	    "name": "John Doe",
//	    "age": 30,
//	    "items": []map[string]interface{}{
//	        {"name": "Item 1", "price": 19.99},
//	        {"name": "Item 2", "price": 29.99},
//	    },
//	}
type TemplateData map[string]interface{}

// Lookup follows a dotted path such as "customer.address.city". Missing
// entries yield value.Undefined.
func (d TemplateData) Lookup(path ...string) value.Value {
	return value.Lookup(map[string]interface{}(d), path...)
}

// prepare is the internal implementation of template preparation
func prepare(r io.Reader, config *Config, registry FunctionRegistry) (*PreparedTemplate, error) {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, NewDocumentError("read", "", err)
	}
	return prepareBytes(buf.Bytes(), config, registry)
}

func prepareBytes(data []byte, config *Config, registry FunctionRegistry) (*PreparedTemplate, error) {
	if config == nil {
		config = GetGlobalConfig()
	}
	if registry == nil {
		registry = GetDefaultFunctionRegistry()
	}

	eng, err := config.newEngine()
	if err != nil {
		return nil, err
	}

	pkg, err := container.OpenBytes(data)
	if err != nil {
		return nil, NewDocumentError("open", "ODT", err)
	}

	pt := &PreparedTemplate{
		pkg:      pkg,
		engine:   eng,
		config:   config,
		registry: registry,
		logger:   GetLogger().WithField("engine", eng.Name()),
	}

	for _, name := range templateParts {
		if !pkg.HasPart(name) {
			continue
		}
		raw, err := pkg.ReadPart(name)
		if err != nil {
			return nil, NewDocumentError("read", name, err)
		}
		part, err := pt.preparePart(name, raw)
		if err != nil {
			return nil, err
		}
		pt.parts = append(pt.parts, part)
	}
	return pt, nil
}

// preparePart runs the reconciliation steps on one part: placeholder
// fields, hyperlinks and image frames are rewritten, split tags are merged
// and block statements relocated, then the serialized tree is unescaped
// into template source.
func (pt *PreparedTemplate) preparePart(name string, raw []byte) (*preparedPart, error) {
	log := pt.logger.WithField("part", name)

	doc, err := odf.Parse(raw)
	if err != nil {
		log.Debug("state %s", StateFailed)
		return nil, NewDocumentError("parse", name, err)
	}
	log.Debug("state %s", StateLoaded)

	fields := render.PrepareFields(doc)
	links := render.DecodeHyperlinks(doc.Root())
	frames := render.RewriteImageFrames(doc.Root(), "image")

	spans, err := render.Locate(doc.Root())
	if err != nil {
		var mte *render.MalformedTagError
		if errors.As(err, &mte) {
			mte.Part = name
		}
		log.Debug("state %s", StateFailed)
		return nil, err
	}
	split := 0
	for _, s := range spans {
		if s.Fragmented() {
			split++
		}
	}
	spans = render.Merge(spans)
	for _, s := range spans {
		if s.Restyled {
			log.Warn("tag %s mixes character styles; the style of its first part is kept", s.Text)
		}
	}
	relocated := render.RelocateBlocks(doc, spans)
	log.WithFields(Fields{
		"tags":      len(spans),
		"split":     split,
		"fields":    fields,
		"links":     links,
		"frames":    frames,
		"relocated": relocated,
	}).Debug("state %s", StateTagsExtracted)

	xml, err := doc.Bytes()
	if err != nil {
		return nil, NewDocumentError("serialize", name, err)
	}

	var opts []render.UnescapeOption
	if pt.config.NormalizeQuotes {
		opts = append(opts, render.WithSmartQuotes())
	}
	source := render.DecodeEscapeChars(render.UnescapeEntities(string(xml), opts...))

	return &preparedPart{
		name:       name,
		raw:        string(raw),
		source:     source,
		textPrefix: doc.Prefix(odf.NSText, "text"),
	}, nil
}

func (pt *PreparedTemplate) part(name string) *preparedPart {
	for _, p := range pt.parts {
		if p.name == name {
			return p
		}
	}
	return nil
}

// Parts lists the names of the parts holding template source.
func (pt *PreparedTemplate) Parts() []string {
	names := make([]string, len(pt.parts))
	for i, p := range pt.parts {
		names[i] = p.name
	}
	return names
}

// Source returns the template source of a part, the text handed to the
// template engine.
func (pt *PreparedTemplate) Source(part string) (string, error) {
	p := pt.part(part)
	if p == nil {
		return "", fmt.Errorf("%w: %s", container.ErrPartNotFound, part)
	}
	return p.source, nil
}

// Tags returns the reconstructed tags of every part in document order,
// keyed by part name.
func (pt *PreparedTemplate) Tags() map[string][]string {
	tags := make(map[string][]string, len(pt.parts))
	for _, p := range pt.parts {
		regions := render.Regions(p.source)
		list := make([]string, len(regions))
		for i, r := range regions {
			list[i] = r.Text
		}
		tags[p.name] = list
	}
	return tags
}

// InspectDiff returns a line diff between a part as stored in the package
// and its template source. Removed lines start with "-", added lines with
// "+" and unchanged lines with a space.
func (pt *PreparedTemplate) InspectDiff(part string) (string, error) {
	p := pt.part(part)
	if p == nil {
		return "", fmt.Errorf("%w: %s", container.ErrPartNotFound, part)
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(splitTags(p.raw), splitTags(p.source))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		mark := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			mark = "-"
		case diffmatchpatch.DiffInsert:
			mark = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(mark)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String(), nil
}

// splitTags puts every element on a line of its own so that the diff of
// single-line XML stays readable.
func splitTags(xml string) string {
	return strings.ReplaceAll(xml, "><", ">\n<")
}

// Render executes the template with the given data and returns a reader
// containing the rendered ODT file.
//
// Missing variables render as empty text unless StrictMode is set.
//
// Example:
//
//	output, err := tmpl.Render(stencil.TemplateData{"name": "World"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	io.Copy(file, output)
func (pt *PreparedTemplate) Render(data TemplateData) (io.Reader, error) {
	return pt.RenderContext(context.Background(), data)
}

// RenderContext is Render with a context checked between parts.
func (pt *PreparedTemplate) RenderContext(ctx context.Context, data TemplateData) (io.Reader, error) {
	var buf bytes.Buffer
	if err := pt.RenderTo(ctx, &buf, data); err != nil {
		return nil, err
	}
	return bytes.NewReader(buf.Bytes()), nil
}

// RenderTo renders into w. Nothing is written to w unless every part
// rendered.
func (pt *PreparedTemplate) RenderTo(ctx context.Context, w io.Writer, data TemplateData) error {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	if pt.closed {
		return fmt.Errorf("template is closed")
	}

	out, err := pt.render(ctx, data)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err := out.WriteTo(&buf); err != nil {
		return NewDocumentError("write", "ODT", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return NewDocumentError("write", "ODT", err)
	}
	return nil
}

// Close releases any resources held by the prepared template.
// After calling Close, the template should not be used.
func (pt *PreparedTemplate) Close() error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.closed {
		return nil
	}
	pt.closed = true
	pt.parts = nil
	pt.pkg = nil
	return nil
}

// IsClosed reports whether Close was called.
func (pt *PreparedTemplate) IsClosed() bool {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.closed
}
