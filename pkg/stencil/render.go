package stencil

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/container"
	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/engine"
	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/odf"
	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/render"
)

// renderContext holds the state of one render call. It is never shared
// between calls.
type renderContext struct {
	id     string
	out    *container.Package
	media  *mediaStore
	logger *Logger

	// The part being evaluated; helpers read it to produce markup with the
	// right prefix and record the styles they use.
	part   *preparedPart
	styles map[string]bool
	links  bool
}

func (pt *PreparedTemplate) newRenderContext() *renderContext {
	id := uuid.NewString()
	out := pt.pkg.Clone()
	return &renderContext{
		id:     id,
		out:    out,
		media:  newMediaStore(out, pt.config.MediaDir),
		logger: pt.logger.WithField("render_id", id),
	}
}

// funcs binds the registry functions and the helpers that depend on the
// render: image, markdown, html and replaceLink.
func (rc *renderContext) funcs(registry FunctionRegistry) engine.FuncMap {
	funcs := funcMap(registry)
	for _, fn := range []Function{
		NewSimpleFunction("image", 1, 2, rc.image),
		NewSimpleFunction("markdown", 1, 1, rc.markdown),
		NewSimpleFunction("html", 1, 1, rc.html),
		NewSimpleFunction("replaceLink", 1, 1, replaceLink),
	} {
		funcs[fn.Name()] = bindFunction(fn)
	}
	return funcs
}

// image(src [, mimetype]) stores the image and renders its media key. A
// missing source renders nothing, leaving the frame as it is.
func (rc *renderContext) image(args ...interface{}) (interface{}, error) {
	if isEmpty(args[0]) {
		return "", nil
	}
	m, err := loadMedia(args[0], optionalString(args, 1, ""), rc.media.dir)
	if err != nil {
		return nil, err
	}
	key, err := rc.media.Add(m)
	if err != nil {
		return nil, err
	}
	rc.logger.Debug("added image %s (%s, %d bytes)", key, m.MimeType, len(m.Data))
	return key, nil
}

func (rc *renderContext) markdown(args ...interface{}) (interface{}, error) {
	if isEmpty(args[0]) {
		return nil, nil
	}
	rt := newRichText(rc.part.textPrefix, "markdown")
	rt.markdown(FormatValue(args[0]))
	rc.collect(rt)
	return rt.Markup(), nil
}

func (rc *renderContext) html(args ...interface{}) (interface{}, error) {
	if isEmpty(args[0]) {
		return nil, nil
	}
	rt := newRichText(rc.part.textPrefix, "html")
	if err := rt.html(FormatValue(args[0])); err != nil {
		return nil, err
	}
	rc.collect(rt)
	return rt.Markup(), nil
}

func (rc *renderContext) collect(rt *richText) {
	for name := range rt.styles {
		rc.styles[name] = true
	}
	rc.links = rc.links || rt.links
}

// render evaluates every part into a copy of the package. The copy is
// returned only when all parts succeeded.
func (pt *PreparedTemplate) render(ctx context.Context, data TemplateData) (*container.Package, error) {
	rc := pt.newRenderContext()
	funcs := rc.funcs(pt.registry)
	rc.logger.Debug("render started with %d parts", len(pt.parts))

	for _, part := range pt.parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := pt.renderPart(ctx, rc, part, data, funcs)
		if err != nil {
			rc.logger.WithField("part", part.name).Debug("state %s: %v", StateFailed, err)
			return nil, err
		}
		rc.out.WritePart(part.name, out)
	}

	rc.logger.Debug("render finished, %d images added", rc.media.Len())
	return rc.out, nil
}

func (pt *PreparedTemplate) renderPart(ctx context.Context, rc *renderContext, part *preparedPart, data TemplateData, funcs engine.FuncMap) ([]byte, error) {
	log := rc.logger.WithField("part", part.name)
	rc.part = part
	rc.styles = make(map[string]bool)
	rc.links = false

	result, err := pt.engine.Render(ctx, part.source, data, funcs)
	if err != nil {
		return nil, evaluationError(part, err)
	}
	log.Debug("state %s", StateEvaluated)

	encoded := render.EncodeEscapeChars(result, render.WithObserver(func(err error) {
		log.Warn("%v", err)
	}))

	doc, err := odf.ParseString(encoded)
	if err != nil {
		return nil, &TemplateEvaluationError{
			Part:    part.name,
			Excerpt: excerpt(encoded, err),
			Cause:   err,
		}
	}

	styles := make([]string, 0, len(rc.styles))
	for name := range rc.styles {
		styles = append(styles, name)
	}
	sort.Strings(styles)
	InjectStyles(doc, styles)
	if rc.links {
		doc.Declare("xlink", odf.NSXLink)
	}
	frames := render.FixMediaFrames(doc.Root(), rc.media.Resolve)
	links, err := applyLinkReplacements(doc.Root())
	if err != nil {
		return nil, &TemplateEvaluationError{Part: part.name, Cause: err}
	}
	log.WithFields(Fields{"frames": frames, "links": links}).Debug("state %s", StateReinjected)

	out, err := doc.Bytes()
	if err != nil {
		return nil, NewDocumentError("serialize", part.name, err)
	}
	log.Debug("state %s", StateDone)
	return out, nil
}

// evaluationError locates an engine failure in the template source.
func evaluationError(part *preparedPart, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	tee := &TemplateEvaluationError{Part: part.name, Cause: err}
	var ee *engine.Error
	if !errors.As(err, &ee) {
		return tee
	}
	tee.Line, tee.Column = ee.Line, ee.Column

	if r, ok := render.RegionAt(part.source, ee.Line, ee.Column); ok {
		tee.Tag = r.Text
		tee.Line, tee.Column = r.Line, r.Column
	} else if ee.Token != "" {
		for _, r := range render.Regions(part.source) {
			if strings.Contains(r.Text, ee.Token) {
				tee.Tag = r.Text
				tee.Line, tee.Column = r.Line, r.Column
				break
			}
		}
	}
	if tee.Line > 0 {
		tee.Excerpt = sourceExcerpt(part.source, tee.Line, tee.Column)
	}
	return tee
}

var xmlErrorLine = regexp.MustCompile(`line (\d+)`)

const excerptWidth = 60

// excerpt returns the start of the rendered output line an XML parse error
// points at.
func excerpt(output string, err error) string {
	line := 1
	if m := xmlErrorLine.FindStringSubmatch(err.Error()); m != nil {
		line, _ = strconv.Atoi(m[1])
	}
	return sourceExcerpt(output, line, 1)
}

// sourceExcerpt returns up to excerptWidth runes on each side of a position,
// without crossing line ends.
func sourceExcerpt(s string, line, column int) string {
	off := render.Offset(s, line, column)
	start := strings.LastIndexByte(s[:off], '\n') + 1
	end := len(s)
	if nl := strings.IndexByte(s[off:], '\n'); nl >= 0 {
		end = off + nl
	}

	before := []rune(s[start:off])
	after := []rune(s[off:end])
	prefix, suffix := "", ""
	if len(before) > excerptWidth {
		before = before[len(before)-excerptWidth:]
		prefix = "..."
	}
	if len(after) > excerptWidth {
		after = after[:excerptWidth]
		suffix = "..."
	}
	return prefix + string(before) + string(after) + suffix
}
