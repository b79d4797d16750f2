package stencil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/container"
	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/render"
)

const validationParserVersion = "odt-v1"

// IssueSeverity indicates parser issue severity.
type IssueSeverity string

const (
	IssueSeverityError   IssueSeverity = "error"
	IssueSeverityWarning IssueSeverity = "warning"
)

// StencilIssueCode contains syntax-level issue codes.
type StencilIssueCode string

const (
	IssueCodeSyntaxError          StencilIssueCode = "SYNTAX_ERROR"
	IssueCodeControlBlockMismatch StencilIssueCode = "CONTROL_BLOCK_MISMATCH"
	IssueCodeNestingTooDeep       StencilIssueCode = "NESTING_TOO_DEEP"
	IssueCodeCompileError         StencilIssueCode = "COMPILE_ERROR"
)

// TokenKind identifies extracted token/reference categories.
type TokenKind string

const (
	TokenKindVariable TokenKind = "variable"
	TokenKindControl  TokenKind = "control"
	TokenKindFunction TokenKind = "function"
	TokenKindFilter   TokenKind = "filter"
)

// ValidateTemplateSyntaxInput controls syntax validation behavior.
type ValidateTemplateSyntaxInput struct {
	ODTBytes           []byte `json:"-"`
	TemplateRevisionID string `json:"templateRevisionId,omitempty"`
	MaxIssues          int    `json:"maxIssues,omitempty"` // 0 = unlimited
}

// ExtractReferencesInput controls reference extraction behavior.
type ExtractReferencesInput struct {
	ODTBytes           []byte `json:"-"`
	TemplateRevisionID string `json:"templateRevisionId,omitempty"`
}

// TemplateLocation identifies a tag in the template source of a part.
// Line and Column are 0 for tags that never made it into the source, such
// as an unterminated tag.
type TemplateLocation struct {
	Part         string `json:"part"`
	Line         int    `json:"line"`
	Column       int    `json:"column"`
	TokenOrdinal int    `json:"tokenOrdinal"`
	AnchorID     string `json:"anchorId,omitempty"`
}

// TemplateTokenRef references one token-derived item.
type TemplateTokenRef struct {
	Raw        string           `json:"raw"`
	Kind       TokenKind        `json:"kind"`
	Expression string           `json:"expression,omitempty"`
	Location   TemplateLocation `json:"location"`
}

// StencilValidationIssue is a syntax issue found in a template.
type StencilValidationIssue struct {
	ID          string           `json:"id"`
	Severity    IssueSeverity    `json:"severity"`
	Code        StencilIssueCode `json:"code"`
	Message     string           `json:"message"`
	Token       TemplateTokenRef `json:"token"`
	Location    TemplateLocation `json:"location"`
	Suggestions []string         `json:"suggestions,omitempty"`
}

// StencilValidationSummary contains validation counters.
type StencilValidationSummary struct {
	CheckedTokens      int `json:"checkedTokens"`
	ErrorCount         int `json:"errorCount"`
	WarningCount       int `json:"warningCount"`
	ReturnedIssueCount int `json:"returnedIssueCount"`
}

// StencilMetadata identifies parser metadata and request passthrough fields.
type StencilMetadata struct {
	DocumentHash       string `json:"documentHash"`
	TemplateRevisionID string `json:"templateRevisionId,omitempty"`
	ParserVersion      string `json:"parserVersion"`
}

// ValidateTemplateSyntaxResult contains syntax validation output.
type ValidateTemplateSyntaxResult struct {
	Valid           bool                     `json:"valid"`
	Summary         StencilValidationSummary `json:"summary"`
	Issues          []StencilValidationIssue `json:"issues"`
	IssuesTruncated bool                     `json:"issuesTruncated"`
	Metadata        StencilMetadata          `json:"metadata"`
}

// ExtractReferencesResult contains references extracted from template tags.
type ExtractReferencesResult struct {
	References []TemplateTokenRef `json:"references"`
	Metadata   StencilMetadata    `json:"metadata"`
}

// ValidateTemplate checks a template with the default engine and returns
// the problems found. A nil slice means the template is valid.
func ValidateTemplate(r io.Reader) ([]ValidationIssue, error) {
	return DefaultEngine.ValidateTemplate(r)
}

// ValidateTemplate reads an ODT template and reports unterminated tags,
// unbalanced block statements, blocks nested deeper than MaxRenderDepth and
// tags the template engine cannot compile.
func (e *Engine) ValidateTemplate(r io.Reader) ([]ValidationIssue, error) {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, NewDocumentError("read", "", err)
	}
	result, err := validateSyntax(ValidateTemplateSyntaxInput{ODTBytes: buf.Bytes()}, e.config)
	if err != nil {
		return nil, err
	}

	var issues []ValidationIssue
	for _, issue := range result.Issues {
		issues = append(issues, ValidationIssue{
			Part:    issue.Location.Part,
			Line:    issue.Location.Line,
			Column:  issue.Location.Column,
			Tag:     issue.Token.Raw,
			Message: issue.Message,
		})
	}
	return issues, nil
}

// ValidateTemplateSyntax validates ODT template syntax and block balance
// with the global configuration.
func ValidateTemplateSyntax(input ValidateTemplateSyntaxInput) (ValidateTemplateSyntaxResult, error) {
	return validateSyntax(input, GetGlobalConfig())
}

func validateSyntax(input ValidateTemplateSyntaxInput, config *Config) (ValidateTemplateSyntaxResult, error) {
	if len(input.ODTBytes) == 0 {
		return ValidateTemplateSyntaxResult{}, fmt.Errorf("odt bytes are required")
	}
	if input.MaxIssues < 0 {
		return ValidateTemplateSyntaxResult{}, fmt.Errorf("maxIssues must be >= 0")
	}

	scan, err := scanODTTags(input.ODTBytes, config)
	if err != nil {
		return ValidateTemplateSyntaxResult{}, err
	}

	var issues []StencilValidationIssue
	for _, part := range scan {
		partIssues := validateTagSpans(part.spans, config.MaxRenderDepth)
		if len(partIssues) == 0 && part.source != nil {
			partIssues = compileIssues(part, config)
		}
		issues = append(issues, partIssues...)
	}
	sortValidationIssues(issues)
	for i := range issues {
		issues[i].ID = fmt.Sprintf("iss_%03d", i+1)
	}

	returnedIssues := issues
	issuesTruncated := false
	if input.MaxIssues > 0 && len(issues) > input.MaxIssues {
		returnedIssues = issues[:input.MaxIssues]
		issuesTruncated = true
	}

	checked := 0
	for _, part := range scan {
		checked += len(part.spans)
	}

	return ValidateTemplateSyntaxResult{
		Valid: len(issues) == 0,
		Summary: StencilValidationSummary{
			CheckedTokens:      checked,
			ErrorCount:         len(issues),
			ReturnedIssueCount: len(returnedIssues),
		},
		Issues:          returnedIssues,
		IssuesTruncated: issuesTruncated,
		Metadata:        newValidationMetadata(input.ODTBytes, input.TemplateRevisionID),
	}, nil
}

// ExtractReferences lists the variables, functions, filters and block
// statements used by the tags of a template.
func ExtractReferences(input ExtractReferencesInput) (ExtractReferencesResult, error) {
	if len(input.ODTBytes) == 0 {
		return ExtractReferencesResult{}, fmt.Errorf("odt bytes are required")
	}

	scan, err := scanODTTags(input.ODTBytes, GetGlobalConfig())
	if err != nil {
		return ExtractReferencesResult{}, err
	}

	references := make([]TemplateTokenRef, 0)
	for _, part := range scan {
		references = append(references, extractReferencesFromSpans(part.spans)...)
	}
	sortTemplateReferences(references)

	return ExtractReferencesResult{
		References: references,
		Metadata:   newValidationMetadata(input.ODTBytes, input.TemplateRevisionID),
	}, nil
}

type tagSpan struct {
	Part             string
	Region           render.Region
	Tag              render.Tag
	Raw              string
	TokenOrdinal     int
	AnchorID         string
	Malformed        bool
	MalformedMessage string
}

type scannedPart struct {
	name string
	// source is nil when the part could not be reduced to template source.
	source *preparedPart
	spans  []tagSpan
}

type validationControlFrame struct {
	span   tagSpan
	closer string
}

// scanODTTags runs the preparation steps on every template part and lists
// the reconstructed tags. A part with an unterminated tag yields that tag
// alone.
func scanODTTags(data []byte, config *Config) ([]scannedPart, error) {
	pkg, err := container.OpenBytes(data)
	if err != nil {
		return nil, NewDocumentError("open", "ODT", err)
	}

	pt := &PreparedTemplate{
		pkg:    pkg,
		config: config,
		logger: GetLogger().WithField("op", "validate"),
	}

	var parts []scannedPart
	ordinal := 0
	for _, name := range templateParts {
		if !pkg.HasPart(name) {
			continue
		}
		raw, err := pkg.ReadPart(name)
		if err != nil {
			return nil, NewDocumentError("read", name, err)
		}

		part := scannedPart{name: name}
		prepared, err := pt.preparePart(name, raw)
		var mte *render.MalformedTagError
		switch {
		case errors.As(err, &mte):
			span := tagSpan{
				Part:             name,
				Raw:              mte.Text,
				TokenOrdinal:     ordinal,
				Malformed:        true,
				MalformedMessage: fmt.Sprintf("tag is never closed (block %s, offset %d)", mte.Path, mte.Offset),
			}
			span.AnchorID = buildAnchorID(span)
			part.spans = append(part.spans, span)
			ordinal++
		case err != nil:
			return nil, err
		default:
			part.source = prepared
			for _, region := range render.Regions(prepared.source) {
				span := tagSpan{
					Part:         name,
					Region:       region,
					Raw:          region.Text,
					TokenOrdinal: ordinal,
				}
				span.Tag, _ = render.ParseTag(region.Text)
				span.AnchorID = buildAnchorID(span)
				part.spans = append(part.spans, span)
				ordinal++
			}
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func buildAnchorID(span tagSpan) string {
	seed := strings.Join([]string{
		span.Part,
		strconv.Itoa(span.Region.Line),
		strconv.Itoa(span.Region.Column),
		span.Raw,
	}, "|")

	sum := sha256.Sum256([]byte(seed))
	return "anchor_" + hex.EncodeToString(sum[:8])
}

// verbatimBlocks hold text that is not parsed as tags.
var verbatimBlocks = map[string]bool{"raw": true, "verbatim": true, "comment": true}

func validateTagSpans(spans []tagSpan, maxDepth int) []StencilValidationIssue {
	issues := make([]StencilValidationIssue, 0)
	controlStack := make([]validationControlFrame, 0)

	appendIssue := func(code StencilIssueCode, message string, span tagSpan, kind TokenKind, expression string) {
		issues = append(issues, StencilValidationIssue{
			Severity: IssueSeverityError,
			Code:     code,
			Message:  message,
			Token: TemplateTokenRef{
				Raw:        span.Raw,
				Kind:       kind,
				Expression: expression,
				Location:   locationFromSpan(span),
			},
			Location: locationFromSpan(span),
		})
	}

	for _, span := range spans {
		if span.Malformed {
			appendIssue(IssueCodeSyntaxError, span.MalformedMessage, span, TokenKindControl, "")
			continue
		}

		tag := span.Tag
		if len(controlStack) > 0 {
			top := controlStack[len(controlStack)-1]
			if verbatimBlocks[top.span.Tag.Keyword] && tag.Keyword != top.closer {
				continue
			}
		}

		switch tag.Kind {
		case render.TagComment:
			continue
		case render.TagExpression:
			if tag.Body == "" {
				appendIssue(IssueCodeSyntaxError, "empty template tag", span, TokenKindVariable, "")
			}
			continue
		}

		keyword := tag.Keyword
		if keyword == "" {
			appendIssue(IssueCodeSyntaxError, "empty statement tag", span, TokenKindControl, "")
			continue
		}

		if closer, ok := render.BlockCloser(keyword); ok {
			controlStack = append(controlStack, validationControlFrame{span: span, closer: closer})
			if maxDepth > 0 && len(controlStack) == maxDepth+1 {
				appendIssue(IssueCodeNestingTooDeep,
					fmt.Sprintf("blocks are nested deeper than %d levels", maxDepth),
					span, TokenKindControl, tag.Body)
			}
			continue
		}

		if render.IsBlockTerminator(keyword) {
			match := -1
			for i := len(controlStack) - 1; i >= 0; i-- {
				if controlStack[i].closer == keyword {
					match = i
					break
				}
			}
			if match < 0 {
				appendIssue(IssueCodeControlBlockMismatch,
					fmt.Sprintf("%s has no matching opening block", span.Raw),
					span, TokenKindControl, "")
				continue
			}
			for _, open := range controlStack[match+1:] {
				appendIssue(IssueCodeControlBlockMismatch,
					fmt.Sprintf("missing {%% %s %%} for %s before %s", open.closer, open.span.Raw, span.Raw),
					open.span, TokenKindControl, open.span.Tag.Body)
			}
			controlStack = controlStack[:match]
			continue
		}

		if _, intermediate := render.AcceptsIntermediate("", keyword); intermediate {
			if len(controlStack) == 0 {
				appendIssue(IssueCodeControlBlockMismatch,
					fmt.Sprintf("%s is outside of any block", span.Raw),
					span, TokenKindControl, "")
				continue
			}
			top := controlStack[len(controlStack)-1]
			if accepted, _ := render.AcceptsIntermediate(top.span.Tag.Keyword, keyword); !accepted {
				appendIssue(IssueCodeControlBlockMismatch,
					fmt.Sprintf("%s is not allowed inside %s", span.Raw, top.span.Raw),
					span, TokenKindControl, "")
			}
		}
	}

	for _, opening := range controlStack {
		appendIssue(
			IssueCodeControlBlockMismatch,
			fmt.Sprintf("missing {%% %s %%} for opening block %q", opening.closer, opening.span.Raw),
			opening.span,
			TokenKindControl,
			opening.span.Tag.Body,
		)
	}

	return issues
}

// compileIssues asks the template engine to parse a structurally sound part.
func compileIssues(part scannedPart, config *Config) []StencilValidationIssue {
	eng, err := config.newEngine()
	if err != nil {
		return nil
	}
	err = eng.Compile(part.source.source)
	if err == nil {
		return nil
	}

	location := TemplateLocation{Part: part.name}
	raw := ""
	var tee *TemplateEvaluationError
	if errors.As(evaluationError(part.source, err), &tee) {
		location.Line, location.Column = tee.Line, tee.Column
		raw = tee.Tag
	}
	for _, span := range part.spans {
		if span.Region.Line == location.Line && span.Region.Column == location.Column {
			location.TokenOrdinal = span.TokenOrdinal
			location.AnchorID = span.AnchorID
			break
		}
	}

	return []StencilValidationIssue{{
		Severity: IssueSeverityError,
		Code:     IssueCodeCompileError,
		Message:  err.Error(),
		Token: TemplateTokenRef{
			Raw:      raw,
			Kind:     TokenKindControl,
			Location: location,
		},
		Location: location,
	}}
}

var (
	stringLiteral = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`)
	identPath     = regexp.MustCompile(`(\|\s*)?([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)(\s*\()?`)
)

// exprKeywords are operators and literals, never data references.
var exprKeywords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "is": true,
	"true": true, "false": true, "none": true, "nil": true,
	"True": true, "False": true, "None": true, "forloop": true, "loop": true,
	"reversed": true, "sorted": true, "as": true, "with": true, "only": true,
	"defined": true, "undefined": true,
}

func extractReferencesFromSpans(spans []tagSpan) []TemplateTokenRef {
	references := make([]TemplateTokenRef, 0)

	appendRef := func(span tagSpan, kind TokenKind, expression string) {
		references = append(references, TemplateTokenRef{
			Raw:        span.Raw,
			Kind:       kind,
			Expression: expression,
			Location:   locationFromSpan(span),
		})
	}

	// Loop and with variables bound by enclosing blocks are not data.
	bound := map[string]int{}
	var scopes [][]string

	for _, span := range spans {
		if span.Malformed {
			continue
		}
		tag := span.Tag
		expr := tag.Body

		switch tag.Kind {
		case render.TagComment:
			continue
		case render.TagStatement:
			if render.IsBlockTerminator(tag.Keyword) {
				if len(scopes) > 0 {
					for _, name := range scopes[len(scopes)-1] {
						bound[name]--
					}
					scopes = scopes[:len(scopes)-1]
				}
				continue
			}
			appendRef(span, TokenKindControl, tag.Body)
			expr = strings.TrimSpace(strings.TrimPrefix(tag.Body, tag.Keyword))

			var names []string
			if tag.Keyword == "for" {
				if in := strings.Index(expr, " in "); in >= 0 {
					for _, name := range strings.Split(expr[:in], ",") {
						names = append(names, strings.TrimSpace(name))
					}
					expr = expr[in+4:]
				}
			}
			if _, opens := render.BlockCloser(tag.Keyword); opens {
				for _, name := range names {
					bound[name]++
				}
				scopes = append(scopes, names)
			}
		}

		collectExpressionReferences(expr, bound, func(kind TokenKind, expression string) {
			appendRef(span, kind, expression)
		})
	}

	return references
}

// collectExpressionReferences scans an expression for dotted names. A name
// followed by "(" is a function, one preceded by "|" a filter.
func collectExpressionReferences(expr string, bound map[string]int, emit func(kind TokenKind, expression string)) {
	expr = stringLiteral.ReplaceAllString(expr, `""`)
	for _, m := range identPath.FindAllStringSubmatchIndex(expr, -1) {
		start := m[4]
		if start > 0 {
			prev := expr[start-1]
			if prev == '.' || prev == ':' || (prev >= '0' && prev <= '9') {
				continue
			}
		}
		name := expr[m[4]:m[5]]
		root := strings.SplitN(name, ".", 2)[0]
		switch {
		case m[2] >= 0:
			emit(TokenKindFilter, name)
		case m[6] >= 0:
			emit(TokenKindFunction, name)
		case exprKeywords[root] || bound[root] > 0:
		default:
			emit(TokenKindVariable, name)
		}
	}
}

func locationFromSpan(span tagSpan) TemplateLocation {
	return TemplateLocation{
		Part:         span.Part,
		Line:         span.Region.Line,
		Column:       span.Region.Column,
		TokenOrdinal: span.TokenOrdinal,
		AnchorID:     span.AnchorID,
	}
}

func newValidationMetadata(odtBytes []byte, templateRevisionID string) StencilMetadata {
	sum := sha256.Sum256(odtBytes)
	return StencilMetadata{
		DocumentHash:       "sha256:" + hex.EncodeToString(sum[:]),
		TemplateRevisionID: templateRevisionID,
		ParserVersion:      validationParserVersion,
	}
}

func sortValidationIssues(issues []StencilValidationIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		left := issues[i]
		right := issues[j]

		if left.Location.TokenOrdinal != right.Location.TokenOrdinal {
			return left.Location.TokenOrdinal < right.Location.TokenOrdinal
		}
		if left.Location.Part != right.Location.Part {
			return left.Location.Part < right.Location.Part
		}
		if left.Code != right.Code {
			return left.Code < right.Code
		}
		return left.Message < right.Message
	})
}

func sortTemplateReferences(references []TemplateTokenRef) {
	sort.SliceStable(references, func(i, j int) bool {
		left := references[i]
		right := references[j]

		if left.Location.TokenOrdinal != right.Location.TokenOrdinal {
			return left.Location.TokenOrdinal < right.Location.TokenOrdinal
		}
		return false
	})
}
