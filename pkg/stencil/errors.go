package stencil

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/render"
)

// MalformedTagError reports a tag opened but never closed inside its
// paragraph. Rendering stops and nothing is written.
type MalformedTagError = render.MalformedTagError

// EncodingMismatchError is the non-fatal warning raised when a line break or
// tab sits in an element that may not hold markup for it.
type EncodingMismatchError = render.EncodingMismatchError

// TemplateEvaluationError reports a failure of the template engine, or
// rendered output that is no longer well-formed XML.
type TemplateEvaluationError struct {
	// Part is the package entry being rendered, such as content.xml.
	Part string
	// Tag is the source of the offending tag, when it could be located.
	Tag string
	// Line and Column locate the error in the template source, 1-based.
	Line   int
	Column int
	// Excerpt is a piece of rendered output around an XML error.
	Excerpt string
	Cause   error
}

func (e *TemplateEvaluationError) Error() string {
	var sb strings.Builder
	sb.WriteString("template evaluation failed")
	if e.Part != "" {
		sb.WriteString(" in " + e.Part)
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, " at line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&sb, ", column %d", e.Column)
		}
	}
	if e.Tag != "" {
		fmt.Fprintf(&sb, " in tag %q", e.Tag)
	}
	if e.Cause != nil {
		sb.WriteString(": " + e.Cause.Error())
	}
	if e.Excerpt != "" {
		fmt.Fprintf(&sb, " (near %q)", e.Excerpt)
	}
	return sb.String()
}

func (e *TemplateEvaluationError) Unwrap() error {
	return e.Cause
}

// FunctionError represents an error in a template function call
type FunctionError struct {
	Function string
	Args     []interface{}
	Message  string
	Cause    error
}

func (e *FunctionError) Error() string {
	argsStr := make([]string, len(e.Args))
	for i, arg := range e.Args {
		argsStr[i] = fmt.Sprintf("%v", arg)
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	return fmt.Sprintf("function error in '%s(%s)': %s", e.Function, strings.Join(argsStr, ", "), msg)
}

func (e *FunctionError) Unwrap() error {
	return e.Cause
}

// NewFunctionError creates a new function error
func NewFunctionError(function string, args []interface{}, message string) error {
	return &FunctionError{
		Function: function,
		Args:     args,
		Message:  message,
	}
}

// DocumentError represents an error during document operations
type DocumentError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *DocumentError) Error() string {
	if e.Path != "" && e.Cause != nil {
		return fmt.Sprintf("document error during %s of '%s': %v", e.Operation, e.Path, e.Cause)
	} else if e.Path != "" {
		return fmt.Sprintf("document error during %s of '%s'", e.Operation, e.Path)
	} else if e.Cause != nil {
		return fmt.Sprintf("document error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("document error during %s", e.Operation)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// NewDocumentError creates a new document error
func NewDocumentError(operation, path string, cause error) error {
	return &DocumentError{
		Operation: operation,
		Path:      path,
		Cause:     cause,
	}
}

// ValidationIssue is a single problem found in a template.
type ValidationIssue struct {
	Part    string
	Line    int
	Column  int
	Tag     string
	Message string
}

func (i ValidationIssue) String() string {
	var sb strings.Builder
	sb.WriteString(i.Part)
	if i.Line > 0 {
		fmt.Fprintf(&sb, ":%d:%d", i.Line, i.Column)
	}
	if i.Tag != "" {
		sb.WriteString(" " + i.Tag)
	}
	sb.WriteString(": " + i.Message)
	return sb.String()
}

// ValidationError represents multiple validation issues
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation error"
	}

	if len(e.Issues) == 1 {
		return "validation error: " + e.Issues[0].String()
	}

	parts := []string{fmt.Sprintf("%d validation issues:", len(e.Issues))}
	for _, issue := range e.Issues {
		parts = append(parts, "  "+issue.String())
	}
	return strings.Join(parts, "\n")
}

// NewValidationError returns a *ValidationError holding issues, or nil when
// there are none.
func NewValidationError(issues []ValidationIssue) error {
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

// MultiError collects multiple errors
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector
func NewMultiError() *MultiError {
	return &MultiError{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collection (ignores nil errors)
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Err returns the multi-error or nil if empty
func (m *MultiError) Err() error {
	if len(m.errors) == 0 {
		return nil
	}
	if len(m.errors) == 1 {
		return m.errors[0]
	}
	return m
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.errors
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}

	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}

	parts := []string{fmt.Sprintf("%d errors occurred:", len(m.errors))}
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

// ContextError adds context to an existing error
type ContextError struct {
	Operation string
	Context   map[string]interface{}
	Cause     error
}

func (e *ContextError) Error() string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	contextParts := make([]string, 0, len(keys))
	for _, k := range keys {
		contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
	}

	if len(contextParts) > 0 {
		return fmt.Sprintf("%s [%s]: %v", e.Operation, strings.Join(contextParts, ", "), e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

// WithContext wraps an error with additional context
func WithContext(err error, operation string, context map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ContextError{
		Operation: operation,
		Context:   context,
		Cause:     err,
	}
}

// RecoverError converts a panic recovery value to an error
func RecoverError(r interface{}) error {
	switch v := r.(type) {
	case error:
		return fmt.Errorf("panic recovered: %w", v)
	case string:
		return fmt.Errorf("panic recovered: %s", v)
	default:
		return fmt.Errorf("panic recovered: %v", v)
	}
}

// IsMalformedTagError reports whether err wraps a *MalformedTagError.
func IsMalformedTagError(err error) bool {
	var target *MalformedTagError
	return errors.As(err, &target)
}

// IsTemplateEvaluationError reports whether err wraps a
// *TemplateEvaluationError.
func IsTemplateEvaluationError(err error) bool {
	var target *TemplateEvaluationError
	return errors.As(err, &target)
}

// IsFunctionError checks if an error is a function error
func IsFunctionError(err error) bool {
	var target *FunctionError
	return errors.As(err, &target)
}

// IsDocumentError checks if an error is a document error
func IsDocumentError(err error) bool {
	var target *DocumentError
	return errors.As(err, &target)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
