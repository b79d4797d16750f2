package stencil

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/render"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "FunctionError",
			err:     &FunctionError{Function: "pad", Args: []interface{}{"test", 123}, Message: "invalid argument type"},
			wantMsg: "function error in 'pad(test, 123)': invalid argument type",
		},
		{
			name:    "FunctionError with cause only",
			err:     &FunctionError{Function: "image", Cause: errors.New("no such file")},
			wantMsg: "function error in 'image()': no such file",
		},
		{
			name:    "DocumentError",
			err:     &DocumentError{Operation: "save", Path: "output.odt", Cause: errors.New("permission denied")},
			wantMsg: "document error during save of 'output.odt': permission denied",
		},
		{
			name: "TemplateEvaluationError",
			err: &TemplateEvaluationError{
				Part: "content.xml", Tag: "{% bogus %}", Line: 3, Column: 7,
				Cause: errors.New("unknown tag"),
			},
			wantMsg: `template evaluation failed in content.xml at line 3, column 7 in tag "{% bogus %}": unknown tag`,
		},
		{
			name: "TemplateEvaluationError with excerpt",
			err: &TemplateEvaluationError{
				Part: "styles.xml", Excerpt: "<text:p>a < b", Cause: errors.New("XML syntax error"),
			},
			wantMsg: `template evaluation failed in styles.xml: XML syntax error (near "<text:p>a < b")`,
		},
		{
			name: "MalformedTagError",
			err: &MalformedTagError{
				Part: "content.xml", Path: "/office:document-content/office:body/office:text/text:p",
				Offset: 4, Text: "{{ name",
			},
			wantMsg: `malformed tag at content.xml:/office:document-content/office:body/office:text/text:p, offset 4: "{{ name" is never closed`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	baseErr := errors.New("base error")

	wrapped := []error{
		&TemplateEvaluationError{Cause: baseErr},
		&FunctionError{Function: "f", Cause: baseErr},
		&DocumentError{Operation: "open", Cause: baseErr},
		WithContext(baseErr, "rendering", nil),
	}
	for _, err := range wrapped {
		if !errors.Is(err, baseErr) {
			t.Errorf("errors.Is(%T, base) = false, want true", err)
		}
	}
}

func TestErrorTypeChecking(t *testing.T) {
	malformed := fmt.Errorf("prepare: %w", &render.MalformedTagError{Text: "{{"})
	evaluation := WithContext(&TemplateEvaluationError{Part: "content.xml"}, "render", nil)

	if !IsMalformedTagError(malformed) {
		t.Error("IsMalformedTagError should see through fmt.Errorf wrapping")
	}
	if IsMalformedTagError(evaluation) {
		t.Error("IsMalformedTagError should be false for an evaluation error")
	}
	if !IsTemplateEvaluationError(evaluation) {
		t.Error("IsTemplateEvaluationError should see through ContextError")
	}
	if !IsFunctionError(&TemplateEvaluationError{Cause: &FunctionError{Function: "pad"}}) {
		t.Error("IsFunctionError should find a function error behind an evaluation error")
	}
	if !IsDocumentError(NewDocumentError("open", "a.odt", nil)) {
		t.Error("IsDocumentError should be true for *DocumentError")
	}
	if !IsValidationError(&ValidationError{}) {
		t.Error("IsValidationError should be true for *ValidationError")
	}
}

func TestErrorRecovery(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		recovered interface{}
		want      string
	}{
		{"test panic", "panic recovered: test panic"},
		{cause, "panic recovered: boom"},
		{42, "panic recovered: 42"},
	}
	for _, tt := range tests {
		err := RecoverError(tt.recovered)
		if err.Error() != tt.want {
			t.Errorf("RecoverError(%v) = %q, want %q", tt.recovered, err, tt.want)
		}
	}
	if !errors.Is(RecoverError(cause), cause) {
		t.Error("RecoverError should wrap error values")
	}
}

func TestErrorContext(t *testing.T) {
	baseErr := errors.New("file not found")

	contextErr := WithContext(baseErr, "preparing template", map[string]interface{}{
		"size": 1024,
		"file": "template.odt",
	})

	want := "preparing template [file=template.odt, size=1024]: file not found"
	if contextErr.Error() != want {
		t.Errorf("Error() = %q, want %q", contextErr.Error(), want)
	}
	if WithContext(nil, "noop", nil) != nil {
		t.Error("WithContext(nil) should return nil")
	}
}

func TestMultiError(t *testing.T) {
	first := errors.New("error 1")
	multi := NewMultiError()
	multi.Add(first)
	multi.Add(errors.New("error 2"))
	multi.Add(nil)
	multi.Add(errors.New("error 3"))

	if multi.Len() != 3 {
		t.Errorf("MultiError.Len() = %d, want 3", multi.Len())
	}
	err := multi.Err()
	if err == nil {
		t.Fatal("MultiError.Err() should return non-nil for non-empty errors")
	}
	if !strings.HasPrefix(err.Error(), "3 errors occurred:") {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, first) {
		t.Error("errors.Is should find a collected error")
	}

	if NewMultiError().Err() != nil {
		t.Error("MultiError.Err() should return nil for empty errors")
	}
}

func TestValidationError(t *testing.T) {
	validationErr := &ValidationError{
		Issues: []ValidationIssue{
			{Part: "content.xml", Line: 2, Column: 5, Tag: "{% endfor %}", Message: "unexpected endfor"},
			{Part: "styles.xml", Message: "unclosed if"},
		},
	}

	errMsg := validationErr.Error()
	if !strings.Contains(errMsg, "2 validation issues") {
		t.Errorf("ValidationError should mention issue count, got: %s", errMsg)
	}
	if !strings.Contains(errMsg, "content.xml:2:5 {% endfor %}: unexpected endfor") {
		t.Errorf("ValidationError should list located issues, got: %s", errMsg)
	}

	single := &ValidationError{Issues: validationErr.Issues[1:]}
	if single.Error() != "validation error: styles.xml: unclosed if" {
		t.Errorf("single issue message = %q", single.Error())
	}
}

func TestNewValidationError(t *testing.T) {
	if err := NewValidationError(nil); err != nil {
		t.Errorf("NewValidationError(nil) = %v, want nil", err)
	}
	err := NewValidationError([]ValidationIssue{{Part: "content.xml", Message: "unclosed for"}})
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Issues) != 1 {
		t.Fatalf("NewValidationError() = %#v, want one issue", err)
	}
}
