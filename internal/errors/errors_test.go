package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "selector error",
			code:    "L001",
			wantMsg: "Selector did not compile",
			wantCat: CategorySelector,
		},
		{
			name:    "teardown error",
			code:    "L003",
			wantMsg: "Teardown failed",
			wantCat: CategoryDispatch,
		},
		{
			name:    "source error",
			code:    "L011",
			wantMsg: "Unsupported document source",
			wantCat: CategorySource,
		},
		{
			name:    "unknown error code",
			code:    "L999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	err := New("L010").Wrap(io.ErrUnexpectedEOF)
	want := "L010: Document fetch failed: unexpected EOF"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestUnwrapAndIs(t *testing.T) {
	err := fmt.Errorf("loading: %w", New("L012").Wrap(io.EOF))

	if !stderrors.Is(err, io.EOF) {
		t.Error("expected errors.Is to find wrapped io.EOF")
	}
	if !stderrors.Is(err, New("L012")) {
		t.Error("expected errors.Is to match by code")
	}
	if stderrors.Is(err, New("L010")) {
		t.Error("different codes must not match")
	}
	if got := Code(err); got != "L012" {
		t.Errorf("Code() = %q, want L012", got)
	}
	if got := Code(io.EOF); got != "" {
		t.Errorf("Code(io.EOF) = %q, want empty", got)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "L010") != nil {
		t.Fatal("FromError(nil) should be nil")
	}

	orig := New("L031")
	if got := FromError(orig, "L010"); got != orig {
		t.Error("FromError should return an existing *Error unchanged")
	}

	wrapped := FromError(io.EOF, "L010")
	if wrapped.Code != "L010" || wrapped.Wrapped != io.EOF {
		t.Errorf("FromError = %+v", wrapped)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("L001").WithDetail(`expected identifier, found "]"`).Wrap(io.EOF)
	out := err.Format()

	for _, want := range []string{"ERROR L001: Selector did not compile", `expected identifier, found "]"`, "Cause: EOF", "Hint:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}

	if got := New("L030").FormatCompact(); got != "L030: Unknown set" {
		t.Errorf("FormatCompact() = %q", got)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("aaa bbb ccc ddd", 7)
	if len(lines) != 2 || lines[0] != "aaa bbb" || lines[1] != "ccc ddd" {
		t.Errorf("wrapText = %q", lines)
	}
	if wrapText("", 10) != nil {
		t.Error("empty text should produce no lines")
	}
}
