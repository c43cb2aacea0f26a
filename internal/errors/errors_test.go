package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
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
			name:    "runtime error",
			code:    "E101",
			wantMsg: "Set on readonly target",
			wantCat: CategoryRuntime,
		},
		{
			name:    "config error",
			code:    "E201",
			wantMsg: "Invalid config file",
			wantCat: CategoryConfig,
		},
		{
			name:    "scenario error",
			code:    "E303",
			wantMsg: "Scenario expectation failed",
			wantCat: CategoryScenario,
		},
		{
			name:    "unknown error code",
			code:    "E999",
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
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryScenario, "unknown effect %q", "logger")
	if err.Message != `unknown effect "logger"` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Error() != `unknown effect "logger"` {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestError_ErrorIncludesCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := New("E302").Wrap(cause)

	if got := err.Error(); got != "E302: Scenario step failed: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should see the wrapped cause")
	}
}

func TestError_WithLocation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counter.yaml")
	content := "name: counter\nstate:\n  count: 1\nsteps:\n  - bogus: 1\n  - set: {count: 2}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New("E301").WithLocation(path, 5, 5)
	if err.Location == nil || err.Location.Line != 5 {
		t.Fatalf("Location = %+v", err.Location)
	}
	if len(err.Context) == 0 {
		t.Fatal("expected context lines")
	}

	found := false
	for _, line := range err.Context {
		if strings.Contains(line, "bogus") {
			found = true
		}
	}
	if !found {
		t.Errorf("context should include the target line, got %v", err.Context)
	}
}

func TestError_WithLocationFromError(t *testing.T) {
	err := New("E301").WithLocationFromError("s.yaml", stderrors.New("yaml: line 7: did not find expected key"))
	if err.Location == nil || err.Location.Line != 7 {
		t.Errorf("Location = %+v, want line 7", err.Location)
	}

	err = New("E201").WithLocationFromError("reactive.json", stderrors.New("unexpected end of JSON input"))
	if err.Location == nil || err.Location.File != "reactive.json" || err.Location.Line != 0 {
		t.Errorf("Location = %+v, want file only", err.Location)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E302") != nil {
		t.Error("FromError(nil) should be nil")
	}

	coded := New("E101")
	if FromError(coded, "E302") != coded {
		t.Error("FromError should return coded errors unchanged")
	}

	plain := stderrors.New("plain")
	wrapped := FromError(plain, "E302")
	if wrapped.Code != "E302" || wrapped.Wrapped != plain {
		t.Errorf("FromError = %+v", wrapped)
	}
}

func TestLocation_String(t *testing.T) {
	var nilLoc *Location
	if nilLoc.String() != "" {
		t.Error("nil location should format as empty")
	}
	if got := (&Location{File: "a.yaml", Line: 3}).String(); got != "a.yaml:3" {
		t.Errorf("String() = %q", got)
	}
	if got := (&Location{File: "a.yaml", Line: 3, Column: 2}).String(); got != "a.yaml:3:2" {
		t.Errorf("String() = %q", got)
	}
}

func TestFormat(t *testing.T) {
	SetColor(false)
	defer SetColor(true)

	err := New("E102").
		WithSuggestion("Use NewWritableComputed").
		Wrap(stderrors.New("write rejected"))
	formatted := err.Format()

	for _, want := range []string{"error[E102]", "Write to getter-only computed", "cause: write rejected", "hint: Use NewWritableComputed"} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format() missing %q:\n%s", want, formatted)
		}
	}
}

func TestFormat_Snippet(t *testing.T) {
	SetColor(false)
	defer SetColor(true)

	path := filepath.Join(t.TempDir(), "s.yaml")
	if err := os.WriteFile(path, []byte("name: s\nstate: {a: 1}\nsteps: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	formatted := New("E301").WithLocation(path, 1, 3).Format()

	for _, want := range []string{"--> " + path + ":1:3", ">    1 | name: s", "     2 | state: {a: 1}", "  ^"} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format() missing %q:\n%s", want, formatted)
		}
	}
}

func TestFprint(t *testing.T) {
	SetColor(false)
	defer SetColor(true)

	var b strings.Builder
	Fprint(&b, fmt.Errorf("loading: %w", New("E301")))
	if !strings.Contains(b.String(), "error[E301] Invalid scenario file") {
		t.Errorf("wrapped coded error not formatted: %q", b.String())
	}

	b.Reset()
	Fprint(&b, stderrors.New("plain"))
	if got := b.String(); got != "\nerror plain\n\n" {
		t.Errorf("Fprint(plain) = %q", got)
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E303")
	err.Location = &Location{File: "counter.yaml", Line: 10, Column: 5}

	want := "counter.yaml:10:5: E303: Scenario expectation failed"
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E101").Wrap(stderrors.New("key name"))
	json := err.FormatJSON()

	for _, want := range []string{`"code":"E101"`, `"category":"runtime"`, `"message":"Set on readonly target"`, `"cause":"key name"`} {
		if !strings.Contains(json, want) {
			t.Errorf("FormatJSON() missing %s: %s", want, json)
		}
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("GetAllCodes() should return codes")
	}
	if codes[0] != "E101" {
		t.Errorf("codes should be sorted, first = %q", codes[0])
	}
}

func TestRegister(t *testing.T) {
	Register("E999", ErrorTemplate{
		Category: CategoryRuntime,
		Message:  "Custom test error",
	})
	defer delete(registry, "E999")

	if err := New("E999"); err.Message != "Custom test error" {
		t.Errorf("Message = %q, want %q", err.Message, "Custom test error")
	}
}

func TestWrapText(t *testing.T) {
	if got := wrapText("short text", 100); len(got) != 1 || got[0] != "short text" {
		t.Errorf("wrapText short text: got %v", got)
	}
	if got := wrapText("this is a longer text that should be wrapped", 20); len(got) != 3 {
		t.Errorf("wrapText long text: expected 3 lines, got %d: %v", len(got), got)
	}
	if got := wrapText("", 10); len(got) != 0 {
		t.Errorf("wrapText empty: expected empty, got %v", got)
	}
	if got := wrapText("tiny averyveryverylongword", 8); len(got) != 2 || got[1] != "averyveryverylongword" {
		t.Errorf("wrapText long word: got %v", got)
	}
}

func TestSetColor(t *testing.T) {
	SetColor(true)
	if !strings.Contains(paint(ansiRed, "test"), "\033[31m") {
		t.Error("paint should add ANSI codes when colors are on")
	}

	SetColor(false)
	if got := paint(ansiRed, "test"); got != "test" {
		t.Errorf("paint with colors off = %q", got)
	}
	SetColor(true)
}
