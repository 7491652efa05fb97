package server

import (
	"errors"
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/procss/compiler"
)

const themeDoc = `@accent: #0af;
@mixin pill { border-radius: 9px; }
button {
  color: @accent;
  @include pill;
}
`

func compilerPos(offset, line int) compiler.Position {
	return compiler.Position{Offset: offset, Line: line}
}

func pos(line, char int) protocol.Position {
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(char)}
}

func hoverText(t *testing.T, h *protocol.Hover) string {
	t.Helper()
	if h == nil {
		t.Fatal("hover = nil")
	}
	mc, ok := h.Contents.(protocol.MarkupContent)
	if !ok {
		t.Fatalf("hover contents = %T", h.Contents)
	}
	return mc.Value
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestDiagnostics_Valid(t *testing.T) {
	d := Analyze(themeDoc, nil)
	diags := d.Diagnostics()
	if diags == nil || len(diags) != 0 {
		t.Errorf("Diagnostics = %v, want empty slice", diags)
	}
}

func TestDiagnostics_SyntaxError(t *testing.T) {
	d := Analyze("a{}\nb{", nil)
	diags := d.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	if diags[0].Range.Start.Line != 1 {
		t.Errorf("diagnostic line = %d, want 1", diags[0].Range.Start.Line)
	}
	if strings.Contains(diags[0].Message, "\n") {
		t.Errorf("message %q spans lines", diags[0].Message)
	}
	if *diags[0].Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v", *diags[0].Severity)
	}
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

func labels(items []protocol.CompletionItem) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Label)
	}
	return out
}

func TestComplete_MixinNamesKeepLastGoodTree(t *testing.T) {
	ws := NewWorkspace()
	base := "@mixin pill { a: b; }\n@mixin pad { c: d; }\n@gap: 1px;\n"
	ws.Update("file:///a.scss", base+"div { @include pill; }")
	d := ws.Update("file:///a.scss", base+"div { @include p")

	if d.Err == nil {
		t.Fatal("incomplete document parsed")
	}
	got := strings.Join(labels(d.Complete(pos(3, 16))), ",")
	if got != "pad,pill" {
		t.Errorf("completions = %q, want pad,pill", got)
	}
}

func TestComplete_Variables(t *testing.T) {
	d := Analyze("@gap: 1px;\n@grid: 2;\ndiv { margin: @g }", nil)
	got := strings.Join(labels(d.Complete(pos(2, 16))), ",")
	if got != "gap,grid" {
		t.Errorf("completions = %q, want gap,grid", got)
	}
}

func TestComplete_AtKeywords(t *testing.T) {
	d := Analyze("@m", nil)
	got := strings.Join(labels(d.Complete(pos(0, 2))), ",")
	if got != "media,mixin" {
		t.Errorf("completions = %q, want media,mixin", got)
	}
}

func TestComplete_NothingOutsideAtContext(t *testing.T) {
	d := Analyze(themeDoc, nil)
	if items := d.Complete(pos(3, 4)); len(items) != 0 {
		t.Errorf("completions = %v, want none", labels(items))
	}
	if items := d.Complete(pos(40, 0)); items != nil {
		t.Errorf("completions past the end = %v", labels(items))
	}
}

// ---------------------------------------------------------------------------
// Hover
// ---------------------------------------------------------------------------

func TestHover_Variable(t *testing.T) {
	d := Analyze(themeDoc, nil)
	if got := hoverText(t, d.Hover(pos(3, 11))); got != "**@accent**: `#0af`" {
		t.Errorf("hover = %q", got)
	}
}

func TestHover_Include(t *testing.T) {
	d := Analyze(themeDoc, nil)
	got := hoverText(t, d.Hover(pos(4, 12)))
	if !strings.Contains(got, "**@mixin pill**") || !strings.Contains(got, "{border-radius:9px;}") {
		t.Errorf("hover = %q", got)
	}
}

func TestHover_RulesetPreview(t *testing.T) {
	d := Analyze(themeDoc, nil)
	got := hoverText(t, d.Hover(pos(2, 1)))
	if !strings.Contains(got, "button{color:#0af;border-radius:9px;}") {
		t.Errorf("hover = %q", got)
	}
}

func TestHover_DeclarationHasNoPreview(t *testing.T) {
	d := Analyze(themeDoc, nil)
	if h := d.Hover(pos(1, 3)); h != nil {
		t.Errorf("hover over @mixin = %v, want nil", h)
	}
}

func TestHover_OutsideRulesets(t *testing.T) {
	d := Analyze("a{b:c}\n\n", nil)
	if h := d.Hover(pos(1, 0)); h != nil {
		t.Errorf("hover = %v, want nil", h)
	}
}

// ---------------------------------------------------------------------------
// Definition
// ---------------------------------------------------------------------------

func TestDefinition(t *testing.T) {
	d := Analyze(themeDoc, nil)

	rng, ok := d.Definition(pos(3, 11))
	if !ok || rng.Start.Line != 0 || rng.Start.Character != 0 {
		t.Errorf("variable definition = %v, %v", rng, ok)
	}
	rng, ok = d.Definition(pos(4, 12))
	if !ok || rng.Start.Line != 1 || rng.Start.Character != 0 {
		t.Errorf("mixin definition = %v, %v", rng, ok)
	}
	if _, ok := d.Definition(pos(3, 3)); ok {
		t.Error("definition found for a property name")
	}
}

// ---------------------------------------------------------------------------
// Positions
// ---------------------------------------------------------------------------

// The emoji is four bytes but two UTF-16 code units, so byte and editor
// columns differ by two after it.
const wideDoc = "@x: 1;\na{content:\"\U0001F600\";color:@x}"

func TestPositionsCountUTF16(t *testing.T) {
	d := Analyze(wideDoc, nil)

	if got := hoverText(t, d.Hover(pos(1, 22))); got != "**@x**: `1`" {
		t.Errorf("hover at the x of @x = %q", got)
	}

	// Byte offset of "color" on line 1: line start 7, plus 17.
	off, ok := d.offset(pos(1, 15))
	if !ok || off != 7+17 {
		t.Errorf("offset(1:15) = %d, %v, want %d", off, ok, 7+17)
	}
	p := d.toProtocol(compilerPos(7+17, 2))
	if p.Line != 1 || p.Character != 15 {
		t.Errorf("toProtocol = %d:%d, want 1:15", p.Line, p.Character)
	}

	// A character past the line end clamps.
	if off, _ := d.offset(pos(1, 99)); off != len(wideDoc) {
		t.Errorf("offset past line end = %d, want %d", off, len(wideDoc))
	}
}

func TestDiagnosticsCountUTF16(t *testing.T) {
	d := Analyze("a{content:\"\U0001F600\";}}", nil)
	diags := d.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	// The stray brace sits at byte 18, UTF-16 column 16.
	if c := diags[0].Range.Start.Character; c != 16 {
		t.Errorf("diagnostic column = %d, want 16", c)
	}
}

// ---------------------------------------------------------------------------
// Workspace and worker
// ---------------------------------------------------------------------------

func TestWorkspace(t *testing.T) {
	ws := NewWorkspace()
	if ws.Get("u") != nil {
		t.Fatal("unknown document is not nil")
	}
	ws.Update("u", "a{b:c}")
	if d := ws.Get("u"); d == nil || len(d.Tree) != 1 {
		t.Errorf("Get = %+v", d)
	}
	ws.Close("u")
	if ws.Get("u") != nil {
		t.Error("closed document still present")
	}
}

func TestWorker(t *testing.T) {
	w := NewWorker(NewWorkspace())

	v, err := w.Do(func(ws *Workspace) any {
		return len(ws.Update("u", "a{b:c}").Tree)
	})
	if err != nil || v.(int) != 1 {
		t.Errorf("Do = %v, %v", v, err)
	}

	_, err = w.Do(func(ws *Workspace) any { panic("boom") })
	if err == nil || err.Error() != "boom" {
		t.Errorf("panic err = %v, want boom", err)
	}

	// The worker survives a panic.
	v, err = w.Do(func(ws *Workspace) any { return ws.Get("u") != nil })
	if err != nil || v != true {
		t.Errorf("Do after panic = %v, %v", v, err)
	}

	w.Stop()
	w.Stop()
	if _, err := w.Do(func(*Workspace) any { return nil }); !errors.Is(err, errStopped) {
		t.Errorf("Do after Stop err = %v", err)
	}
}

func TestBoolPtr(t *testing.T) {
	if p := boolPtr(true); p == nil || !*p {
		t.Error("boolPtr(true) should point to true")
	}
}
