package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/waveform80/structa/internal/analyzer"
	"github.com/waveform80/structa/internal/pattern"
)

func analyzed(t *testing.T, value any) pattern.Pattern {
	t.Helper()
	a, err := analyzer.New(analyzer.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	p, err := a.Analyze(value)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRenderText(t *testing.T) {
	data := make([]any, 100)
	for n := range data {
		data[n] = n
	}
	out, err := Render(analyzed(t, data), Text)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "int range=0..99") {
		t.Fatalf("unexpected text output: %q", out)
	}
}

func TestRenderJSON(t *testing.T) {
	data := []any{
		map[string]any{"name": "alice", "age": 30},
		map[string]any{"name": "bob", "age": 31},
	}
	out, err := Render(analyzed(t, data), JSON)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc["type"] != "list" {
		t.Fatalf("top-level type should be list, got %v", doc["type"])
	}
}

func TestRenderYAML(t *testing.T) {
	out, err := Render(analyzed(t, []any{1, 2, 3, "x"}), YAML)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "type: list") {
		t.Fatalf("unexpected yaml output: %q", out)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	if _, err := Render(&pattern.Value{}, Format("xml")); err == nil {
		t.Fatal("unknown formats must be rejected")
	}
}

func TestDocumentStrRepr(t *testing.T) {
	data := make([]any, 0, 60)
	for n := 10; n < 70; n++ {
		data = append(data, "4"+string(rune('0'+n%10))+string(rune('0'+n/10%10)))
	}
	p := analyzed(t, data)
	doc := Document(p)
	content := doc["content"].([]any)
	inner := content[0].(map[string]any)
	if inner["type"] != "str_repr" {
		t.Fatalf("expected a string representation node, got %v", inner["type"])
	}
	if inner["format"] != "d" {
		t.Fatalf("expected decimal format, got %v", inner["format"])
	}
}
