// Package render serializes an inferred pattern tree for humans (the
// bracketed text form) and for machines (a JSON or YAML document).
package render

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/waveform80/structa/internal/pattern"
)

// Format selects an output serialization.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	YAML Format = "yaml"
)

// Render serializes p in the given format.
func Render(p pattern.Pattern, format Format) (string, error) {
	switch format {
	case Text, "":
		return p.String() + "\n", nil
	case JSON:
		data, err := json.MarshalIndent(Document(p), "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	case YAML:
		data, err := yaml.Marshal(Document(p))
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("render: unknown output format %q", format)
	}
}

// Document converts a pattern tree into a plain map/slice document
// suitable for JSON or YAML serialization.
func Document(p pattern.Pattern) map[string]any {
	switch node := p.(type) {
	case *pattern.Empty:
		return map[string]any{"type": "empty"}
	case *pattern.Value:
		return map[string]any{"type": "value"}
	case *pattern.Bool:
		return map[string]any{"type": "bool", "values": statsDoc(node.Values)}
	case *pattern.Int:
		return map[string]any{"type": "int", "values": statsDoc(node.Values)}
	case *pattern.Float:
		return map[string]any{"type": "float", "values": statsDoc(node.Values)}
	case *pattern.DateTime:
		return map[string]any{"type": "datetime", "values": statsDoc(node.Values)}
	case *pattern.URL:
		return map[string]any{
			"type":    "url",
			"lengths": statsDoc(node.Lengths),
			"unique":  node.Unique(),
		}
	case *pattern.Str:
		doc := map[string]any{
			"type":    "str",
			"lengths": statsDoc(node.Lengths),
			"unique":  node.Unique(),
		}
		if node.Pattern != nil {
			var b strings.Builder
			for _, c := range node.Pattern {
				b.WriteString(c.String())
			}
			doc["pattern"] = b.String()
		}
		return doc
	case *pattern.StrRepr:
		return map[string]any{
			"type":    "str_repr",
			"format":  node.Format,
			"content": Document(node.Inner),
		}
	case *pattern.NumRepr:
		return map[string]any{
			"type":    "num_repr",
			"number":  node.Kind.String(),
			"content": Document(node.Inner),
		}
	case *pattern.Field:
		return map[string]any{
			"type":     "field",
			"value":    scalarDoc(node.Value),
			"optional": node.Optional,
		}
	case *pattern.Fields:
		members := make([]any, 0, node.Len())
		for _, m := range node.Members {
			members = append(members, Document(m))
		}
		return map[string]any{"type": "fields", "members": members}
	case *pattern.List:
		doc := map[string]any{"type": "list", "lengths": statsDoc(node.Lengths)}
		if node.Content != nil {
			content := make([]any, len(node.Content))
			for i, item := range node.Content {
				content[i] = Document(item)
			}
			doc["content"] = content
		}
		return doc
	case *pattern.Dict:
		doc := map[string]any{"type": "dict", "lengths": statsDoc(node.Lengths)}
		if node.Content != nil {
			content := make([]any, len(node.Content))
			for i, f := range node.Content {
				content[i] = map[string]any{
					"key":   Document(f.Key),
					"value": Document(f.Value),
				}
			}
			doc["content"] = content
		}
		return doc
	case *pattern.Tuple:
		doc := map[string]any{"type": "tuple", "lengths": statsDoc(node.Lengths)}
		if node.Content != nil {
			content := make([]any, len(node.Content))
			for i, f := range node.Content {
				content[i] = map[string]any{
					"index": Document(f.Index),
					"value": Document(f.Value),
				}
			}
			doc["content"] = content
		}
		return doc
	default:
		return map[string]any{"type": fmt.Sprintf("%T", p)}
	}
}

func statsDoc(s pattern.Stats) map[string]any {
	return map[string]any{
		"card":   s.Card,
		"min":    scalarDoc(s.Min),
		"q1":     scalarDoc(s.Q1),
		"median": scalarDoc(s.Q2),
		"q3":     scalarDoc(s.Q3),
		"max":    scalarDoc(s.Max),
		"unique": s.Unique,
	}
}

func scalarDoc(v any) any {
	switch n := v.(type) {
	case time.Time:
		return n.Format("2006-01-02 15:04:05")
	case nil, bool, int64, float64, string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
