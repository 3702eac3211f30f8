package predictor

import (
	"fmt"
	"os"
	"strings"

	"github.com/mohammad-safakhou/carie/internal/agent/react"
	"gopkg.in/yaml.v3"
)

const (
	formatHeader = "Follow the following format."
	separator    = "---"
)

// Demo is one few-shot demonstration: field name to value. Fields missing from the
// schema being rendered are skipped.
type Demo map[string]string

// LoadDemos reads demonstrations from a YAML list of field maps.
func LoadDemos(path string) ([]Demo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read demos: %w", err)
	}
	var demos []Demo
	if err := yaml.Unmarshal(data, &demos); err != nil {
		return nil, fmt.Errorf("parse demos %s: %w", path, err)
	}
	return demos, nil
}

// RenderPrompt renders the instruction block, the field format, the demos that
// carry every schema input, and finally the bound fields followed by the prefix
// of the first unbound field.
func RenderPrompt(schema *react.Schema, bound *react.Fields, demos []Demo) string {
	fields := schema.Fields()
	var sections []string
	sections = append(sections, schema.Instructions())

	format := []string{formatHeader, ""}
	for _, f := range fields {
		format = append(format, f.Prefix+" ${"+f.Description+"}")
	}
	sections = append(sections, strings.Join(format, "\n"))

	for _, d := range demos {
		if text, ok := renderDemo(schema, d); ok {
			sections = append(sections, text)
		}
	}

	var current []string
	for _, f := range fields {
		v, ok := bound.Get(f.Name)
		if !ok {
			current = append(current, f.Prefix)
			break
		}
		current = append(current, f.Prefix+" "+v)
	}
	sections = append(sections, strings.Join(current, "\n"))

	return strings.Join(sections, "\n\n"+separator+"\n\n")
}

func renderDemo(schema *react.Schema, d Demo) (string, bool) {
	for _, in := range schema.Inputs() {
		if _, ok := d[in.Name]; !ok {
			return "", false
		}
	}
	var lines []string
	for _, f := range schema.Fields() {
		if v, ok := d[f.Name]; ok {
			lines = append(lines, f.Prefix+" "+strings.TrimSpace(v))
		}
	}
	return strings.Join(lines, "\n"), true
}

// ParseCompletion splits completion text, which starts right after the prefix of
// unbound[0], into field values. A field runs until the next expected prefix.
// Fields whose prefix never appears are absent from the result.
func ParseCompletion(unbound []react.Field, completion string) map[string]string {
	out := map[string]string{}
	if len(unbound) == 0 {
		return out
	}
	rest := completion
	for i, f := range unbound {
		if i > 0 {
			at := indexPrefix(rest, f.Prefix)
			if at < 0 {
				break
			}
			rest = rest[at+len(f.Prefix):]
		}
		value := rest
		if i+1 < len(unbound) {
			if next := indexPrefix(rest, unbound[i+1].Prefix); next >= 0 {
				value = rest[:next]
			}
		}
		out[f.Name] = strings.TrimSpace(value)
	}
	return out
}

// indexPrefix finds prefix at the start of text or of one of its lines.
func indexPrefix(text, prefix string) int {
	if strings.HasPrefix(text, prefix) {
		return 0
	}
	if i := strings.Index(text, "\n"+prefix); i >= 0 {
		return i + 1
	}
	return -1
}

// stopSequence is the prefix the model must not write for this depth.
func stopSequence(schema *react.Schema) string {
	return fmt.Sprintf("Observation %d:", schema.Depth())
}
