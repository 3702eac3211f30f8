package react

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/carie/internal/capability"
)

// FieldKind classifies a schema field.
type FieldKind int

const (
	KindInput FieldKind = iota
	KindThought
	KindAction
	KindObservation
)

func (k FieldKind) String() string {
	switch k {
	case KindThought:
		return "thought"
	case KindAction:
		return "action"
	case KindObservation:
		return "observation"
	default:
		return "input"
	}
}

const (
	thoughtDesc     = "next steps to take based on latest observation"
	observationDesc = "observations from latest action"
)

// FieldSpec declares a task input or output field.
type FieldSpec struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Signature declares the task inputs and the single output of a planner.
type Signature struct {
	Inputs []FieldSpec
	Output FieldSpec
}

// ErrInvalidSignature indicates unusable input/output declarations.
var ErrInvalidSignature = errors.New("invalid signature")

// Validate checks names are present, unique and do not collide with generated fields.
func (s Signature) Validate() error {
	if len(s.Inputs) == 0 {
		return fmt.Errorf("%w: at least one input field is required", ErrInvalidSignature)
	}
	if strings.TrimSpace(s.Output.Name) == "" {
		return fmt.Errorf("%w: output field name is required", ErrInvalidSignature)
	}
	seen := map[string]struct{}{}
	for _, spec := range append(append([]FieldSpec(nil), s.Inputs...), s.Output) {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidSignature)
		}
		if _, _, generated := ParseFieldName(name); generated {
			return fmt.Errorf("%w: %s collides with a generated field", ErrInvalidSignature, name)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: duplicate field %s", ErrInvalidSignature, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// InputNames returns the declared input names in order.
func (s Signature) InputNames() []string {
	out := make([]string, len(s.Inputs))
	for i, in := range s.Inputs {
		out[i] = in.Name
	}
	return out
}

// Field is one entry of a Schema.
type Field struct {
	Name        string
	Prefix      string
	Description string
	Kind        FieldKind
	// Hop is the 1-based hop index for generated fields and 0 for inputs.
	Hop int

	parse  func(string) string
	format func([]string) string
}

// Clean normalizes raw predictor text for this field.
func (f Field) Clean(raw string) string {
	if f.parse == nil {
		return strings.TrimSpace(raw)
	}
	return f.parse(raw)
}

// FormatPassages renders capability output for an Observation field.
func (f Field) FormatPassages(passages []string) string {
	if f.format == nil {
		return JoinPassages(passages)
	}
	return f.format(passages)
}

// Schema is the immutable field layout used at one hop depth.
type Schema struct {
	depth        int
	instructions string
	fields       []Field
	index        map[string]int
}

// Depth is the hop depth the schema was built for.
func (s *Schema) Depth() int { return s.depth }

// Instructions returns the shared instruction block.
func (s *Schema) Instructions() string { return s.instructions }

// Fields returns a copy of all fields in order.
func (s *Schema) Fields() []Field { return append([]Field(nil), s.fields...) }

// Field looks a field up by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Inputs returns the task input fields.
func (s *Schema) Inputs() []Field {
	var out []Field
	for _, f := range s.fields {
		if f.Kind == KindInput {
			out = append(out, f)
		}
	}
	return out
}

// Generated returns the Thought/Action/Observation fields in order.
func (s *Schema) Generated() []Field {
	var out []Field
	for _, f := range s.fields {
		if f.Kind != KindInput {
			out = append(out, f)
		}
	}
	return out
}

// Unbound returns the generated fields that have no value in bound.
func (s *Schema) Unbound(bound *Fields) []Field {
	var out []Field
	for _, f := range s.Generated() {
		if !bound.Has(f.Name) {
			out = append(out, f)
		}
	}
	return out
}

// Names returns the field names in order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// BuildInstructions renders the instruction block shared by every schema of a plan.
func BuildInstructions(caps []capability.Capability, inputNames, outputNames []string) string {
	lines := []string{
		fmt.Sprintf("You will be given %s and you will respond with %s.", quoteNames(inputNames), quoteNames(outputNames)),
		"To do this, you will interleave Thought, Action, and Observation steps.",
		"Thought can reason about the current situation, and Action can be the following types:\n",
	}
	for i, c := range caps {
		lines = append(lines, fmt.Sprintf("(%d) %s[%s], which %s", i+1, c.Name(), c.InputSpec(), c.Description()))
	}
	return strings.Join(lines, "\n")
}

// BuildSchema builds the field layout for the given depth: inputs, then
// Thought_i and Action_i for every hop, and Observation_i for every hop but the last.
func BuildSchema(depth int, inputs []FieldSpec, caps []capability.Capability, instructions string) *Schema {
	s := &Schema{depth: depth, instructions: instructions, index: map[string]int{}}
	add := func(f Field) {
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	for _, in := range inputs {
		add(Field{Name: in.Name, Prefix: prefixFor(in.Name), Description: in.Description, Kind: KindInput})
	}
	actionDesc := actionDescription(caps)
	for i := 1; i <= depth; i++ {
		add(Field{
			Name:        ThoughtField(i),
			Prefix:      fmt.Sprintf("Thought %d:", i),
			Description: thoughtDesc,
			Kind:        KindThought,
			Hop:         i,
			parse:       thoughtParser(i),
		})
		add(Field{
			Name:        ActionField(i),
			Prefix:      fmt.Sprintf("Action %d:", i),
			Description: actionDesc,
			Kind:        KindAction,
			Hop:         i,
			parse:       normalizeAction,
		})
		if i < depth {
			add(Field{
				Name:        ObservationField(i),
				Prefix:      fmt.Sprintf("Observation %d:", i),
				Description: observationDesc,
				Kind:        KindObservation,
				Hop:         i,
				format:      JoinPassages,
			})
		}
	}
	return s
}

// JoinPassages trims every passage and joins them with a newline.
func JoinPassages(passages []string) string {
	trimmed := make([]string, len(passages))
	for i, p := range passages {
		trimmed[i] = strings.TrimSpace(p)
	}
	return strings.Join(trimmed, "\n")
}

// thoughtParser cuts a thought where the predictor ran on into the next hop's action.
func thoughtParser(hop int) func(string) string {
	marker := fmt.Sprintf("Action %d:", hop+1)
	return func(raw string) string {
		if i := strings.Index(raw, marker); i >= 0 {
			raw = raw[:i]
		}
		return strings.TrimSpace(raw)
	}
}

func actionDescription(caps []capability.Capability) string {
	var iterative []string
	finish := ""
	for _, c := range caps {
		form := FormatAction(c.Name(), c.InputSpec())
		if c.Name() == capability.FinishName {
			finish = form
			continue
		}
		iterative = append(iterative, form)
	}
	if len(iterative) == 0 {
		return "always " + finish
	}
	return fmt.Sprintf("always either %s or, when done, %s", strings.Join(iterative, ", "), finish)
}

func quoteNames(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "`" + n + "`"
	}
	return strings.Join(quoted, ", ")
}

// prefixFor turns an input name like "plant_task" into the prompt label "Plant Task:".
func prefixFor(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ") + ":"
}
