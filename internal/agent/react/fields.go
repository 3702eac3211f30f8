package react

import (
	"fmt"
	"strconv"
	"strings"
)

// Entry is one bound field in insertion order.
type Entry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Fields is an insertion-ordered mapping from field name to value.
type Fields struct {
	names  []string
	values map[string]string
}

// NewFields returns an empty Fields.
func NewFields() *Fields {
	return &Fields{values: make(map[string]string)}
}

// FieldsFromEntries builds Fields preserving the order of entries.
func FieldsFromEntries(entries []Entry) *Fields {
	f := NewFields()
	for _, e := range entries {
		f.Set(e.Name, e.Value)
	}
	return f
}

// Set binds name to value. Rebinding keeps the original position.
func (f *Fields) Set(name, value string) {
	if _, ok := f.values[name]; !ok {
		f.names = append(f.names, name)
	}
	f.values[name] = value
}

// Get returns the value bound to name.
func (f *Fields) Get(name string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f.values[name]
	return v, ok
}

// Has reports whether name is bound.
func (f *Fields) Has(name string) bool {
	_, ok := f.Get(name)
	return ok
}

// Len returns the number of bound fields.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.names)
}

// Names returns the bound names in insertion order.
func (f *Fields) Names() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.names...)
}

// Entries returns the bound fields in insertion order.
func (f *Fields) Entries() []Entry {
	if f == nil {
		return nil
	}
	out := make([]Entry, len(f.names))
	for i, n := range f.names {
		out[i] = Entry{Name: n, Value: f.values[n]}
	}
	return out
}

// Clone returns an independent copy.
func (f *Fields) Clone() *Fields {
	c := &Fields{
		names:  append([]string(nil), f.names...),
		values: make(map[string]string, len(f.values)),
	}
	for k, v := range f.values {
		c.values[k] = v
	}
	return c
}

// ThoughtField returns the name of the Thought field for hop i.
func ThoughtField(i int) string { return fmt.Sprintf("Thought_%d", i) }

// ActionField returns the name of the Action field for hop i.
func ActionField(i int) string { return fmt.Sprintf("Action_%d", i) }

// ObservationField returns the name of the Observation field for hop i.
func ObservationField(i int) string { return fmt.Sprintf("Observation_%d", i) }

// ParseFieldName splits a generated field name into its kind and hop index.
func ParseFieldName(name string) (FieldKind, int, bool) {
	label, num, ok := strings.Cut(name, "_")
	if !ok {
		return KindInput, 0, false
	}
	hop, err := strconv.Atoi(num)
	if err != nil || hop < 1 {
		return KindInput, 0, false
	}
	switch label {
	case "Thought":
		return KindThought, hop, true
	case "Action":
		return KindAction, hop, true
	case "Observation":
		return KindObservation, hop, true
	}
	return KindInput, 0, false
}
