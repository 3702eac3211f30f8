package react

import "strings"

// HopRecord is one Thought/Action/Observation triple of a trace.
type HopRecord struct {
	Index       int    `json:"index"`
	Thought     string `json:"thought"`
	Action      string `json:"action"`
	ActionName  string `json:"action_name,omitempty"`
	Argument    string `json:"argument,omitempty"`
	Observation string `json:"observation,omitempty"`
	// HasObservation is false only for the hop that selected Finish.
	HasObservation bool `json:"has_observation"`
}

// ReasoningState accumulates the bound fields of one planner invocation.
type ReasoningState struct {
	fields *Fields
	hops   int
}

func newReasoningState() *ReasoningState {
	return &ReasoningState{fields: NewFields()}
}

// StateFromEntries rebuilds a state from a recorded trace.
func StateFromEntries(entries []Entry) *ReasoningState {
	s := &ReasoningState{fields: FieldsFromEntries(entries)}
	for _, e := range entries {
		if kind, hop, ok := ParseFieldName(e.Name); ok && kind == KindAction && hop > s.hops {
			s.hops = hop
		}
	}
	return s
}

func (s *ReasoningState) set(name, value string) {
	s.fields.Set(name, value)
	if kind, hop, ok := ParseFieldName(name); ok && kind == KindAction && hop > s.hops {
		s.hops = hop
	}
}

// bound returns a snapshot safe to hand to a predictor.
func (s *ReasoningState) bound() *Fields { return s.fields.Clone() }

// Thought returns the thought recorded for hop i.
func (s *ReasoningState) Thought(i int) (string, bool) { return s.fields.Get(ThoughtField(i)) }

// Action returns the canonical action text recorded for hop i.
func (s *ReasoningState) Action(i int) (string, bool) { return s.fields.Get(ActionField(i)) }

// Observation returns the observation recorded for hop i.
func (s *ReasoningState) Observation(i int) (string, bool) {
	return s.fields.Get(ObservationField(i))
}

// Get returns any bound field, inputs included.
func (s *ReasoningState) Get(name string) (string, bool) { return s.fields.Get(name) }

// Len returns the number of bound fields, inputs included.
func (s *ReasoningState) Len() int {
	if s == nil {
		return 0
	}
	return s.fields.Len()
}

// HopCount returns the number of hops that produced an action.
func (s *ReasoningState) HopCount() int {
	if s == nil {
		return 0
	}
	return s.hops
}

// Entries returns the full ordered trace of bound fields.
func (s *ReasoningState) Entries() []Entry {
	if s == nil {
		return nil
	}
	return s.fields.Entries()
}

// Hops returns one record per reached hop.
func (s *ReasoningState) Hops() []HopRecord {
	if s == nil {
		return nil
	}
	out := make([]HopRecord, 0, s.hops)
	for i := 1; i <= s.hops; i++ {
		rec := HopRecord{Index: i}
		rec.Thought, _ = s.Thought(i)
		rec.Action, _ = s.Action(i)
		if name, arg, err := ParseAction(rec.Action); err == nil {
			rec.ActionName, rec.Argument = name, arg
		}
		rec.Observation, rec.HasObservation = s.Observation(i)
		out = append(out, rec)
	}
	return out
}

// repeatsAction reports whether action matches, ignoring case, an action recorded
// before hop.
func (s *ReasoningState) repeatsAction(action string, hop int) bool {
	for i := 1; i < hop; i++ {
		prev, ok := s.Action(i)
		if ok && strings.EqualFold(prev, action) {
			return true
		}
	}
	return false
}
