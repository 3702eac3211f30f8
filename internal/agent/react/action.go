package react

import (
	"errors"
	"strings"
)

// FailedActionObservation is recorded as the observation of any hop whose action
// could not be parsed, named an unknown capability, or failed while invoking.
const FailedActionObservation = "Failed to parse action. Bad formatting or incorrect action name."

// ErrMalformedAction indicates action text that is not of the form Name[Argument].
var ErrMalformedAction = errors.New("malformed action")

// ParseAction splits the first line of raw into a capability name and its argument.
// Text after the closing bracket is discarded. Brackets cannot be escaped, so an
// argument never contains "]".
func ParseAction(raw string) (name, argument string, err error) {
	line := strings.TrimSpace(raw)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	left, right, ok := strings.Cut(line, "[")
	if !ok {
		return "", "", ErrMalformedAction
	}
	argument, _, ok = strings.Cut(right, "]")
	if !ok {
		return "", "", ErrMalformedAction
	}
	return strings.TrimSpace(left), argument, nil
}

// FormatAction renders the canonical wire form of an action.
func FormatAction(name, argument string) string {
	return name + "[" + argument + "]"
}

// normalizeAction reformats parsable action text into its canonical form and
// otherwise returns the trimmed text unchanged.
func normalizeAction(raw string) string {
	name, arg, err := ParseAction(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return FormatAction(name, arg)
}
