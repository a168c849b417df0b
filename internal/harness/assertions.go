package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/flowc/internal/emit"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against result and returns the
// messages of those that failed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertValid:
		return assertValid(result)
	case AssertInvalid:
		return assertInvalid(result, a)
	case AssertWarning:
		return assertWarning(result, a)
	case AssertProgramContains:
		return assertProgramContains(result, a)
	case AssertStatementCount:
		return assertStatementCount(result, a)
	case AssertNetworkCount:
		if result.Networks != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d network edge(s)", a.Count),
				Actual:   fmt.Sprintf("%d", result.Networks),
			}
		}
		return nil
	case AssertChannel:
		return assertChannel(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func validationCodes(result *Result) []string {
	codes := make([]string, len(result.Validation))
	for i, e := range result.Validation {
		codes[i] = e.Code
	}
	return codes
}

func assertValid(result *Result) error {
	if len(result.Validation) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertValid,
		Expected: "graph compiles",
		Actual:   fmt.Sprintf("validation failed with %v", validationCodes(result)),
	}
}

// assertInvalid checks the validation codes in order.
func assertInvalid(result *Result, a Assertion) error {
	codes := validationCodes(result)
	if slices.Equal(codes, a.Codes) {
		return nil
	}
	actual := fmt.Sprintf("%v", codes)
	if len(codes) == 0 {
		actual = "graph compiled"
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("validation codes %v", a.Codes),
		Actual:   actual,
	}
}

func assertWarning(result *Result, a Assertion) error {
	var seen []string
	for _, w := range result.Warnings {
		if w.Level == a.Level && strings.Contains(w.Message, a.Text) {
			return nil
		}
		seen = append(seen, w.String())
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s containing %q", a.Level, a.Text),
		Actual:   fmt.Sprintf("warnings %q", seen),
	}
}

// program finds the program whose location renders as name.
func program(progs emit.Programs, name string) *emit.Program {
	for _, p := range progs {
		if p.Location.String() == name {
			return p
		}
	}
	return nil
}

func assertProgramContains(result *Result, a Assertion) error {
	p := program(result.Programs, a.Location)
	if p == nil {
		return &AssertionError{Type: a.Type, Expected: "program for " + a.Location, Actual: "no such program"}
	}
	if text := p.String(); !strings.Contains(text, a.Text) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s contains %q", a.Location, a.Text),
			Actual:   text,
		}
	}
	return nil
}

func assertStatementCount(result *Result, a Assertion) error {
	p := program(result.Programs, a.Location)
	if p == nil {
		return &AssertionError{Type: a.Type, Expected: "program for " + a.Location, Actual: "no such program"}
	}
	if len(p.Statements) != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d statement(s) at %s", a.Count, a.Location),
			Actual:   fmt.Sprintf("%d", len(p.Statements)),
		}
	}
	return nil
}

func assertChannel(result *Result, a Assertion) error {
	for _, c := range result.Channels {
		if c.Shape == a.Shape && c.Sender == a.Sender && c.Receiver == a.Receiver {
			return nil
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s %s -> %s", a.Shape, a.Sender, a.Receiver),
		Actual:   fmt.Sprintf("%d channel(s), none matching", len(result.Channels)),
	}
}
