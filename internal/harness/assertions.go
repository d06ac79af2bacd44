package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against the result and
// returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertCodeEquals:
		return assertCodeEquals(result, a)
	case AssertCodeAbsent:
		if got, ok := result.Codes[a.Community]; ok {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("no code for %s", a.Community),
				Actual:   formatTokens(got),
			}
		}
		return nil
	case AssertActiveSessions:
		if result.ActiveSessions != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d active sessions", a.Count),
				Actual:   fmt.Sprintf("%d", result.ActiveSessions),
			}
		}
		return nil
	case AssertOutcomeCount:
		if got := result.Count(a.Outcome); got != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d steps with outcome %s", a.Count, a.Outcome),
				Actual:   fmt.Sprintf("%d", got),
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func assertCodeEquals(result *Result, a Assertion) error {
	got, ok := result.Codes[a.Community]
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %s", a.Community, formatTokens(a.Tokens)),
			Actual:   fmt.Sprintf("no code (stored: %s)", strings.Join(sortedKeys(result.Codes), ", ")),
		}
	}
	if !reflect.DeepEqual(got, a.Tokens) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %s", a.Community, formatTokens(a.Tokens)),
			Actual:   formatTokens(got),
		}
	}
	return nil
}

func formatTokens(tokens []string) string {
	return "[" + strings.Join(tokens, " ") + "]"
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
