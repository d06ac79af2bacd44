package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// FormatTranscript renders a result as stable text for golden comparison.
//
//	scenario: <name>
//	step 1 command /setcode in G1 by admin -> ok
//	  | visibility: private
//	  | ...
func FormatTranscript(name string, result *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, ev := range result.Trace {
		fmt.Fprintf(&b, "step %d %s %s", ev.Step, ev.Kind, ev.Input)
		if ev.User != "" {
			fmt.Fprintf(&b, " by %s", ev.User)
		}
		if ev.Outcome != "" {
			fmt.Fprintf(&b, " -> %s", ev.Outcome)
		}
		if ev.Update {
			b.WriteString(" (update)")
		}
		b.WriteString("\n")
		if ev.Output != "" {
			for _, line := range strings.Split(strings.TrimSuffix(ev.Output, "\n"), "\n") {
				fmt.Fprintf(&b, "  | %s\n", line)
			}
		}
	}

	keys := sortedKeys(result.Codes)
	if len(keys) == 0 {
		b.WriteString("codes: none\n")
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "code %s: %s\n", k, strings.Join(result.Codes[k], " "))
	}
	fmt.Fprintf(&b, "active sessions: %d\n", result.ActiveSessions)
	return b.String()
}

// RunWithGolden executes a scenario and compares its transcript against
// testdata/golden/<scenario.Name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, []byte(FormatTranscript(scenario.Name, result)))
	return result, nil
}
