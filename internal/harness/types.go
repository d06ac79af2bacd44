package harness

// Outcome values recorded for each step.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "INVALID" // malformed control or unknown token
	OutcomeError   = "ERROR"   // unexpected failure such as a storage error
)

// TraceEvent records what one step did and what the bot answered.
type TraceEvent struct {
	Step    int    `json:"step"`
	Kind    string `json:"kind"` // "command", "press", "advance", "sweep" or "restart"
	Input   string `json:"input"`
	User    string `json:"user,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	Update  bool   `json:"update,omitempty"`
	Output  string `json:"output,omitempty"` // render.Dump of the reply
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Codes is the final content of the code store.
	Codes map[string][]string `json:"codes"`

	// ActiveSessions is the number of Active sessions at the end.
	ActiveSessions int `json:"active_sessions"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Codes:  map[string][]string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Count returns how many trace events ended with outcome.
func (r *Result) Count(outcome string) int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Outcome == outcome {
			n++
		}
	}
	return n
}
