// Package harness runs YAML conversation scenarios against the bot
// handlers.
//
// Each scenario gets a fresh JSON code store in a temporary directory, a
// fake clock starting at testutil.Epoch and sequential session handles
// ("session-1", "session-2", ...), so the transcript it produces is fully
// deterministic and can be compared against a golden file.
//
// A scenario is a list of steps. Each step does exactly one thing: invoke a
// command, press a builder control, advance the clock, sweep the session
// registry, or restart the process (reload the store from disk and forget
// every session). Steps may carry an expect clause; assertions at the end
// check the stored codes and the session registry.
package harness
