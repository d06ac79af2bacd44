package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/joincode/internal/catalog"
	"github.com/roach88/joincode/internal/render"
)

// DefaultCommunity is used by steps that do not name a community.
const DefaultCommunity = "G1"

// Scenario defines one conversation with the bot.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog lists the selectable tokens. When empty, CatalogSize tokens
	// t1..tN are generated, and when that is zero too the built-in catalog
	// is used.
	Catalog     []catalog.Token `yaml:"catalog,omitempty"`
	CatalogSize int             `yaml:"catalog_size,omitempty"`

	// Managers may manage every community.
	Managers []string `yaml:"managers,omitempty"`

	// OpenSetCode lets anyone start the code builder.
	OpenSetCode bool `yaml:"open_setcode,omitempty"`

	// Timeout overrides the session idle timeout (Go duration syntax).
	Timeout string `yaml:"timeout,omitempty"`

	// Seed pre-populates the code store.
	Seed map[string][]string `yaml:"seed,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step does exactly one thing.
type Step struct {
	// Command invokes a slash command by name.
	Command string `yaml:"command,omitempty"`

	// Press presses a builder control: pick, clear, confirm or cancel.
	// Token names the picked token; Session names the builder and defaults
	// to the most recently opened one.
	Press   string `yaml:"press,omitempty"`
	Token   string `yaml:"token,omitempty"`
	Session string `yaml:"session,omitempty"`

	// CustomID presses a raw control id, bypassing encoding.
	CustomID string `yaml:"custom_id,omitempty"`

	// User and Community identify the actor. CanManage mirrors the
	// platform's Manage Server permission.
	User      string `yaml:"user,omitempty"`
	Community string `yaml:"community,omitempty"`
	CanManage bool   `yaml:"can_manage,omitempty"`

	// Advance moves the fake clock forward (Go duration syntax).
	Advance string `yaml:"advance,omitempty"`

	// Sweep runs the session registry sweep at the current time.
	Sweep bool `yaml:"sweep,omitempty"`

	// Restart reloads the store from disk and drops every session.
	Restart bool `yaml:"restart,omitempty"`

	// Expect validates the reply. Nil means no validation.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the reply a step should produce. Empty fields are not checked.
type Expect struct {
	// Outcome is "ok", a session error code such as AUTHORIZATION_FAILURE,
	// INVALID or ERROR.
	Outcome    string `yaml:"outcome,omitempty"`
	Update     *bool  `yaml:"update,omitempty"`
	Contains   string `yaml:"contains,omitempty"`
	Visibility string `yaml:"visibility,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Community and Tokens are used by code_equals and code_absent.
	Community string   `yaml:"community,omitempty"`
	Tokens    []string `yaml:"tokens,omitempty"`

	// Count is used by active_sessions and outcome_count.
	Count int `yaml:"count,omitempty"`

	// Outcome is used by outcome_count.
	Outcome string `yaml:"outcome,omitempty"`
}

// Assertion type constants.
const (
	AssertCodeEquals     = "code_equals"
	AssertCodeAbsent     = "code_absent"
	AssertActiveSessions = "active_sessions"
	AssertOutcomeCount   = "outcome_count"
)

// Step kinds.
const (
	KindCommand = "command"
	KindPress   = "press"
	KindAdvance = "advance"
	KindSweep   = "sweep"
	KindRestart = "restart"
)

// Kind reports which single action the step performs, or "" when it
// performs none or several.
func (s Step) Kind() string {
	var kinds []string
	if s.Command != "" {
		kinds = append(kinds, KindCommand)
	}
	if s.Press != "" || s.CustomID != "" {
		kinds = append(kinds, KindPress)
	}
	if s.Advance != "" {
		kinds = append(kinds, KindAdvance)
	}
	if s.Sweep {
		kinds = append(kinds, KindSweep)
	}
	if s.Restart {
		kinds = append(kinds, KindRestart)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if len(s.Steps) == 0 {
		return errors.New("at least one step is required")
	}
	if s.CatalogSize < 0 {
		return errors.New("catalog_size must not be negative")
	}
	if s.Timeout != "" {
		if d, err := time.ParseDuration(s.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("timeout %q is not a positive duration", s.Timeout)
		}
	}

	for i, step := range s.Steps {
		kind := step.Kind()
		if kind == "" {
			return fmt.Errorf("step %d: exactly one of command, press/custom_id, advance, sweep or restart is required", i+1)
		}
		switch kind {
		case KindCommand:
			if step.User == "" {
				return fmt.Errorf("step %d: command requires a user", i+1)
			}
		case KindPress:
			if step.User == "" {
				return fmt.Errorf("step %d: press requires a user", i+1)
			}
			if step.CustomID != "" && step.Press != "" {
				return fmt.Errorf("step %d: press and custom_id are mutually exclusive", i+1)
			}
			if err := validatePress(step); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		case KindAdvance:
			if _, err := time.ParseDuration(step.Advance); err != nil {
				return fmt.Errorf("step %d: advance: %w", i+1, err)
			}
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertCodeEquals:
			if a.Community == "" || len(a.Tokens) == 0 {
				return fmt.Errorf("assertion %d: code_equals requires community and tokens", i+1)
			}
		case AssertCodeAbsent:
			if a.Community == "" {
				return fmt.Errorf("assertion %d: code_absent requires community", i+1)
			}
		case AssertActiveSessions:
		case AssertOutcomeCount:
			if a.Outcome == "" {
				return fmt.Errorf("assertion %d: outcome_count requires outcome", i+1)
			}
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i+1, a.Type)
		}
	}
	return nil
}

func validatePress(step Step) error {
	if step.CustomID != "" {
		return nil
	}
	switch step.Press {
	case render.ControlPick:
		if step.Token == "" {
			return errors.New("pick requires a token")
		}
	case render.ControlClear, render.ControlConfirm, render.ControlCancel:
		if step.Token != "" {
			return fmt.Errorf("%s takes no token", step.Press)
		}
	default:
		return fmt.Errorf("unknown control %q", step.Press)
	}
	return nil
}
