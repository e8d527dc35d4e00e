package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/quotedesk/internal/seed"
)

// Scenario defines one executable scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Request is the sent-back request opened before the flow.
	Request string `yaml:"request"`

	// BatchSize overrides the coordinator batch size when positive.
	BatchSize int `yaml:"batch_size,omitempty"`

	// Seed holds the documents imported before the flow.
	Seed seed.Fixture `yaml:"seed"`

	// Flow contains the steps, executed in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one action of the flow.
type Step struct {
	// Do names the action, e.g. "rfq.set_quote".
	Do string `yaml:"do"`

	// Args contains the action arguments.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect validates the step. A step without one must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected step outcome.
type Expect struct {
	// Outcome is "ok" or an error code such as "INCOMPLETE_SELECTION".
	Outcome string `yaml:"outcome"`

	// Result is a subset of the step's result fields.
	Result map[string]string `yaml:"result,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an action appears in the trace with args
	// - "trace_order": actions appear in order
	// - "trace_count": an action appears exactly N times
	// - "final_state": a table row holds expected column values
	// - "item": the persisted item carries expected resolution fields
	// - "request": the open request matches mode, completeness or stored state
	Type string `yaml:"type"`

	// Action is the action name (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are the expected action arguments (trace_contains, subset match).
	Args map[string]any `yaml:"args,omitempty"`

	// Actions is the expected action order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Table and Where select one row (final_state).
	Table string         `yaml:"table,omitempty"`
	Where map[string]any `yaml:"where,omitempty"`

	// Item names the item (item).
	Item string `yaml:"item,omitempty"`

	// Expect contains expected field values (final_state, item, request).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertItem          = "item"
	AssertRequest       = "request"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
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
	decoder.KnownFields(true) // Reject unknown fields
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
		return fmt.Errorf("name is required")
	}
	if s.Request == "" {
		return fmt.Errorf("request is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow must contain at least one step")
	}
	for i, step := range s.Flow {
		if step.Do == "" {
			return fmt.Errorf("flow[%d]: do is required", i)
		}
		if _, ok := actions[step.Do]; !ok {
			return fmt.Errorf("flow[%d]: unknown action %q", i, step.Do)
		}
		if step.Expect != nil && step.Expect.Outcome == "" {
			return fmt.Errorf("flow[%d]: expect.outcome is required", i)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertItem:
		if a.Item == "" {
			return fmt.Errorf("assertions[%d]: item is required for item", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for item", index)
		}
	case AssertRequest:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for request", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
