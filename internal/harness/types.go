package harness

// Outcome values recorded in the trace.
const (
	OutcomeOK = "ok"
	// OutcomeError marks an error without a known code.
	OutcomeError = "ERROR"
)

// TraceEvent is one executed step.
type TraceEvent struct {
	Seq     int               `json:"seq"`
	Action  string            `json:"action"`
	Args    map[string]any    `json:"args,omitempty"`
	Outcome string            `json:"outcome"`
	Result  map[string]string `json:"result,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step met its expectation and every assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per executed step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event and returns it.
func (r *Result) AddTrace(action string, args map[string]any, outcome string, result map[string]string) TraceEvent {
	ev := TraceEvent{
		Seq:     len(r.Trace) + 1,
		Action:  action,
		Args:    args,
		Outcome: outcome,
		Result:  result,
	}
	r.Trace = append(r.Trace, ev)
	return ev
}
