package harness

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// FormatTrace renders a trace as deterministic text, one line per step:
//
//	003 rfq.set_quote item=I1 price=100 vendor=V1 => ok kind=priced-no-make
//
// Args and result fields are sorted by key.
func FormatTrace(name string, trace []TraceEvent) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	for _, ev := range trace {
		buf.WriteString(formatEvent(ev))
	}
	return []byte(buf.String())
}

func formatEvent(ev TraceEvent) string {
	res := make(map[string]any, len(ev.Result))
	for k, v := range ev.Result {
		res[k] = v
	}
	return fmt.Sprintf("%03d %s%s => %s%s\n", ev.Seq, ev.Action, formatArgs(ev.Args), ev.Outcome, formatArgs(res))
}

// formatArgs renders " k=v" pairs sorted by key.
func formatArgs(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&buf, " %s=%s", k, formatValue(m[k]))
	}
	return buf.String()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case []string:
		return "[" + strings.Join(x, ",") + "]"
	case string:
		if strings.ContainsAny(x, " \t") {
			return fmt.Sprintf("%q", x)
		}
		return x
	default:
		return formatScalar(x)
	}
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
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
	g.Assert(t, scenario.Name, FormatTrace(scenario.Name, result.Trace))

	return result, nil
}
