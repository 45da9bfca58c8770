package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/fieldflow/internal/app"
	"github.com/roach88/fieldflow/internal/sim"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %-7s %s -> %s\n", event.Seq, event.Kind, event.Action, event.Screen)
		}
	}

	return buf.String()
}

// AssertionContext is what assertions inspect besides the result.
type AssertionContext struct {
	Ctx     context.Context
	World   *sim.World
	State   app.State
	Timeout time.Duration
}

// EvaluateAssertions checks every assertion and returns the failure
// messages in order.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertScreen:
		return assertScreen(result, a)
	case AssertScreens:
		return assertScreens(result, a)
	case AssertFlow:
		return assertFlow(result, a)
	case AssertAlert:
		return assertAlert(actx.State, a)
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertCalls:
		return assertCalls(actx, a)
	case AssertStored:
		return assertStored(actx, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertScreen(result *Result, a Assertion) error {
	if result.Screen == a.Screen {
		return nil
	}
	return &AssertionError{
		Type:     AssertScreen,
		Expected: a.Screen,
		Actual:   result.Screen,
		Trace:    result.Trace,
	}
}

// assertScreens checks the exact sequence of distinct screens shown.
func assertScreens(result *Result, a Assertion) error {
	got := result.ScreenNames()
	if slices.Equal(got, a.Screens) {
		return nil
	}
	return &AssertionError{
		Type:     AssertScreens,
		Expected: strings.Join(a.Screens, " > "),
		Actual:   strings.Join(got, " > "),
		Trace:    result.Trace,
	}
}

func assertFlow(result *Result, a Assertion) error {
	if result.Flow == a.Flow {
		return nil
	}
	return &AssertionError{
		Type:     AssertFlow,
		Expected: a.Flow,
		Actual:   result.Flow,
	}
}

// assertAlert checks the title of the alert shown at the end. An empty
// title asserts that no alert is shown.
func assertAlert(state app.State, a Assertion) error {
	got := ""
	if state.Alert != nil {
		got = state.Alert.Title
	}
	if got == a.Title {
		return nil
	}
	describe := func(title string) string {
		if title == "" {
			return "no alert"
		}
		return fmt.Sprintf("alert %q", title)
	}
	return &AssertionError{
		Type:     AssertAlert,
		Expected: describe(a.Title),
		Actual:   describe(got),
	}
}

// assertTraceContains checks that the action was reduced at least once.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Action == a.Action {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s", a.Action),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if _, seen := positions[event.Action]; !seen {
			positions[event.Action] = i + 1 // 1-indexed for readability
		}
	}

	for _, action := range a.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", a.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Actions); i++ {
		prev, curr := a.Actions[i-1], a.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", a.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Action == a.Action {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

type callRecorder interface {
	Calls() []string
	Count(name string) int
}

// assertCalls checks how often a simulated collaborator was called.
// Fire-and-forget calls may still be running when the steps end, so the
// check polls until the timeout.
func assertCalls(actx *AssertionContext, a Assertion) error {
	var rec callRecorder
	switch a.Target {
	case TargetSDK:
		rec = actx.World.SDK
	case TargetAPI:
		rec = actx.World.API
	case TargetLinks:
		rec = actx.World.Links
	case TargetReporter:
		rec = actx.World.Reporter
	default:
		return fmt.Errorf("unknown calls target %q", a.Target)
	}

	got, ok := poll(actx, func() (int, bool) {
		n := rec.Count(a.Call)
		return n, n == a.Count
	})
	if ok {
		return nil
	}
	return &AssertionError{
		Type:     AssertCalls,
		Expected: fmt.Sprintf("%d %s calls to %s", a.Count, a.Target, a.Call),
		Actual:   fmt.Sprintf("%d calls; recorded %v", got, rec.Calls()),
	}
}

// poll calls check until it reports success or the assertion timeout
// passes, and returns the last observed value.
func poll[T any](actx *AssertionContext, check func() (T, bool)) (T, bool) {
	ctx, cancel := context.WithTimeout(actx.Ctx, actx.Timeout)
	defer cancel()
	for {
		v, ok := check()
		if ok {
			return v, true
		}
		select {
		case <-ctx.Done():
			return v, false
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// assertStored checks a restoration key in storage. Saves run as
// fire-and-forget effects, so the check polls like assertCalls.
func assertStored(actx *AssertionContext, a Assertion) error {
	type read struct {
		value   string
		present bool
		err     error
	}
	got, ok := poll(actx, func() (read, bool) {
		values, err := actx.World.KV.Get(actx.Ctx, []string{a.Key})
		if err != nil {
			return read{err: err}, true
		}
		v, present := values[a.Key]
		r := read{value: v, present: present}
		return r, (a.Value == "" && !present) || (present && v == a.Value)
	})
	if got.err != nil {
		return fmt.Errorf("read %s: %w", a.Key, got.err)
	}
	if ok {
		return nil
	}

	expected := fmt.Sprintf("%s = %q", a.Key, a.Value)
	if a.Value == "" {
		expected = fmt.Sprintf("%s absent", a.Key)
	}
	actual := fmt.Sprintf("%s absent", a.Key)
	if got.present {
		actual = fmt.Sprintf("%s = %q", a.Key, got.value)
	}
	return &AssertionError{Type: AssertStored, Expected: expected, Actual: actual}
}
