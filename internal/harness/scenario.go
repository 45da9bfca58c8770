package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fieldflow/internal/model"
)

// Scenario is a scripted run of the app against the simulator.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// World configures the simulator before the app starts.
	World WorldSpec `yaml:"world,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// WorldSpec seeds the simulated collaborators.
type WorldSpec struct {
	Accounts   []AccountSpec `yaml:"accounts,omitempty"`
	Orders     []OrderSpec   `yaml:"orders,omitempty"`
	Places     []PlaceSpec   `yaml:"places,omitempty"`
	Addresses  []AddressSpec `yaml:"addresses,omitempty"`
	History    *HistorySpec  `yaml:"history,omitempty"`
	ValidKeys  []string      `yaml:"valid_keys,omitempty"`
	Outage     string        `yaml:"outage,omitempty"`
	PushDenied bool          `yaml:"push_denied,omitempty"`

	// Storage holds raw restoration keys present at launch.
	Storage map[string]string `yaml:"storage,omitempty"`
}

type AccountSpec struct {
	Email          string `yaml:"email"`
	Password       string `yaml:"password"`
	PublishableKey string `yaml:"publishable_key"`
}

type OrderSpec struct {
	ID        string  `yaml:"id"`
	Status    string  `yaml:"status,omitempty"`
	Address   string  `yaml:"address,omitempty"`
	Note      string  `yaml:"note,omitempty"`
	Latitude  float64 `yaml:"latitude,omitempty"`
	Longitude float64 `yaml:"longitude,omitempty"`
}

type PlaceSpec struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name,omitempty"`
	Latitude  float64 `yaml:"latitude,omitempty"`
	Longitude float64 `yaml:"longitude,omitempty"`
}

type AddressSpec struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Address   string  `yaml:"address"`
}

type HistorySpec struct {
	Distance int    `yaml:"distance"`
	Duration string `yaml:"duration,omitempty"`
}

// Step is one scenario step. Exactly one operation is set.
type Step struct {
	Send         string         `yaml:"send,omitempty"`
	Args         map[string]any `yaml:"args,omitempty"`
	Receive      string         `yaml:"receive,omitempty"`
	Settle       bool           `yaml:"settle,omitempty"`
	Advance      string         `yaml:"advance,omitempty"`
	Hold         string         `yaml:"hold,omitempty"`
	Release      string         `yaml:"release,omitempty"`
	OpenLink     string         `yaml:"open_link,omitempty"`
	Fail         *FailStep      `yaml:"fail,omitempty"`
	Outage       string         `yaml:"outage,omitempty"`
	ClearOutage  bool           `yaml:"clear_outage,omitempty"`
	ExpireTokens bool           `yaml:"expire_tokens,omitempty"`
	Expect       *Expectation   `yaml:"expect,omitempty"`
}

// FailStep makes the next call to Endpoint fail with Error, one of
// "network", "timeout", "server" or "expired".
type FailStep struct {
	Endpoint string `yaml:"endpoint"`
	Error    string `yaml:"error"`
}

// Expectation is a mid-scenario check. Empty fields are not checked.
type Expectation struct {
	Screen string `yaml:"screen,omitempty"`
	Flow   string `yaml:"flow,omitempty"`
	Alert  string `yaml:"alert,omitempty"`
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	Type string `yaml:"type"`

	// screen, flow, alert
	Screen string `yaml:"screen,omitempty"`
	Flow   string `yaml:"flow,omitempty"`
	Title  string `yaml:"title,omitempty"`

	// screens
	Screens []string `yaml:"screens,omitempty"`

	// trace_contains, trace_order, trace_count
	Action  string   `yaml:"action,omitempty"`
	Actions []string `yaml:"actions,omitempty"`

	// trace_count, calls
	Count int `yaml:"count,omitempty"`

	// calls: target is sdk, api, links or reporter; call is a recorded
	// call or its name.
	Target string `yaml:"target,omitempty"`
	Call   string `yaml:"call,omitempty"`

	// stored: an empty value asserts the key is absent.
	Key   string `yaml:"key,omitempty"`
	Value string `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertScreen        = "screen"
	AssertScreens       = "screens"
	AssertFlow          = "flow"
	AssertAlert         = "alert"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertCalls         = "calls"
	AssertStored        = "stored"
)

// Call targets.
const (
	TargetSDK      = "sdk"
	TargetAPI      = "api"
	TargetLinks    = "links"
	TargetReporter = "reporter"
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

// ParseScenario parses and validates a scenario document.
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

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.World.Outage != "" {
		if _, err := model.ParseOutageReason(s.World.Outage); err != nil {
			return fmt.Errorf("world.outage: %w", err)
		}
	}
	for i, o := range s.World.Orders {
		if o.ID == "" {
			return fmt.Errorf("world.orders[%d]: id is required", i)
		}
		if _, err := parseOrderStatus(o.Status); err != nil {
			return fmt.Errorf("world.orders[%d]: %w", i, err)
		}
	}
	if h := s.World.History; h != nil && h.Duration != "" {
		if _, err := time.ParseDuration(h.Duration); err != nil {
			return fmt.Errorf("world.history.duration: %w", err)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(s Step) error {
	ops := 0
	for _, set := range []bool{
		s.Send != "", s.Receive != "", s.Settle, s.Advance != "", s.Hold != "",
		s.Release != "", s.OpenLink != "", s.Fail != nil, s.Outage != "",
		s.ClearOutage, s.ExpireTokens, s.Expect != nil,
	} {
		if set {
			ops++
		}
	}
	if ops != 1 {
		return fmt.Errorf("exactly one operation is required, got %d", ops)
	}
	if s.Args != nil && s.Send == "" {
		return fmt.Errorf("args are only valid with send")
	}

	switch {
	case s.Send != "":
		if _, err := ParseAction(s.Send, s.Args); err != nil {
			return err
		}
	case s.Advance != "":
		if _, err := time.ParseDuration(s.Advance); err != nil {
			return fmt.Errorf("advance: %w", err)
		}
	case s.Fail != nil:
		if s.Fail.Endpoint == "" {
			return fmt.Errorf("fail: endpoint is required")
		}
		if _, ok := failure(s.Fail.Error); !ok {
			return fmt.Errorf("fail: unknown failure %q", s.Fail.Error)
		}
	case s.Outage != "":
		if _, err := model.ParseOutageReason(s.Outage); err != nil {
			return fmt.Errorf("outage: %w", err)
		}
	case s.Expect != nil:
		if *s.Expect == (Expectation{}) {
			return fmt.Errorf("expect: nothing to check")
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("type is required")
	case AssertScreen:
		if a.Screen == "" {
			return fmt.Errorf("screen is required for screen")
		}
	case AssertScreens:
		if len(a.Screens) == 0 {
			return fmt.Errorf("screens list is required for screens")
		}
	case AssertFlow:
		if a.Flow == "" {
			return fmt.Errorf("flow is required for flow")
		}
	case AssertAlert:
		// An empty title asserts there is no alert.
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("action is required for trace_contains")
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("actions list is required for trace_order")
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("action is required for trace_count")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for trace_count")
		}
	case AssertCalls:
		switch a.Target {
		case TargetSDK, TargetAPI, TargetLinks, TargetReporter:
		default:
			return fmt.Errorf("unknown calls target %q", a.Target)
		}
		if a.Call == "" {
			return fmt.Errorf("call is required for calls")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for calls")
		}
	case AssertStored:
		if a.Key == "" {
			return fmt.Errorf("key is required for stored")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func parseOrderStatus(s string) (model.OrderStatus, error) {
	for _, st := range []model.OrderStatus{model.OrderOngoing, model.OrderCompleted, model.OrderCancelled} {
		if s == st.String() {
			return st, nil
		}
	}
	if s == "" {
		return model.OrderOngoing, nil
	}
	return 0, fmt.Errorf("unknown order status %q", s)
}
