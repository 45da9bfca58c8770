package harness

// TraceEvent is one reduced action.
type TraceEvent struct {
	Seq    int    `json:"seq"`
	Kind   string `json:"kind"` // "send" or "receive"
	Action string `json:"action"`
	Screen string `json:"screen"`
}

// ScreenChange records the screen shown after an action changed it. The
// first entry is the screen at start, with an empty Action.
type ScreenChange struct {
	Action string `json:"action,omitempty"`
	Screen string `json:"screen"`
}

// Trace event kinds.
const (
	KindSend    = "send"
	KindReceive = "receive"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace lists every reduced action in order.
	Trace []TraceEvent `json:"trace"`

	// Screens lists the distinct screens in the order they were shown.
	Screens []ScreenChange `json:"screens"`

	// Screen and Flow describe the final state.
	Screen string `json:"screen"`
	Flow   string `json:"flow"`

	// Errors contains failed expectations and assertions.
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

func (r *Result) record(kind, action, screen string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    len(r.Trace) + 1,
		Kind:   kind,
		Action: action,
		Screen: screen,
	})
	if n := len(r.Screens); n == 0 || r.Screens[n-1].Screen != screen {
		r.Screens = append(r.Screens, ScreenChange{Action: action, Screen: screen})
	}
}

// ScreenNames returns the distinct screens without their actions.
func (r *Result) ScreenNames() []string {
	names := make([]string, len(r.Screens))
	for i, s := range r.Screens {
		names[i] = s.Screen
	}
	return names
}
