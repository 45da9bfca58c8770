// Package harness runs YAML scenarios against the application reducer and
// the in-process simulator.
//
// # Scenario Format
//
//	name: full_deep_link
//	description: "A full deep link makes the SDK and opens the main screen"
//	world:
//	  storage: { ff.s: signIn }
//	  valid_keys: [abc]
//	steps:
//	  - send: OSFinishedLaunching
//	  - settle: true
//	  - open_link: "fieldflow://open?publishable_key=abc&driver_id=d1"
//	  - receive: MadeSDK
//	  - expect: { screen: push_permission }
//	assertions:
//	  - type: flow
//	    flow: main
//	  - type: calls
//	    target: sdk
//	    call: "make_sdk abc"
//	    count: 1
//
// Action names are reducer.ActionName labels: "OSFinishedLaunching",
// "signin.EmailChanged", "refresh.UpdateOrders". Arguments are given under
// args.
//
// # Steps
//
//   - send: reduce an action immediately
//   - receive: reduce effect outputs until the named action is reduced
//   - settle: reduce effect outputs until none arrives for the quiet period
//   - advance: move the manual clock (delayed effects fire)
//   - hold / release: keep a simulated API call, or "make_sdk", in flight
//   - open_link: hand a URL to the simulated OS link source
//   - fail: make the next call to an endpoint fail
//   - outage / clear_outage: change the simulated SDK status
//   - expire_tokens: invalidate every issued token
//   - expect: check the screen, flow or alert mid-scenario
//
// # Assertion Types
//
//   - screen, flow, alert: the final screen, flow name and alert title
//   - screens: the exact sequence of distinct screens
//   - trace_contains, trace_order, trace_count: reduced actions
//   - calls: calls recorded by the simulated sdk, api, links or reporter
//   - stored: a raw key of the restoration storage
//
// # Determinism
//
// Scenarios run with a manual clock, sequential device ids and tokens, and
// a fixed wall clock. Effects still run concurrently, so the action trace
// may interleave differently between runs; the screen trace, which golden
// files record, does not.
package harness
