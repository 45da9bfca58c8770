// Package effect describes asynchronous work returned by reducers and runs it.
//
// An Effect[A] is a description, not a running computation: reducers build
// effects and return them, and only a Runtime ever executes one. The outputs
// of a running effect are handed back to the owner of the runtime (the store),
// which feeds them to the reducer as new actions.
//
// EXECUTION MODEL:
//
// Starting an effect runs its synchronous part on the caller's goroutine:
//   - Cancel effects cancel their ids immediately
//   - Cancellable effects register their id (cancelling or rejecting an
//     in-flight effect with the same id)
//   - Delay effects arm their timer
//   - Merge starts every child in listed order
//   - Concatenate starts its first child
//
// Everything else (Run leaves, later Concatenate children, delayed bodies)
// runs on goroutines. Because the store starts effects from its single writer
// goroutine, a Cancel returned by a reducer has taken effect before the store
// processes the next action.
//
// CANCELLATION:
//
// Ids are opaque strings, usually one per feature and kind. Cancelling an id
// cancels the context of the effect registered under it and reports the id to
// the runtime's cancel hook; the store uses that hook to purge outputs the
// cancelled effect already emitted but that were not yet processed. Outputs
// emitted after cancellation are dropped by the store under its queue lock.
// Cancelling an id with nothing in flight leaves the registry untouched.
//
// FAILURE:
//
// Effects have no error channel. Work that can fail reports the failure as a
// value in its output. A leaf that panics is recovered and logged.
package effect
