// Package store holds the single process-wide application state and runs the
// reducer over it.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// The store processes every action in one goroutine. This ensures:
//   - Reducers never run concurrently with each other
//   - Reducers never re-enter the store
//   - Actions are reduced in the order they were enqueued
//
// Action Processing Flow:
//  1. Actions are enqueued to a FIFO queue, from the UI (Send) or from
//     running effects
//  2. Run() (or Next()) dequeues one action at a time
//  3. The reducer mutates the state and returns an effect
//  4. Observers see the new state
//  5. The effect is started on the store's runtime; its synchronous part
//     (cancellation, registration, timers) completes before the next action
//     is dequeued, its outputs re-enter the queue
//
// Cancellation is ordered with reduction: when a reducer cancels an id, every
// output already queued by effects under that id is purged, and outputs
// emitted afterwards are dropped under the queue lock. A late result of a
// cancelled effect therefore never reaches a reducer.
//
// State is owned by the store. Observers receive it after each reduction and
// must treat it as read-only.
package store
