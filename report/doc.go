// Package report defines the persistent record of sort invocations.
//
// A [Report] captures one sort's outcome: units drained, placements in
// execution order, and the leftovers returned to the input container.
// [Store] is the persistence interface backends implement; [Service]
// offers record/history/trim operations over it.
//
// Reports persist outcomes, not state: container contents are owned by
// the host environment and are never stored between sessions.
package report
