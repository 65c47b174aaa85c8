// Package router implements the routing pass of a sort: drain the input
// container, classify each stack by its category tag, walk the tag's
// destination list (tag-specific containers first, catch-all as
// overflow), and return anything unplaced to the input container.
//
// # Guarantees
//
//   - Conservation: every unit drained ends in exactly one destination or
//     back in the input container. A broken container contract panics
//     rather than silently losing units.
//   - Determinism: stacks are processed in snapshot order, destinations
//     in discovery order.
//   - No blocking: a destination whose advisory lock is held by another
//     actor is skipped for this invocation, never waited on.
//   - No rollback: portions already inserted stay where they landed even
//     if later stacks cannot be placed.
package router
