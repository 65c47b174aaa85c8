// Package store defines the composite persistence interface and is the
// parent of the concrete backends: memory (tests and single-process
// setups), redis (shared state across processes), and bun (SQL history
// with relational queries).
package store
