// Package autosort routes stackable items from an input container into
// labeled output containers by category tag. It is a library, not a
// service: import it, register sites, and trigger sorts as ordinary Go
// calls.
//
// # Quick Start
//
//	s, err := autosort.New(
//	    autosort.WithStore(memStore),
//	    autosort.WithLogger(logger),
//	)
//
//	site := site.NewRegistry("base")
//	site.Add(oreChest, label.Label{Tag: "ore"})
//	site.Add(overflowChest, label.Label{}) // catch-all
//
//	s.RegisterSite(site, inputChest)
//	report, err := s.TriggerSort(ctx, "base")
//
// # Architecture
//
// Each subsystem lives in its own package: label builds the tag index,
// router executes the routing pass, gate serializes sorts per site,
// report records outcomes, schedule fires automatic sorts, event streams
// lifecycle events, and swp/client speak the wire protocol. A composable
// store pattern backs persistence: report and schedule each define a
// store interface and a single backend (memory, redis, bun) implements
// them all.
//
// All entity IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package autosort
