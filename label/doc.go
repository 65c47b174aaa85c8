// Package label implements label discovery and the category index.
//
// A [Label] declares which category tag a container accepts; an empty tag
// is the catch-all marker. [BuildIndex] turns the bindings a site
// enumerates into an [Index]: a tag -> ordered-container mapping plus the
// catch-all list. The index is built at the start of every sort and
// discarded at the end: labels are re-scanned on each invocation, never
// cached across calls.
package label
