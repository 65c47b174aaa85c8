// Package schedule runs automatic sorts on cron expressions.
//
// An [Entry] names a site and a schedule ("*/5 * * * *", "@every 30s",
// parsed by github.com/robfig/cron/v3). The [Scheduler] ticks, finds due
// entries, and starts sorts through a [TriggerFunc] supplied by the root
// Sorter. A sort denied by the per-site gate is skipped and the entry
// fires again on its next slot.
package schedule
