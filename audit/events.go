package audit

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionSortStarted      = "sort.started"
	ActionSortCompleted    = "sort.completed"
	ActionSortFailed       = "sort.failed"
	ActionStackPlaced      = "sort.stack_placed"
	ActionLeftoverReturned = "sort.leftover_returned"
	ActionScheduleFired    = "schedule.fired"
)

// Audit event categories group related actions.
const (
	CategorySort     = "autosort.sort"
	CategoryRouting  = "autosort.routing"
	CategorySchedule = "autosort.schedule"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceSort     = "sort"
	ResourceStack    = "stack"
	ResourceSchedule = "schedule_entry"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionSortStarted,
		ActionSortCompleted,
		ActionSortFailed,
		ActionStackPlaced,
		ActionLeftoverReturned,
		ActionScheduleFired,
	}
}
