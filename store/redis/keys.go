package redis

// Redis key naming conventions for autosort data.
// All keys are prefixed with "autosort:" to avoid collisions.

const keyPrefix = "autosort:"

// ── Report keys ──

// reportKey returns the key for a report entity: autosort:report:{id}
func reportKey(id string) string { return keyPrefix + "report:" + id }

// reportsKey is the Sorted Set of all report IDs scored by FinishedAt.
const reportsKey = keyPrefix + "reports"

// siteReportsKey returns the per-site Sorted Set: autosort:reports:site:{site}
func siteReportsKey(site string) string { return keyPrefix + "reports:site:" + site }

// ── Schedule keys ──

// scheduleKey returns the key for a schedule entity: autosort:schedule:{id}
func scheduleKey(id string) string { return keyPrefix + "schedule:" + id }

// scheduleIDsKey is the Set tracking all schedule IDs for enumeration.
const scheduleIDsKey = keyPrefix + "schedule_ids"

// scheduleNamesKey maps schedule names to IDs for duplicate detection.
const scheduleNamesKey = keyPrefix + "schedule_names"
