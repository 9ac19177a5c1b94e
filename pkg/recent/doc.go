// Package recent keeps a paginated listing of recently submitted jobs.
//
// A Feed is refreshed on demand or on a schedule.Schedule via Watch, and
// grows one page at a time with LoadMore.
package recent
