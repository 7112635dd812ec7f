// Package planner runs the daily planning pipeline.
//
// A run resolves the Calendar, Tasks and Gmail credentials one after the
// other, fetches events, tasks and the weather forecast concurrently,
// generates the plan and mails it. Every external call has its own timeout.
// The first error aborts the run and nothing is sent; the error is a
// *StageError naming the stage that failed.
//
// The pipeline only depends on small interfaces, so each collaborator can
// be replaced by a fake in tests.
package planner
