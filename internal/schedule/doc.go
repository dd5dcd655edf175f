// Package schedule provides utilities for cron expression handling and
// periodic execution.
//
// Cron functions parse and validate cron expressions and compute upcoming run
// times. RunCron runs a function on every tick of a cron expression.
package schedule
