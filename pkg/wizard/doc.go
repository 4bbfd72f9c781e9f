// Package wizard renders one page of a multi-step form at a time. A Form owns
// the ordered pages, the index of the active page, the values accumulated
// across steps and the status of the final submission. Pages receive a Props
// value carrying the navigation operations (Submit, Next, Previous, Edit), the
// submission status and a read-only snapshot of the accumulated values.
//
// Navigation is clamped and never fails. Submitting from any page other than
// the last one merges the page values and advances; submitting from the last
// page hands the full accumulated mapping to the configured SubmitHandler and
// tracks the outcome through a single-settlement Submission. When no handler is
// configured the last page only merges values (a no-op terminal step).
package wizard
