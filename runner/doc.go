// Package runner executes named background tasks on a bounded worker
// pool, retrying transient failures with exponential backoff. Callers
// get a Handle per submission to await completion and inspect the
// final error.
package runner
