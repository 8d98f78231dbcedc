// Package agent implements the conversational loop over processed
// recordings: a tool registry with a hard invocation boundary, a
// bounded tool-calling turn loop, and a depth-limited iterative
// research capability.
package agent
