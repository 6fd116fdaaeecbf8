// Package contact defines the outreach ledger: candidate profiles pulled
// from the graph, the scoring model that ranks them, and the append-once
// store that makes message dispatch idempotent across restarts.
package contact
