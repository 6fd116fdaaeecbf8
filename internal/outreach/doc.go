// Package outreach contains the engine that drives the delivery loop:
// fetch candidates, score them, persist new contacts, send messages at a
// bounded pace, and replay stored records that still lack a confirmed
// delivery. The loop is single-threaded on purpose; durability comes from
// the contact store, not from in-process state.
package outreach
