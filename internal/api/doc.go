// Package api exposes a read-only REST surface for inspecting outreach
// state: recorded contacts, engine counters, and the wallet reference
// catalog. The outreach loop itself is never driven through this surface.
package api
