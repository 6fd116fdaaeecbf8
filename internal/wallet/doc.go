// Package wallet maintains a reference catalog of wallet applications and
// the chains they support. The catalog is advisory data synced on the side
// of the outreach loop; a failed sync never blocks message delivery.
package wallet
