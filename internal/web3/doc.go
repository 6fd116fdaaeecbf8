// Package web3 houses blockchain connectivity utilities for LensPeer: the
// YAML chain registry and lightweight RPC probing used to verify that the
// chains wallets advertise are known and reachable.
package web3
