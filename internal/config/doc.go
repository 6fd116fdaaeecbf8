// Package config provides centralized configuration management for the
// LensPeer daemon. It loads a single JSON file, fills in conservative
// defaults for the outreach loop, and validates the result once at startup
// so that a misconfigured process fails before its first cycle.
package config
