// Package helpers classifies redirect URL hosts.
//
// Plain http redirect URLs are only accepted for loopback hosts; see IsLoopbackHostname.
package helpers
