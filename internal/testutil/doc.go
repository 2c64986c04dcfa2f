// Package testutil provides testing utilities for the twitch-oauth module: a
// controllable clock and builders for canned provider payloads.
package testutil
