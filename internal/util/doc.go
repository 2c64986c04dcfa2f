// Package util provides string helpers shared by the engine and its transports.
//
// Key utilities:
//   - SafeTruncate: truncates strings on a rune boundary
//   - ProviderMessage: bounds provider-supplied messages before they reach errors and logs
//   - Fingerprint: a short non-reversible identifier for a secret, safe to log
package util
