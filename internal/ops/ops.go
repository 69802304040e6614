// Package ops defines the operation handlers, one file per capability
// family. Each family is a small struct holding its dependencies and a
// Register method that adds its descriptors to the registry.
//
// Handlers share no mutable state with each other except the injected
// caches. Every user-supplied string that ends up inside a generated
// AppleScript or SQL fragment goes through the escaping helpers in
// applescript and dbread — no exceptions.
package ops

import "strings"

// orText substitutes a fallback when a script or query produced nothing.
func orText(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
