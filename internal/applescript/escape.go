package applescript

import "strings"

// EscapeString makes s safe to embed inside a double-quoted AppleScript
// string literal. Backslashes are escaped before quotes — the other order
// would double-escape the backslash that protects each quote.
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// ShellQuote wraps s in single quotes for a POSIX shell command line.
// This is the outer quoting boundary, independent from EscapeString:
// a value may need both when an AppleScript literal is carried inside
// a shell command.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
