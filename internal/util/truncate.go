// Package util holds small helpers shared by the Google clients and handlers.
package util

import "fmt"

// DefaultLogMaxLen bounds provider response bodies copied into logs (1KB).
const DefaultLogMaxLen = 1024

// DefaultMessageMaxLen bounds provider text echoed back to API clients.
const DefaultMessageMaxLen = 300

// TruncateLog truncates long strings, noting the original size.
func TruncateLog(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}

// TruncateMessage shortens provider text for inclusion in an error message.
func TruncateMessage(s string) string {
	return TruncateLog(s, DefaultMessageMaxLen)
}
