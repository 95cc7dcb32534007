package flow

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

const (
	toolArgumentsLogLimit = 1024
	toolResultLogLimit    = 200
)

func formatToolArgumentsForLog(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	return truncateForLog(strings.TrimSpace(string(raw)), toolArgumentsLogLimit)
}

func formatToolResultForLog(result string) string {
	return truncateForLog(result, toolResultLogLimit)
}

// truncateForLog cuts s to at most limit bytes without splitting a rune.
func truncateForLog(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...(truncated)"
}
