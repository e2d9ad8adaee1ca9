package utils

// ellipsis is appended to truncated strings.
const ellipsis = "…"

// TruncateRunes shortens s to at most maxRunes runes, appending an ellipsis
// when anything was cut. Multi-byte characters are never split.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}

	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + ellipsis
}
