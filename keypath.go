package settings

import "strings"

// SplitKey parses a dotted lookup key into path segments. A single dot
// separates segments; a run of two or more consecutive dots is an escape
// that contributes the run length minus one literal dots to the current
// segment without splitting.
//
//	SplitKey("a.b.c")          // ["a", "b", "c"]
//	SplitKey("special..name")  // ["special.name"]
//	SplitKey("a...b.c")        // ["a..b", "c"]
//
// Leading and trailing separators produce empty segments, so every key,
// including "", yields at least one segment.
func SplitKey(key string) []string {
	var segments []string
	var segment strings.Builder
	for i := 0; i < len(key); i++ {
		if key[i] != '.' {
			segment.WriteByte(key[i])
			continue
		}
		run := 1
		for i+run < len(key) && key[i+run] == '.' {
			run++
		}
		if run == 1 {
			segments = append(segments, segment.String())
			segment.Reset()
		} else {
			segment.WriteString(strings.Repeat(".", run-1))
		}
		i += run - 1
	}
	return append(segments, segment.String())
}

// JoinKey assembles a lookup key from path segments, escaping literal dots
// by doubling them so SplitKey recovers the original segments.
func JoinKey(segments ...string) string {
	if len(segments) == 0 {
		return ""
	}
	escaped := make([]string, len(segments))
	for i, segment := range segments {
		escaped[i] = strings.ReplaceAll(segment, ".", "..")
	}
	return strings.Join(escaped, ".")
}
