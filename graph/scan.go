package graph

import (
	"strconv"
	"unicode"
)

// ScanInts extracts whitespace-separated decimal integers from s, reading
// each as an optional sign followed by digits. Scanning stops at the first
// position where no integer can be read, so "4abc" yields 4 and then stops.
// At most limit values are read; limit < 0 means no limit. complete reports
// whether scanning reached the end of s without hitting an unreadable token.
func ScanInts(s string, limit int) (values []int, complete bool) {
	i := 0
	for limit < 0 || len(values) < limit {
		for i < len(s) && unicode.IsSpace(rune(s[i])) {
			i++
		}
		if i == len(s) {
			return values, true
		}

		start := i
		if s[i] == '+' || s[i] == '-' {
			i++
		}
		digits := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == digits {
			return values, false
		}
		v, err := strconv.Atoi(s[start:i])
		if err != nil {
			return values, false
		}
		values = append(values, v)
	}
	return values, true
}
