package rag

import (
	"fmt"
	"strings"
)

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatPageNumber renders a page reference for citation display.
// Integers and digit strings become "Page N". Spreadsheet-style values
// containing "Sheet" lose a leading "Page:" and split on " - " into two
// indented lines. Other strings get a "Page " prefix unless they
// already carry one. Anything else passes through unchanged.
func FormatPageNumber(page interface{}) interface{} {
	switch v := page.(type) {
	case int:
		return fmt.Sprintf("Page %d", v)
	case int64:
		return fmt.Sprintf("Page %d", v)
	case float64:
		// JSON numbers decode as float64.
		if v == float64(int64(v)) {
			return fmt.Sprintf("Page %d", int64(v))
		}
		return page
	case string:
		if strings.Contains(v, "Sheet") {
			trimmed := strings.TrimPrefix(v, "Page:")
			parts := strings.Split(trimmed, " - ")
			if len(parts) == 2 {
				return fmt.Sprintf("\n\t\t%s\n\t\t%s", strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
			}
			return page
		}
		if isDigits(v) {
			return "Page " + v
		}
		if !strings.HasPrefix(v, "Page") {
			return "Page " + v
		}
		return v
	default:
		return page
	}
}
