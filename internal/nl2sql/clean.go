package nl2sql

import "strings"

// CleanSQL normalizes raw generator output into a bare statement: fenced-code
// markers are removed, everything from the first blank line after content is
// dropped (models like to append explanations), and a single trailing
// semicolon is stripped.
func CleanSQL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	kept := make([]string, 0, 8)
	for _, line := range strings.Split(trimmed, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "```") {
			continue
		}
		if stripped == "" {
			if len(kept) > 0 {
				break
			}
			continue
		}
		kept = append(kept, line)
	}

	sql := strings.TrimSpace(strings.Join(kept, "\n"))
	if strings.HasSuffix(sql, ";") {
		sql = strings.TrimSpace(strings.TrimSuffix(sql, ";"))
	}
	return sql
}
