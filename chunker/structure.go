package chunker

import "strings"

// splitSections cuts a plan document at major section breaks: the
// "====" divider rule, the "---" rule, and standalone heading lines.
// Pipe-table rows stay attached to the lines around them so a KPI or
// action table is never split mid-row.
func splitSections(text string) []string {
	lines := strings.Split(text, "\n")

	var sections []string
	var buf []string
	flush := func() {
		sec := strings.TrimSpace(strings.Join(buf, "\n"))
		if sec != "" {
			sections = append(sections, sec)
		}
		buf = buf[:0]
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isDivider(trimmed) {
			flush()
			continue
		}
		if isHeading(trimmed) && len(buf) > 0 && !inTable(lines, i) {
			flush()
		}
		buf = append(buf, line)
	}
	flush()
	return sections
}

// isDivider reports whether a line is a horizontal rule separating
// sections. Markdown table separator rows like |---|---| do not count.
func isDivider(line string) bool {
	if len(line) < 3 || strings.Contains(line, "|") {
		return false
	}
	return strings.Count(line, "=") == len(line) || strings.Count(line, "-") == len(line)
}

// isHeading reports whether a line looks like a section heading:
// markdown hashes, "STRATEGIC OBJECTIVE n" banners, or short all-caps
// lines with no table pipes.
func isHeading(line string) bool {
	if line == "" || strings.Contains(line, "|") {
		return false
	}
	if strings.HasPrefix(line, "#") {
		return true
	}
	upper := strings.ToUpper(line)
	if strings.HasPrefix(upper, "STRATEGIC OBJECTIVE") || strings.HasPrefix(upper, "ACTION PLAN") {
		return true
	}
	return len(line) <= 60 && line == upper && hasLetter(line)
}

// inTable reports whether the line at idx sits inside a pipe table,
// which would make a heading-looking cell value a false positive.
func inTable(lines []string, idx int) bool {
	if idx > 0 && strings.Contains(lines[idx-1], "|") {
		return true
	}
	return idx+1 < len(lines) && strings.Contains(lines[idx+1], "|")
}

func containsTable(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		if strings.Count(line, "|") >= 2 {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' {
			return true
		}
	}
	return false
}
