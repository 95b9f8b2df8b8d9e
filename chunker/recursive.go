package chunker

import "strings"

// recursiveSplit breaks text into pieces no longer than chunkSize by
// trying each separator in order. Parts split on a separator are
// greedily merged back together while they fit, and any part still too
// long recurses with the remaining separators. Adjacent chunks share
// up to overlap characters of trailing context.
func recursiveSplit(text string, seps []string, chunkSize, overlap int) []string {
	parts := splitBounded(text, seps, chunkSize)
	return applyOverlap(parts, overlap)
}

func splitBounded(text string, seps []string, chunkSize int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= chunkSize {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardSplit(text, chunkSize)
	}

	sep := seps[0]
	rest := seps[1:]
	if !strings.Contains(text, sep) {
		return splitBounded(text, rest, chunkSize)
	}

	var out []string
	var buf strings.Builder
	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			out = append(out, s)
		}
		buf.Reset()
	}

	for _, part := range strings.Split(text, sep) {
		if part == "" {
			continue
		}
		if len(part) > chunkSize {
			flush()
			out = append(out, splitBounded(part, rest, chunkSize)...)
			continue
		}
		if buf.Len() > 0 && buf.Len()+len(sep)+len(part) > chunkSize {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteString(sep)
		}
		buf.WriteString(part)
	}
	flush()
	return out
}

// hardSplit is the last resort when no separator applies: fixed-width
// windows, preferring to break at a space near the boundary.
func hardSplit(text string, chunkSize int) []string {
	var out []string
	for len(text) > chunkSize {
		cut := chunkSize
		if idx := strings.LastIndexByte(text[:chunkSize], ' '); idx > chunkSize/2 {
			cut = idx
		}
		out = append(out, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// applyOverlap prepends the tail of each chunk to its successor so
// context spanning a boundary survives retrieval. The tail is trimmed
// back to a word boundary where one exists.
func applyOverlap(parts []string, overlap int) []string {
	if overlap <= 0 || len(parts) < 2 {
		return parts
	}
	out := make([]string, len(parts))
	out[0] = parts[0]
	for i := 1; i < len(parts); i++ {
		tail := parts[i-1]
		if len(tail) > overlap {
			tail = tail[len(tail)-overlap:]
			if idx := strings.IndexByte(tail, ' '); idx >= 0 && idx < len(tail)-1 {
				tail = tail[idx+1:]
			}
		}
		out[i] = tail + "\n" + parts[i]
	}
	return out
}
