// Package highlight marks search matches in rendered transcript text. Glamour
// output is full of ANSI escapes, so matching runs only over the plain
// segments between escape sequences.
package highlight

import (
	"regexp"
	"strings"
)

var ansiSeq = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

// Result carries the marked text plus per-line match metadata for jumping.
type Result struct {
	Text  string
	Count int
	Lines []int
}

// Apply wraps every case-insensitive occurrence of query with mark, skipping
// ANSI escape sequences. An empty query returns the input untouched.
func Apply(input, query string, mark func(string) string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{Text: input}
	}
	if mark == nil {
		mark = func(s string) string { return s }
	}

	var out strings.Builder
	res := Result{}
	for lineNo, line := range strings.SplitAfter(input, "\n") {
		marked, n := markLine(line, query, mark)
		out.WriteString(marked)
		if n > 0 {
			res.Count += n
			res.Lines = append(res.Lines, lineNo)
		}
	}
	res.Text = out.String()
	return res
}

func markLine(line, query string, mark func(string) string) (string, int) {
	spans := ansiSeq.FindAllStringIndex(line, -1)
	if len(spans) == 0 {
		return markPlain(line, query, mark)
	}

	var out strings.Builder
	total := 0
	pos := 0
	for _, span := range spans {
		marked, n := markPlain(line[pos:span[0]], query, mark)
		out.WriteString(marked)
		out.WriteString(line[span[0]:span[1]])
		total += n
		pos = span[1]
	}
	marked, n := markPlain(line[pos:], query, mark)
	out.WriteString(marked)
	return out.String(), total + n
}

func markPlain(s, query string, mark func(string) string) (string, int) {
	if s == "" {
		return s, 0
	}
	lower := strings.ToLower(s)
	q := strings.ToLower(query)

	var out strings.Builder
	count := 0
	pos := 0
	for {
		idx := strings.Index(lower[pos:], q)
		if idx < 0 {
			out.WriteString(s[pos:])
			break
		}
		start := pos + idx
		end := start + len(q)
		out.WriteString(s[pos:start])
		out.WriteString(mark(s[start:end]))
		count++
		pos = end
	}
	if count == 0 {
		return s, 0
	}
	return out.String(), count
}
