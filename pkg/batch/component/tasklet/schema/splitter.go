// Package schema applies SQL scripts that are split into batches by separator
// lines such as "GO". Batches run in order on one tx.Session, either stopping
// at the first failure or attempting every batch and reporting all failures.
package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// DefaultSeparator is the batch separator keyword used when none is configured.
const DefaultSeparator = "GO"

// Batch is one executable unit of a script.
type Batch struct {
	// Index is the 0-based position of the batch in its Plan.
	Index int
	// Text is the trimmed batch text without separator lines.
	Text string
	// Repeat is the number of times the batch runs, at least 1.
	Repeat int
	// Line is the 1-based line of the source script where the batch text starts.
	Line int
}

// Plan is the ordered list of batches of a script.
type Plan []Batch

// Executions returns the total number of executions the plan performs.
func (p Plan) Executions() int {
	n := 0
	for _, b := range p {
		n += b.Repeat
	}
	return n
}

// Script renders the plan back to script text, separating batches with keyword lines.
// A batch repeated more than once gets "keyword n". Splitting the result with the
// same keyword yields a plan with identical Text and Repeat values.
func (p Plan) Script(keyword string) string {
	var sb strings.Builder
	for _, b := range p {
		sb.WriteString(b.Text)
		sb.WriteByte('\n')
		sb.WriteString(keyword)
		if b.Repeat > 1 {
			sb.WriteByte(' ')
			sb.WriteString(strconv.Itoa(b.Repeat))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Separator matches batch separator lines.
// A separator line holds only the keyword, in any letter case, surrounded by
// optional whitespace and optionally followed by a positive repeat count.
type Separator struct {
	keyword string
	re      *regexp.Regexp
}

// NewSeparator compiles a Separator for keyword.
// The keyword must be non-empty and must not contain whitespace.
func NewSeparator(keyword string) (*Separator, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("batch separator keyword is empty")
	}
	if strings.IndexFunc(keyword, unicode.IsSpace) >= 0 {
		return nil, fmt.Errorf("batch separator keyword %q contains whitespace", keyword)
	}
	re, err := regexp.Compile(`(?i)^\s*` + regexp.QuoteMeta(keyword) + `\s*([1-9][0-9]*)?\s*$`)
	if err != nil {
		return nil, fmt.Errorf("invalid batch separator %q: %w", keyword, err)
	}
	return &Separator{keyword: keyword, re: re}, nil
}

// MustSeparator is like NewSeparator but panics on error.
func MustSeparator(keyword string) *Separator {
	sep, err := NewSeparator(keyword)
	if err != nil {
		panic(err)
	}
	return sep
}

// Keyword returns the separator keyword as configured.
func (s *Separator) Keyword() string {
	return s.keyword
}

// Match reports whether line is a separator line and returns its repeat count.
// A line without a count repeats once. A count too large for an int is not a separator.
func (s *Separator) Match(line string) (repeat int, ok bool) {
	m := s.re.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	if m[1] == "" {
		return 1, true
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Split splits script into a Plan on separator lines.
// Both "\n" and "\r\n" line endings are accepted. The repeat count of a
// separator line ("GO 3") applies to the batch that precedes it, never to the
// one that follows. Batch text is trimmed and empty batches are dropped,
// together with any repeat count given for them, so a leading "GO n" has no
// effect.
func Split(script string, sep *Separator) Plan {
	var (
		plan  Plan
		lines []string
		start int
	)

	flush := func(repeat int) {
		text := strings.TrimSpace(strings.Join(lines, "\n"))
		if text != "" {
			plan = append(plan, Batch{
				Index:  len(plan),
				Text:   text,
				Repeat: repeat,
				Line:   start,
			})
		}
		lines = lines[:0]
		start = 0
	}

	for i, line := range strings.Split(script, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if repeat, ok := sep.Match(line); ok {
			flush(repeat)
			continue
		}
		if start == 0 && strings.TrimSpace(line) != "" {
			start = i + 1
		}
		lines = append(lines, line)
	}
	flush(1)

	return plan
}
