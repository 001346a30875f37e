// Package parser turns sectioned free-text completion responses into
// structured data.
//
// A response is a sequence of lines. A line starting with a known header
// token (e.g. "CORE_ENTITIES:") either carries its value inline
// ("VALIDATION_STATUS: PASS") or opens a block whose following lines are
// collected until the next header. Unrecognized headers close the current
// block, and lines outside any block are dropped. Parsing never fails:
// missing sections fall back to zero values in the typed decoders.
package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind selects how a section's value is read.
type Kind int

const (
	// Scalar reads the rest of the header line as a string.
	Scalar Kind = iota
	// Number reads the rest of the header line as a float; 0 when malformed.
	Number
	// Score reads "N - explanation" and keeps the integer N; 0 when malformed.
	Score
	// Verdict reads "STATUS - explanation" into a Verdict.
	Verdict
	// List collects bullet lines ("-" or "•") following the header.
	List
	// Text collects raw non-empty lines following the header, skipping
	// code fences.
	Text
	// Pairs collects "- Key: Value" bullet lines into a map.
	Pairs
	// Keyed reads the value of the first following line containing Entry.Key.
	Keyed
)

func (k Kind) inline() bool {
	return k == Scalar || k == Number || k == Score || k == Verdict
}

// Entry maps a header token to a field.
type Entry struct {
	Token string
	Field string
	Kind  Kind
	// Key is the label looked for by Keyed sections, e.g. "Primary Domain:".
	Key string
}

// Schema is an ordered set of entries. When tokens share a prefix the
// first entry wins.
type Schema []Entry

// VerdictValue is a status with an optional explanation.
type VerdictValue struct {
	Status      string `json:"status" yaml:"status"`
	Explanation string `json:"explanation" yaml:"explanation"`
}

// Sections holds every value found, keyed by Entry.Field. A field is
// present in its map only if its header appeared in the response.
type Sections struct {
	Scalars  map[string]string
	Numbers  map[string]float64
	Lists    map[string][]string
	Texts    map[string]string
	Pairs    map[string]map[string]string
	Verdicts map[string]VerdictValue
}

func newSections() Sections {
	return Sections{
		Scalars:  map[string]string{},
		Numbers:  map[string]float64{},
		Lists:    map[string][]string{},
		Texts:    map[string]string{},
		Pairs:    map[string]map[string]string{},
		Verdicts: map[string]VerdictValue{},
	}
}

// Has reports whether the field's header appeared.
func (s Sections) Has(field string) bool {
	if _, ok := s.Scalars[field]; ok {
		return true
	}
	if _, ok := s.Numbers[field]; ok {
		return true
	}
	if _, ok := s.Lists[field]; ok {
		return true
	}
	if _, ok := s.Texts[field]; ok {
		return true
	}
	if _, ok := s.Pairs[field]; ok {
		return true
	}
	_, ok := s.Verdicts[field]
	return ok
}

var headerPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{2,}:`)

// Parse scans text and returns every section found.
func (s Schema) Parse(text string) Sections {
	out := newSections()
	var current *Entry
	inFence := false

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		if current != nil && current.Kind == Text && strings.HasPrefix(line, "```") {
			inFence = !inFence
			continue
		}
		if !inFence {
			if e, ok := s.match(line); ok {
				value := strings.TrimSpace(line[len(e.Token):])
				if e.Kind.inline() {
					out.setInline(e, value)
					continue
				}
				current = e
				out.open(e)
				continue
			}
			if headerPattern.MatchString(line) {
				current = nil
				continue
			}
		}
		if current == nil || (line == "" && current.Kind != Text) {
			continue
		}
		out.add(current, line, strings.TrimRight(raw, " \t\r"), inFence)
	}

	for field, body := range out.Texts {
		out.Texts[field] = strings.TrimRight(body, "\n")
		if out.Texts[field] != "" {
			out.Texts[field] += "\n"
		}
	}
	return out
}

func (s Schema) match(line string) (*Entry, bool) {
	for i := range s {
		if strings.HasPrefix(line, s[i].Token) {
			return &s[i], true
		}
	}
	return nil, false
}

func (out Sections) open(e *Entry) {
	switch e.Kind {
	case List:
		if _, ok := out.Lists[e.Field]; !ok {
			out.Lists[e.Field] = []string{}
		}
	case Text:
		if _, ok := out.Texts[e.Field]; !ok {
			out.Texts[e.Field] = ""
		}
	case Pairs:
		if _, ok := out.Pairs[e.Field]; !ok {
			out.Pairs[e.Field] = map[string]string{}
		}
	}
}

func (out Sections) setInline(e *Entry, value string) {
	switch e.Kind {
	case Scalar:
		out.Scalars[e.Field] = value
	case Number:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			n = 0
		}
		out.Numbers[e.Field] = n
	case Score:
		head, _, _ := strings.Cut(value, "-")
		n, err := strconv.Atoi(strings.TrimSpace(head))
		if err != nil {
			n = 0
		}
		out.Numbers[e.Field] = float64(n)
	case Verdict:
		status, explanation, _ := strings.Cut(value, " - ")
		out.Verdicts[e.Field] = VerdictValue{
			Status:      strings.TrimSpace(status),
			Explanation: strings.TrimSpace(explanation),
		}
	}
}

func (out Sections) add(e *Entry, line, raw string, inFence bool) {
	switch e.Kind {
	case List:
		if item, ok := bullet(line); ok {
			out.Lists[e.Field] = append(out.Lists[e.Field], item)
		}
	case Text:
		if line == "" && !inFence {
			return
		}
		out.Texts[e.Field] += raw + "\n"
	case Pairs:
		item, ok := bullet(line)
		if !ok {
			return
		}
		if k, v, found := strings.Cut(item, ":"); found && strings.TrimSpace(k) != "" {
			out.Pairs[e.Field][strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	case Keyed:
		if _, done := out.Scalars[e.Field]; done {
			return
		}
		if strings.Contains(line, e.Key) {
			_, v, _ := strings.Cut(line, ":")
			out.Scalars[e.Field] = strings.TrimSpace(v)
		}
	}
}

// bullet strips a leading "-" or "•" marker.
func bullet(line string) (string, bool) {
	for _, marker := range []string{"-", "•"} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(line[len(marker):]), true
		}
	}
	return "", false
}
