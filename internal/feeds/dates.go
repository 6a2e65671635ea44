package feeds

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateParser converts a source-specific raw date string into a calendar
// date. The boolean result reports whether the string was actually
// understood; when false the returned date is the current date and the
// caller should count a parse fallback. Parsers never return an error —
// falling back to today is the designed default.
type DateParser interface {
	Parse(raw string, now time.Time) (time.Time, bool)
}

// ParserRegistry maps source names to their date parsing rule. The set of
// rules is open: new sources register their own parser. Sources without a
// registered parser get the current date.
type ParserRegistry struct {
	parsers map[string]DateParser
}

// NewParserRegistry creates an empty registry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{parsers: make(map[string]DateParser)}
}

// Register sets the parser for a source name, replacing any previous one.
func (r *ParserRegistry) Register(source string, p DateParser) {
	r.parsers[source] = p
}

// Normalize parses raw according to the rule registered for source.
// The second result is true when the normalizer fell back to the current
// date because the string was not understood.
func (r *ParserRegistry) Normalize(source, raw string, now time.Time) (time.Time, bool) {
	p, ok := r.parsers[source]
	if !ok {
		return Day(now), true
	}
	date, parsed := p.Parse(raw, now)
	return date, !parsed
}

var relativeRe = regexp.MustCompile(`(?i)(\d+)\s*(day|hour|minute)s?\s+ago`)

// RelativeParser handles "N days ago" / "N hours ago" phrasing.
// Day offsets subtract N days; hour and minute offsets round to the
// current date, discarding sub-day precision.
type RelativeParser struct{}

func (RelativeParser) Parse(raw string, now time.Time) (time.Time, bool) {
	m := relativeRe.FindStringSubmatch(raw)
	if m == nil {
		return Day(now), false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Day(now), false
	}
	switch strings.ToLower(m[2]) {
	case "day":
		return Day(now).AddDate(0, 0, -n), true
	default: // hour, minute
		return Day(now), true
	}
}

// absoluteLayouts are tried in order by AbsoluteParser.
var absoluteLayouts = []string{
	"2006-01-02T15:04:05Z",
	"2006-01-02",
}

// AbsoluteParser handles ISO-8601 timestamps and plain YYYY-MM-DD dates.
type AbsoluteParser struct{}

func (AbsoluteParser) Parse(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Day(t), true
		}
	}
	return Day(now), false
}

// DefaultRegistry returns a registry wired for the built-in sources.
func DefaultRegistry() *ParserRegistry {
	r := NewParserRegistry()
	r.Register(SourceHackerNews, RelativeParser{})
	r.Register(SourceSecurityWeek, AbsoluteParser{})
	return r
}
