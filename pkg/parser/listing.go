package parser

import (
	"regexp"
	"strconv"
	"strings"

	"digital.vasic.smbshare/pkg/client"
)

// Tier is one listing-line matcher. It never fails: it either returns an
// entry or reports no match.
type Tier struct {
	Name  string
	Match func(line string) (*client.DirectoryEntry, bool)
}

// Tiers are tried in order; the last one always matches.
var Tiers = []Tier{
	{Name: "pipe-name-first", Match: pipeNameFirst},
	{Name: "pipe-attr-first", Match: pipeAttrFirst},
	{Name: "pipe-fallback", Match: pipeFallback},
	{Name: "space-columns", Match: spaceColumns},
	{Name: "minimal", Match: minimal},
}

var (
	numericPattern   = regexp.MustCompile(`^\d+$`)
	attributePattern = regexp.MustCompile(`^[ADHSRNVCEILOPTU]*$`)
	clockPattern     = regexp.MustCompile(`^\d{1,2}:\d{2}:\d{2}$`)
	footerPattern    = regexp.MustCompile(`(?i)blocks available|blocks of size`)
	whitespace       = regexp.MustCompile(`\s+`)
)

func isNumeric(s string) bool { return numericPattern.MatchString(s) }

// isAttribute reports whether s could be an attribute string. Each flag
// appears at most once.
func isAttribute(s string) bool {
	if !attributePattern.MatchString(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(s[i+1:], s[i]) >= 0 {
			return false
		}
	}
	return true
}

// Layout is the column order of pipe-separated listing lines.
type Layout int

const (
	// LayoutUnknown resolves ambiguous lines by tier order.
	LayoutUnknown Layout = iota
	// LayoutNameFirst is name|size|date|time|attributes.
	LayoutNameFirst
	// LayoutAttrFirst is attributes|size|date|time|name.
	LayoutAttrFirst
)

// DetectLayout decides the column order of a whole listing. The "." and
// ".." rows settle it; otherwise the first line with exactly one
// attribute-like end does.
func DetectLayout(text string) Layout {
	guess := LayoutUnknown
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if !strings.Contains(line, "|") {
			continue
		}
		p := splitPipes(line)
		if len(p) < 5 || !isNumeric(p[1]) {
			continue
		}
		first, last := p[0], p[len(p)-1]
		switch {
		case first == "." || first == "..":
			return LayoutNameFirst
		case last == "." || last == "..":
			return LayoutAttrFirst
		}
		if guess != LayoutUnknown {
			continue
		}
		switch a, b := isAttribute(first), isAttribute(last); {
		case a && !b:
			guess = LayoutAttrFirst
		case b && !a:
			guess = LayoutNameFirst
		}
	}
	return guess
}

func splitPipes(line string) []string {
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseSize(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// pipeNameFirst matches name|size|date|time|attributes.
func pipeNameFirst(line string) (*client.DirectoryEntry, bool) {
	if !strings.Contains(line, "|") {
		return nil, false
	}
	p := splitPipes(line)
	if len(p) < 5 || !isNumeric(p[1]) || !isAttribute(p[4]) {
		return nil, false
	}
	return client.NewDirectoryEntry(p[0], parseSize(p[1]), p[2], p[3], p[4]), true
}

// pipeAttrFirst matches attributes|size|date|time|name, where the name may
// itself contain pipes.
func pipeAttrFirst(line string) (*client.DirectoryEntry, bool) {
	if !strings.Contains(line, "|") {
		return nil, false
	}
	p := splitPipes(line)
	if len(p) < 5 || !isNumeric(p[1]) || !isAttribute(p[0]) {
		return nil, false
	}
	raw := strings.SplitN(line, "|", 5)
	name := strings.TrimSpace(raw[4])
	return client.NewDirectoryEntry(name, parseSize(p[1]), p[2], p[3], p[0]), true
}

// pipeFallback keeps any other pipe line as an opaque name.
func pipeFallback(line string) (*client.DirectoryEntry, bool) {
	if !strings.Contains(line, "|") {
		return nil, false
	}
	return client.NewDirectoryEntry(line, 0, "", "", ""), true
}

// spaceColumns matches smbclient's aligned layout:
//
//	<name...> <attr> <size> <Wkd> <Mon> <dd> <hh:mm:ss> <yyyy>
//
// Fields are taken from the right so names may contain spaces. Beyond the
// eight-token minimum the clock column must read hh:mm:ss and the size
// column must be numeric; lines failing either check fall through to
// minimal rather than yielding an entry with garbage size or time.
func spaceColumns(line string) (*client.DirectoryEntry, bool) {
	if strings.Contains(line, "|") {
		return nil, false
	}
	tokens := strings.Split(strings.TrimSpace(whitespace.ReplaceAllString(line, " ")), " ")
	n := len(tokens)
	if n < 8 {
		return nil, false
	}
	year := tokens[n-1]
	clock := tokens[n-2]
	day := tokens[n-3]
	month := tokens[n-4]
	weekday := tokens[n-5]
	size := tokens[n-6]
	attr := tokens[n-7]
	if !clockPattern.MatchString(clock) || !isNumeric(size) {
		return nil, false
	}

	name := strings.Join(tokens[:n-7], " ")
	date := strings.Join([]string{weekday, month, day, clock, year}, " ")
	return client.NewDirectoryEntry(name, parseSize(size), date, clock, attr), true
}

// minimal turns the whole line into a name.
func minimal(line string) (*client.DirectoryEntry, bool) {
	return client.NewDirectoryEntry(line, 0, "", "", ""), true
}

// ParseLine runs the tiers over a single trimmed line.
func ParseLine(line string) *client.DirectoryEntry {
	return ParseLineLayout(line, LayoutUnknown)
}

// ParseLineLayout is ParseLine for a line of a listing whose column order
// is known. With LayoutAttrFirst the attribute-first tier is tried before
// the name-first one.
func ParseLineLayout(line string, layout Layout) *client.DirectoryEntry {
	tiers := Tiers
	if layout == LayoutAttrFirst {
		tiers = append([]Tier{Tiers[1], Tiers[0]}, Tiers[2:]...)
	}
	for _, tier := range tiers {
		if e, ok := tier.Match(line); ok {
			return e
		}
	}
	return nil
}

// ParseLines parses every non-blank line of ls output. No entries are
// dropped here; see FilterNoise.
func ParseLines(text string) []*client.DirectoryEntry {
	layout := DetectLayout(text)
	var entries []*client.DirectoryEntry
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if e := ParseLineLayout(line, layout); e != nil {
			entries = append(entries, e)
		}
	}
	return entries
}

// IsNoise reports whether an entry is a self/parent reference, a stray
// number, or a summary footer.
func IsNoise(e *client.DirectoryEntry) bool {
	if e == nil {
		return true
	}
	if e.Name == "." || e.Name == ".." {
		return true
	}
	if isNumeric(e.Name) {
		return true
	}
	return footerPattern.MatchString(e.Name) || footerPattern.MatchString(e.Date)
}

// FilterNoise drops noise entries, keeping order. It is idempotent.
func FilterNoise(entries []*client.DirectoryEntry) []*client.DirectoryEntry {
	out := make([]*client.DirectoryEntry, 0, len(entries))
	for _, e := range entries {
		if !IsNoise(e) {
			out = append(out, e)
		}
	}
	return out
}

// ParseListing parses and filters ls output.
func ParseListing(text string) []*client.DirectoryEntry {
	return FilterNoise(ParseLines(text))
}
