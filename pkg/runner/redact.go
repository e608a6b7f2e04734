package runner

import (
	"regexp"
	"sort"
	"strings"
)

// Placeholder replaces every redacted value.
const Placeholder = "***"

var (
	authFlagPattern = regexp.MustCompile(`(-[UA])\s+\S+`)
	uncPattern      = regexp.MustCompile(`\\\\[^\\\s"]+\\[^\s"]*`)
	slashSharePat   = regexp.MustCompile(`//[^/\s"]+/[^\s"]*`)
)

// Redact removes credentials from text. Structural patterns run first
// (auth flag token, then share paths); literal secrets are replaced last,
// longest first, so a value missed by the patterns still never survives.
// A secret containing whitespace is also replaced fragment by fragment,
// since the auth flag pattern stops at the first space.
func Redact(text string, secrets ...string) string {
	if text == "" {
		return text
	}
	text = authFlagPattern.ReplaceAllString(text, "$1 "+Placeholder)
	text = uncPattern.ReplaceAllString(text, `\\`+Placeholder)
	text = slashSharePat.ReplaceAllString(text, "//"+Placeholder)

	for _, s := range literals(secrets) {
		text = strings.ReplaceAll(text, s, Placeholder)
	}
	return text
}

// RedactArgs returns a copy of argv with the value following -U or -A
// replaced by the placeholder.
func RedactArgs(argv []string) []string {
	out := make([]string, len(argv))
	copy(out, argv)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "-U" || out[i] == "-A" {
			out[i+1] = Placeholder
			i++
		}
	}
	return out
}

func literals(secrets []string) []string {
	seen := make(map[string]bool)
	var lits []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			lits = append(lits, s)
		}
	}
	for _, s := range secrets {
		add(s)
		if fields := strings.Fields(s); len(fields) > 1 {
			for _, f := range fields {
				add(f)
			}
		}
	}
	sort.SliceStable(lits, func(i, j int) bool { return len(lits[i]) > len(lits[j]) })
	return lits
}
