// Package reply turns a freeform assistant response into the structured
// triage record the UI renders as a card. Parsing is deterministic and pure:
// the same text always yields the same record, and text that matches no
// section simply yields an empty one.
package reply

import (
	"regexp"
	"strings"
)

// StructuredReply is the parsed form of one assistant response. Every field
// is optional; an absent field means the reply carried no such section.
type StructuredReply struct {
	Severity           string   `json:"severity,omitempty"`
	ImmediateNeed      string   `json:"immediateNeed,omitempty"`
	SeeDoctorIf        []string `json:"seeDoctorIf,omitempty"`
	NextSteps          []string `json:"nextSteps,omitempty"`
	PossibleConditions []string `json:"possibleConditions,omitempty"`
	Disclaimer         string   `json:"disclaimer,omitempty"`
}

// Empty reports whether no section was recognized at all.
func (r StructuredReply) Empty() bool {
	return r.Severity == "" && r.ImmediateNeed == "" && r.Disclaimer == "" &&
		r.SeeDoctorIf == nil && r.NextSteps == nil && r.PossibleConditions == nil
}

type section int

const (
	sectionNone section = iota
	sectionSeverity
	sectionImmediateNeed
	sectionSeeDoctorIf
	sectionNextSteps
	sectionPossibleConditions
	sectionDisclaimer
)

// headerPatterns is matched in fixed priority order against each cleaned
// line. The pattern must consume the whole header phrase so that a bullet
// like "- chest pain" can never be mistaken for a header.
var headerPatterns = []struct {
	section section
	scalar  bool
	re      *regexp.Regexp
}{
	{sectionSeverity, true, regexp.MustCompile(`(?i)^severity\b(.*)$`)},
	{sectionImmediateNeed, true, regexp.MustCompile(`(?i)^immediate need(?: for attention)?\b(.*)$`)},
	{sectionSeeDoctorIf, false, regexp.MustCompile(`(?i)^see a doctor if\b.*$`)},
	{sectionNextSteps, false, regexp.MustCompile(`(?i)^next steps\b.*$`)},
	{sectionPossibleConditions, false, regexp.MustCompile(`(?i)^possible conditions\b.*$`)},
	{sectionDisclaimer, true, regexp.MustCompile(`(?i)^disclaimer\b(.*)$`)},
}

var bulletRe = regexp.MustCompile(`^(?:[-•*]|\d+[.)])\s*(.*)$`)

// decoration characters stripped from around a line before header matching,
// so "**Severity:** High" and "### Next Steps" still match.
const leadingDecoration = "#*_> \t"
const trailingDecoration = "*_ \t"

// Parse scans text line by line and returns the structured record. Lines
// before the first recognized header, and non-bullet lines inside a list
// section, are dropped. A repeated header overwrites the earlier section
// (last occurrence wins).
func Parse(text string) StructuredReply {
	var out StructuredReply
	current := sectionNone

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		cleaned := strings.TrimLeft(line, leadingDecoration)
		cleaned = strings.TrimRight(cleaned, trailingDecoration)

		if sec, value, ok := matchHeader(cleaned); ok {
			current = sec
			switch sec {
			case sectionSeverity:
				out.Severity = value
			case sectionImmediateNeed:
				out.ImmediateNeed = value
			case sectionDisclaimer:
				out.Disclaimer = value
			case sectionSeeDoctorIf:
				out.SeeDoctorIf = []string{}
			case sectionNextSteps:
				out.NextSteps = []string{}
			case sectionPossibleConditions:
				out.PossibleConditions = []string{}
			}
			continue
		}

		// Only bullet lines contribute to an open list section; everything
		// else is dropped without error.
		item, ok := matchBullet(line)
		if !ok {
			continue
		}
		switch current {
		case sectionSeeDoctorIf:
			out.SeeDoctorIf = append(out.SeeDoctorIf, item)
		case sectionNextSteps:
			out.NextSteps = append(out.NextSteps, item)
		case sectionPossibleConditions:
			out.PossibleConditions = append(out.PossibleConditions, item)
		}
	}

	return out
}

// matchHeader tries each header pattern in priority order. For scalar
// sections the remainder of the line, with the header and its punctuation
// stripped, is returned as the value.
func matchHeader(line string) (section, string, bool) {
	for _, p := range headerPatterns {
		m := p.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if !p.scalar {
			return p.section, "", true
		}
		value := strings.TrimSpace(strings.TrimLeft(m[1], ":*_-–— \t"))
		value = strings.TrimSpace(strings.TrimRight(value, trailingDecoration))
		return p.section, value, true
	}
	return sectionNone, "", false
}

// matchBullet strips a leading bullet marker (-, •, * or "1." style) and
// returns the item text.
func matchBullet(line string) (string, bool) {
	m := bulletRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	item := strings.TrimSpace(m[1])
	if item == "" {
		return "", false
	}
	return item, true
}
