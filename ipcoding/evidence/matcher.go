// Package evidence interprets the short text snippets the extraction pipeline attaches to
// record fields. Rule clauses only reach free text through the Matcher interface, which keeps
// the derivation flow testable independently of the text heuristics.
package evidence

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxBytes bounds how much of a single snippet is scanned.
const DefaultMaxBytes = 4096

type StentAction int

const (
	StentActionUnknown StentAction = iota
	StentPlacement
	StentRemoval
	StentRevision
	StentAssessment
)

func (a StentAction) String() string {
	switch a {
	case StentPlacement:
		return "placement"
	case StentRemoval:
		return "removal"
	case StentRevision:
		return "revision"
	case StentAssessment:
		return "assessment"
	}
	return "unknown"
}

// Cue is a yes/no question a clause can ask about a set of snippets.
type Cue string

const (
	CueImagingGuidance Cue = "imaging_guidance"
	CueDistinctLesion  Cue = "distinct_lesion"
	CueBalloon         Cue = "balloon"
	CueAnesthesia      Cue = "anesthesia"
	CueRemoval         Cue = "removal"
	CueThoracoscopic   Cue = "thoracoscopic"
)

// Matcher is the capability rule clauses use to read free text evidence.
type Matcher interface {
	// StentAction classifies what was done to an airway stent.
	StentAction(snippets []string) StentAction
	// SubsequentDay reports whether the snippets describe a later-day repeat of a treatment.
	SubsequentDay(snippets []string) bool
	// Stations returns the distinct, canonical lymph node stations mentioned.
	Stations(snippets []string) []string
	// Lobes returns the distinct, canonical lobes mentioned.
	Lobes(snippets []string) []string
	// Has reports whether any snippet carries the cue.
	Has(cue Cue, snippets []string) bool
}

// RegexMatcher is the pattern based Matcher. It is safe for concurrent use.
type RegexMatcher struct {
	maxBytes int
}

// NewRegexMatcher returns a matcher that scans at most maxBytes of each snippet. A non-positive
// maxBytes selects DefaultMaxBytes.
func NewRegexMatcher(maxBytes int) *RegexMatcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &RegexMatcher{maxBytes: maxBytes}
}

var (
	stentRevision   = regexp.MustCompile(`\b(revis(e|ed|ion)|exchang(e|ed|ing)|reposition(ed|ing)?|replac(e|ed|ement)|trimm(ed|ing))\b`)
	stentRemoval    = regexp.MustCompile(`\b(remov(e|ed|al)|extract(ed|ion)?|explant(ed)?|retriev(e|ed|al)|taken out)\b`)
	stentPlacement  = regexp.MustCompile(`\b(plac(e|ed|ement)|deploy(ed|ment)?|insert(ed|ion)?|implant(ed)?)\b`)
	negatedPlace    = regexp.MustCompile(`\b(no|not|without)\b[^.;]{0,24}\b(plac(e|ed|ement)|deploy(ed|ment)?|insert(ed|ion)?)\b`)
	stentAssessment = regexp.MustCompile(`\b(inspect(ed|ion)?|assess(ed|ment)?|evaluat(ed|ion)|surveillance|patent|in good position|well positioned|no migration)\b`)

	subsequentDay = regexp.MustCompile(`\b(subsequent|second|third|repeat|follow[- ]?up)\s+(day|dose|instillation|treatment)\b|\bday\s*#?\s*([2-9]|two|three|four)\b`)

	stationList  = regexp.MustCompile(`\b(?:stations?|stns?|levels?|ln)\s*#?\s*(\d{1,2}[rlap]?[si]?\b(?:\s*(?:,|and|&|/|\+)\s*#?\s*\d{1,2}[rlap]?[si]?\b)*)`)
	stationToken = regexp.MustCompile(`\d{1,2}[rlap]?[si]?\b`)
	sidedStation = regexp.MustCompile(`\b(\d{1,2}[rl][si]?)\b`)
	subcarinal   = regexp.MustCompile(`\bsubcarinal\b`)

	cues = map[Cue]*regexp.Regexp{
		CueImagingGuidance: regexp.MustCompile(`\b(ultrasound|us[- ]guided|sonograph\w*|image[- ]guided|imaging guidance|ct[- ]guided|fluoroscop\w*)\b`),
		CueDistinctLesion:  regexp.MustCompile(`\b(separate|distinct|different|second|another|additional)\s+(lesion|tumou?r|mass|site|lobe)s?\b`),
		CueBalloon:         regexp.MustCompile(`\bballoon\b`),
		CueAnesthesia:      regexp.MustCompile(`\b(anesthesi(a|ologist)|anaesthesi(a|st)|crna|mac|general anesthesia)\b`),
		CueRemoval:         regexp.MustCompile(`\b(remov(e|ed|al)|extract(ed|ion)?|retriev(e|ed|al)|explant(ed)?|pulled)\b`),
		CueThoracoscopic:   regexp.MustCompile(`\b(thoracoscop\w*|pleuroscop\w*|vats)\b`),
	}
)

func (m *RegexMatcher) StentAction(snippets []string) StentAction {
	var revision, removal, placement, assessment bool
	for _, s := range m.normalizeAll(snippets) {
		revision = revision || stentRevision.MatchString(s)
		removal = removal || stentRemoval.MatchString(s)
		placement = placement || (stentPlacement.MatchString(s) && !negatedPlace.MatchString(s))
		assessment = assessment || stentAssessment.MatchString(s)
	}

	switch {
	case revision, removal && placement:
		return StentRevision
	case removal:
		return StentRemoval
	case placement:
		return StentPlacement
	case assessment:
		return StentAssessment
	}
	return StentActionUnknown
}

func (m *RegexMatcher) SubsequentDay(snippets []string) bool {
	for _, s := range m.normalizeAll(snippets) {
		if subsequentDay.MatchString(s) {
			return true
		}
	}
	return false
}

func (m *RegexMatcher) Stations(snippets []string) []string {
	found := map[string]bool{}
	for _, s := range m.normalizeAll(snippets) {
		for _, list := range stationList.FindAllStringSubmatch(s, -1) {
			for _, tok := range stationToken.FindAllString(list[1], -1) {
				if st, ok := NormalizeStation(tok); ok {
					found[st] = true
				}
			}
		}
		for _, tok := range sidedStation.FindAllString(s, -1) {
			if st, ok := NormalizeStation(tok); ok {
				found[st] = true
			}
		}
		if subcarinal.MatchString(s) {
			found["7"] = true
		}
	}
	return sortedSet(found)
}

func (m *RegexMatcher) Lobes(snippets []string) []string {
	found := map[string]bool{}
	for _, s := range m.normalizeAll(snippets) {
		for _, lobe := range lobesIn(s) {
			found[lobe] = true
		}
	}
	return sortedSet(found)
}

func (m *RegexMatcher) Has(cue Cue, snippets []string) bool {
	re, ok := cues[cue]
	if !ok {
		return false
	}
	for _, s := range m.normalizeAll(snippets) {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func (m *RegexMatcher) normalizeAll(snippets []string) []string {
	out := make([]string, 0, len(snippets))
	for _, s := range snippets {
		out = append(out, m.normalize(s))
	}
	return out
}

// normalize truncates s to the configured bound on a rune boundary, applies NFKC and folds case.
func (m *RegexMatcher) normalize(s string) string {
	if len(s) > m.maxBytes {
		cut := m.maxBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return cases.Fold().String(norm.NFKC.String(s))
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// fold is used by the location helpers, which are called on short structured values.
func fold(s string) string {
	return strings.TrimSpace(cases.Fold().String(norm.NFKC.String(s)))
}
