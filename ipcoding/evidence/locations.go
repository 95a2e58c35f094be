package evidence

import (
	"regexp"
	"strconv"
	"strings"
)

var validStations = map[string]bool{
	"1R": true, "1L": true, "2R": true, "2L": true, "3A": true, "3P": true, "4R": true, "4L": true,
	"5": true, "6": true, "7": true, "8": true, "9": true, "10R": true, "10L": true,
	"11R": true, "11L": true, "11RS": true, "11RI": true, "12R": true, "12L": true,
}

var stationPrefix = regexp.MustCompile(`^(station|stn|level|ln)\s*#?\s*`)

// NormalizeStation converts a structured station value ("station 4r", "11Rs", "7") into its
// canonical IASLC form. Values that are not a mediastinal or hilar station are rejected.
func NormalizeStation(s string) (string, bool) {
	s = stationPrefix.ReplaceAllString(fold(s), "")
	s = strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	if s == "SUBCARINAL" {
		return "7", true
	}
	return s, validStations[s]
}

var (
	lobePatterns = []struct {
		lobe string
		re   *regexp.Regexp
	}{
		{"RUL", regexp.MustCompile(`\b(rul|right upper(\s+lobe)?)\b`)},
		{"RML", regexp.MustCompile(`\b(rml|right middle(\s+lobe)?|middle lobe)\b`)},
		{"RLL", regexp.MustCompile(`\b(rll|right lower(\s+lobe)?)\b`)},
		// The lingula is coded as part of the left upper lobe.
		{"LUL", regexp.MustCompile(`\b(lul|left upper(\s+lobe)?|lingula(r)?)\b`)},
		{"LLL", regexp.MustCompile(`\b(lll|left lower(\s+lobe)?)\b`)},
	}
	segment = regexp.MustCompile(`\b([rl])b\s?(\d{1,2})\b`)
)

// Lobes returns every canonical lobe named by a structured location value. A single value may
// name several lobes ("RUL and LLL").
func Lobes(s string) []string {
	return lobesIn(fold(s))
}

// lobesIn expects folded text and returns the lobes in the order they are checked.
func lobesIn(s string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(l string) {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	for _, p := range lobePatterns {
		if p.re.MatchString(s) {
			add(p.lobe)
		}
	}
	for _, m := range segment.FindAllStringSubmatch(s, -1) {
		if l, ok := segmentLobe(m[1], m[2]); ok {
			add(l)
		}
	}
	return out
}

// segmentLobe maps bronchial segment notation (RB1-RB10, LB1-LB10) to its lobe.
func segmentLobe(side, num string) (string, bool) {
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 || n > 10 {
		return "", false
	}
	if side == "r" {
		switch {
		case n <= 3:
			return "RUL", true
		case n <= 5:
			return "RML", true
		}
		return "RLL", true
	}
	if n <= 5 {
		return "LUL", true
	}
	return "LLL", true
}

var (
	airwaySites = []struct {
		token string
		re    *regexp.Regexp
	}{
		{"TRACHEA", regexp.MustCompile(`\b(trachea|tracheal)\b`)},
		{"CARINA", regexp.MustCompile(`\b(main\s+)?carina\b`)},
		{"RMSB", regexp.MustCompile(`\b(rmsb|rms|right main(\s*stem)?(\s+bronchus)?|right mainstem)\b`)},
		{"LMSB", regexp.MustCompile(`\b(lmsb|lms|left main(\s*stem)?(\s+bronchus)?|left mainstem)\b`)},
		{"BI", regexp.MustCompile(`\b(bi|bronchus intermedius|intermedius)\b`)},
	}
	wordSplit = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	stopWords = map[string]bool{
		"the": true, "of": true, "in": true, "at": true, "and": true, "to": true, "with": true,
		"distal": true, "proximal": true, "mid": true, "lobe": true, "bronchus": true, "airway": true,
		"segment": true, "site": true, "lesion": true,
	}
)

// SiteTokens converts free form anatomic locations into a set of comparable tokens. Known
// airway sites and lobes become canonical tokens; anything else falls back to its significant
// words.
func SiteTokens(locations ...string) map[string]bool {
	tokens := map[string]bool{}
	for _, loc := range locations {
		s := fold(loc)
		if s == "" {
			continue
		}
		matched := false
		for _, site := range airwaySites {
			if site.re.MatchString(s) {
				tokens[site.token] = true
				matched = true
			}
		}
		for _, l := range lobesIn(s) {
			tokens[l] = true
			matched = true
		}
		if matched {
			continue
		}
		for _, w := range wordSplit.Split(s, -1) {
			if len(w) >= 2 && !stopWords[w] {
				tokens[strings.ToUpper(w)] = true
			}
		}
	}
	return tokens
}

// Disjoint reports whether two token sets prove distinct sites: both must be known and share
// no token. An empty set never proves anything.
func Disjoint(a, b map[string]bool) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	for t := range a {
		if b[t] {
			return false
		}
	}
	return true
}
