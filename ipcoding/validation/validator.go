// Package validation certifies that a knowledge base is internally consistent before it is
// served. It is a release gate: it runs once per knowledge base version, never per record.
package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/CMSgov/ipcoding-app/ipcoding/derivation"
	"github.com/CMSgov/ipcoding-app/ipcoding/kb"
	"github.com/CMSgov/ipcoding-app/log"
	"github.com/sirupsen/logrus"
)

var (
	codeShape = regexp.MustCompile(`^\+?(\d{5}|[A-Za-z]\d{4})$`)
	codeToken = regexp.MustCompile(`\+?\b(\d{5}|[A-Za-z]\d{4})\b`)
)

// Validate runs every check and returns the issues found. An empty result means the knowledge
// base can be trusted. Validate never modifies k.
func Validate(k *kb.KnowledgeBase) []string {
	var issues []string
	issues = append(issues, ReferentialIntegrity(k)...)
	issues = append(issues, BundlingCycles(k)...)
	issues = append(issues, RVUCompleteness(k)...)

	log.Validator.WithFields(logrus.Fields{
		"source":  k.Source(),
		"version": k.Version(),
		"issues":  len(issues),
	}).Info("Validated knowledge base")
	return issues
}

// ValidateDocument builds a knowledge base from a generic document and validates it. Documents
// that cannot be built at all return an error instead of issues.
func ValidateDocument(doc map[string]interface{}) ([]string, error) {
	k, err := kb.FromDocument(doc)
	if err != nil {
		return nil, err
	}
	return Validate(k), nil
}

// ReferentialIntegrity reports every code shaped token in the document that is missing from the
// master code index. Map keys and numbers must be a code as a whole; strings are scanned for
// code tokens anywhere in the text. Each (code, path) pair is reported once.
func ReferentialIntegrity(k *kb.KnowledgeBase) []string {
	known := make(map[string]bool)
	for _, c := range k.Codes() {
		known[c] = true
	}

	var issues []string
	seen := make(map[string]bool)
	report := func(code, path string) {
		key := code + "\x00" + path
		if known[code] || seen[key] {
			return
		}
		seen[key] = true
		issues = append(issues, fmt.Sprintf("Referential integrity: code %s referenced at %s is not in the master code index", code, path))
	}

	var walk func(path string, v interface{})
	walk = func(path string, v interface{}) {
		switch t := v.(type) {
		case map[string]interface{}:
			keys := make([]string, 0, len(t))
			for key := range t {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				child := joinPath(path, key)
				if code, ok := asCode(key); ok {
					report(code, child)
				}
				walk(child, t[key])
			}
		case []interface{}:
			for i, item := range t {
				walk(fmt.Sprintf("%s[%d]", path, i), item)
			}
		case string:
			for _, tok := range codeToken.FindAllString(t, -1) {
				report(kb.NormalizeCode(tok), path)
			}
		default:
			if code, ok := asCode(v); ok {
				report(code, path)
			}
		}
	}
	walk("", k.Document())
	return issues
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// asCode reports whether v is a whole value shaped like a code and returns it normalized.
func asCode(v interface{}) (string, bool) {
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case json.Number:
		s = t.String()
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	default:
		return "", false
	}
	if !codeShape.MatchString(s) {
		return "", false
	}
	return kb.NormalizeCode(s), true
}

// BundlingCycles reports each distinct cycle in the bundling graph once.
func BundlingCycles(k *kb.KnowledgeBase) []string {
	g := kb.BuildGraph(k, derivation.StaticExclusions())
	var issues []string
	for _, cycle := range FindCycles(g) {
		path := append(append([]string(nil), cycle...), cycle[0])
		issues = append(issues, fmt.Sprintf("Bundling cycle: %s", strings.Join(path, " -> ")))
	}
	return issues
}

const (
	white = iota
	grey
	black
)

// FindCycles runs a three colour depth first search from every node in sorted order. Each cycle
// is rotated to start at its smallest node so that a cycle reached from several entry points is
// returned once.
func FindCycles(g *kb.BundlingGraph) [][]string {
	color := make(map[string]int)
	var stack []string
	seen := make(map[string]bool)
	var cycles [][]string

	var visit func(n string)
	visit = func(n string) {
		color[n] = grey
		stack = append(stack, n)
		for _, next := range g.Successors(n) {
			switch color[next] {
			case white:
				visit(next)
			case grey:
				start := len(stack) - 1
				for stack[start] != next {
					start--
				}
				cycle := canonical(stack[start:])
				key := strings.Join(cycle, ",")
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
	}

	for _, n := range g.Nodes() {
		if color[n] == white {
			visit(n)
		}
	}
	return cycles
}

func canonical(cycle []string) []string {
	min := 0
	for i, n := range cycle {
		if n < cycle[min] {
			min = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[min:]...)
	return append(out, cycle[:min]...)
}

// RVUCompleteness reports active billable codes without a usable work RVU.
func RVUCompleteness(k *kb.KnowledgeBase) []string {
	var issues []string
	for _, code := range k.Codes() {
		entry, _ := k.Entry(code)
		if !entry.Billable() || !entry.Active() {
			continue
		}
		if _, err := entry.ResolveWorkRVU(); err != nil {
			issues = append(issues, fmt.Sprintf("RVU completeness: %s has %s", code, err))
		}
	}
	return issues
}
