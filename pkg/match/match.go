// Package match decides which processes a search term refers to.
//
// Matching is case-insensitive and anchored: every strategy compares against
// the start of a name, the start of a word inside a name, or a whole path
// segment. Prefix semantics are intended, so "chrome" also selects
// "chromedriver".
package match

import (
	"path"
	"strings"

	"github.com/srodi/memon/pkg/types"
)

// executableSuffixes are stripped before comparing names.
var executableSuffixes = []string{".exe", ".app", ".bin", ".run"}

// Predicate reports whether a record qualifies for a lower-cased, trimmed term.
type Predicate func(rec types.ProcessRecord, term string) bool

// Strategy is a named Predicate.
type Strategy struct {
	Name  string
	Match Predicate
}

// DefaultStrategies lists the matching rules in priority order. A record
// matches when any of them fires.
var DefaultStrategies = []Strategy{
	{Name: "exact", Match: exactName},
	{Name: "prefix", Match: prefixName},
	{Name: "stripped-extension", Match: strippedExtension},
	{Name: "path-basename", Match: pathBasename},
	{Name: "bundle", Match: bundleName},
}

// Matcher applies an ordered set of strategies.
type Matcher struct {
	strategies []Strategy
}

// New returns a Matcher using strategies, or DefaultStrategies when none are given.
func New(strategies ...Strategy) *Matcher {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	return &Matcher{strategies: strategies}
}

// Strategy returns the name of the first strategy that selects rec, or "" if none does.
func (m *Matcher) Strategy(rec types.ProcessRecord, term string) string {
	t := normalize(term)
	if t == "" {
		return ""
	}
	for _, s := range m.strategies {
		if s.Match(rec, t) {
			return s.Name
		}
	}
	return ""
}

// Matches returns the PIDs of every record selected by term, in record order.
func (m *Matcher) Matches(records []types.ProcessRecord, term string) []int {
	var pids []int
	seen := make(map[int]struct{})
	for _, rec := range records {
		if _, dup := seen[rec.PID]; dup {
			continue
		}
		if m.Strategy(rec, term) != "" {
			seen[rec.PID] = struct{}{}
			pids = append(pids, rec.PID)
		}
	}
	return pids
}

// Match returns the root matches for term: matched PIDs none of whose
// ancestors is matched too. Descendants of a root are attached later by the
// tree builder, so they never head a tree of their own.
func (m *Matcher) Match(records []types.ProcessRecord, term string) []int {
	return Roots(records, m.Matches(records, term))
}

// Match runs the default matcher.
func Match(records []types.ProcessRecord, term string) []int {
	return New().Match(records, term)
}

// Roots keeps the matched PIDs that have no matched ancestor. Parent chains
// come from a live process table and may be broken or cyclic; the walk stops
// at a missing parent or at the first PID it has already seen.
func Roots(records []types.ProcessRecord, matched []int) []int {
	if len(matched) == 0 {
		return nil
	}
	parent := make(map[int]int, len(records))
	for _, rec := range records {
		parent[rec.PID] = rec.PPID
	}
	isMatched := make(map[int]struct{}, len(matched))
	for _, pid := range matched {
		isMatched[pid] = struct{}{}
	}

	roots := make([]int, 0, len(matched))
	for _, pid := range matched {
		if !hasMatchedAncestor(pid, parent, isMatched) {
			roots = append(roots, pid)
		}
	}

	// A cycle of matched processes has a matched ancestor everywhere. Promote
	// the lowest uncovered cycle member so the family still gets a tree, then
	// let it cover whatever hangs off the cycle.
	children := make(map[int][]int, len(records))
	for _, rec := range records {
		children[rec.PPID] = append(children[rec.PPID], rec.PID)
	}
	covered := make(map[int]struct{}, len(records))
	for _, pid := range roots {
		cover(pid, children, covered)
	}
	for _, pid := range matched {
		if _, ok := covered[pid]; ok || !onCycle(pid, parent) {
			continue
		}
		roots = append(roots, pid)
		cover(pid, children, covered)
	}
	for _, pid := range matched {
		if _, ok := covered[pid]; ok {
			continue
		}
		roots = append(roots, pid)
		cover(pid, children, covered)
	}
	return roots
}

// onCycle reports whether following parents from pid leads back to pid.
func onCycle(pid int, parent map[int]int) bool {
	visited := make(map[int]struct{})
	cur := pid
	for {
		ppid, ok := parent[cur]
		if !ok || ppid == 0 {
			return false
		}
		if ppid == pid {
			return true
		}
		if _, seen := visited[ppid]; seen {
			return false
		}
		visited[ppid] = struct{}{}
		cur = ppid
	}
}

func cover(pid int, children map[int][]int, covered map[int]struct{}) {
	stack := []int{pid}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := covered[cur]; ok {
			continue
		}
		covered[cur] = struct{}{}
		stack = append(stack, children[cur]...)
	}
}

func hasMatchedAncestor(pid int, parent map[int]int, matched map[int]struct{}) bool {
	visited := map[int]struct{}{pid: {}}
	cur := pid
	for {
		ppid, ok := parent[cur]
		if !ok || ppid == 0 {
			return false
		}
		if _, loop := visited[ppid]; loop {
			return false
		}
		if _, ok := parent[ppid]; !ok {
			return false
		}
		if _, ok := matched[ppid]; ok {
			return true
		}
		visited[ppid] = struct{}{}
		cur = ppid
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func exactName(rec types.ProcessRecord, term string) bool {
	return strings.ToLower(rec.Name) == term
}

func prefixName(rec types.ProcessRecord, term string) bool {
	return prefixOrTruncated(strings.ToLower(rec.Name), term)
}

// prefixOrTruncated accepts names starting with term, and names cut at the
// kernel comm limit that term itself starts with.
func prefixOrTruncated(name, term string) bool {
	if name == "" {
		return false
	}
	if strings.HasPrefix(name, term) {
		return true
	}
	return len(name) >= types.CommTruncation && strings.HasPrefix(term, name)
}

func stripExtension(s string) string {
	for _, ext := range executableSuffixes {
		if len(s) > len(ext) && strings.HasSuffix(s, ext) {
			return s[:len(s)-len(ext)]
		}
	}
	return s
}

func strippedExtension(rec types.ProcessRecord, term string) bool {
	return prefixOrTruncated(stripExtension(strings.ToLower(rec.Name)), stripExtension(term))
}

func pathBasename(rec types.ProcessRecord, term string) bool {
	t := stripExtension(basename(term))
	for _, candidate := range []string{rec.Exe, rec.Name} {
		if !isAbsPath(candidate) {
			continue
		}
		base := stripExtension(basename(strings.ToLower(candidate)))
		if prefixOrTruncated(base, t) {
			return true
		}
	}
	return false
}

// isAbsPath accepts "/usr/bin/x", `\\server\x` and "C:\x" forms. Kernel
// thread names such as "kworker/u8:2" contain slashes but are not paths.
func isAbsPath(p string) bool {
	switch {
	case p == "":
		return false
	case p[0] == '/' || p[0] == '\\':
		return true
	case len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/'):
		c := p[0] | 0x20
		return c >= 'a' && c <= 'z'
	default:
		return false
	}
}

func basename(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return path.Base(strings.TrimRight(p, "/"))
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// bundleName recognizes application-bundle naming: "Google Chrome" vs
// "GoogleChrome", helper processes such as "Google Chrome Helper (Renderer)",
// and executables living inside a "<Name>.app" bundle directory.
func bundleName(rec types.ProcessRecord, term string) bool {
	t := compact(stripExtension(term))
	if t == "" {
		return false
	}
	name := strings.ToLower(rec.Name)
	if strings.HasPrefix(compact(name), t) {
		return true
	}
	for _, word := range strings.Fields(name) {
		if strings.HasPrefix(word, t) {
			return true
		}
	}
	for _, segment := range strings.Split(strings.ToLower(rec.Exe), "/") {
		if !strings.HasSuffix(segment, ".app") {
			continue
		}
		if strings.HasPrefix(compact(strings.TrimSuffix(segment, ".app")), t) {
			return true
		}
	}
	return false
}
