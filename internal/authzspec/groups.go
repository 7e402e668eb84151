package authzspec

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// TokenEveryone, TokenAnonymous and TokenAuthenticated are the principal
// tokens a rule's access map recognizes beyond literal user ids and
// "@group" references, matching Subversion authz's "*", "$anonymous" and
// "$authenticated".
const (
	TokenEveryone      = "*"
	TokenAnonymous     = "$anonymous"
	TokenAuthenticated = "$authenticated"
)

// groupSets flattens a RuleFile's Groups map into resolved membership sets,
// expanding "@nested" group references transitively. A group that
// transitively contains itself contributes its non-cyclic members once and
// is not treated as an error, matching Subversion's own lenient handling of
// malformed-but-not-fatal group graphs.
func groupSets(groups map[string][]string) map[string]mapset.Set[string] {
	resolved := make(map[string]mapset.Set[string], len(groups))
	for name := range groups {
		resolved[name] = resolveGroup(name, groups, mapset.NewThreadUnsafeSet[string]())
	}
	return resolved
}

func resolveGroup(name string, groups map[string][]string, seen mapset.Set[string]) mapset.Set[string] {
	out := mapset.NewThreadUnsafeSet[string]()
	if seen.Contains(name) {
		return out
	}
	seen.Add(name)

	for _, member := range groups[name] {
		if g, ok := groupName(member); ok {
			out = out.Union(resolveGroup(g, groups, seen))
			continue
		}
		out.Add(member)
	}
	return out
}

func groupName(token string) (string, bool) {
	if len(token) > 1 && token[0] == '@' {
		return token[1:], true
	}
	return "", false
}
