package authzspec

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/svnauthz/engine/internal/authz"
)

// Compile turns a parsed RuleFile into the ordered []authz.ACL list
// internal/authz consumes, assigning sequence numbers by rule order (spec.md
// section 3: "positive numbers come from ACL ordering") and resolving every
// rule's group references once up front.
func Compile(rf *RuleFile) ([]authz.ACL, error) {
	groups := groupSets(rf.Groups)

	acls := make([]authz.ACL, 0, len(rf.Rules))
	for i, rule := range rf.Rules {
		segments, err := compileSegments(rule.Path)
		if err != nil {
			return nil, fmt.Errorf("authzspec: rule %d (%s): %w", i, rule.Path, err)
		}

		grants := make(map[string]authz.Rights, len(rule.Access))
		for token, spec := range rule.Access {
			rights, err := parseRights(spec)
			if err != nil {
				return nil, fmt.Errorf("authzspec: rule %d (%s): access %q: %w", i, rule.Path, token, err)
			}
			grants[token] = rights
		}

		acls = append(acls, &compiledACL{
			sequence: i + 1,
			segments: segments,
			rule:     rule,
			grants:   grants,
			groups:   groups,
		})
	}
	return acls, nil
}

// parseRights parses a rights string ("", "r", "w", "rw"/"wr") into a
// authz.Rights value. Any other character is rejected rather than silently
// ignored, since a typo here is a silent security hole otherwise.
func parseRights(spec string) (authz.Rights, error) {
	var rights authz.Rights
	for _, c := range spec {
		switch c {
		case 'r':
			rights |= authz.RightRead
		case 'w':
			rights |= authz.RightWrite
		default:
			return 0, fmt.Errorf("unrecognized rights character %q", c)
		}
	}
	return rights, nil
}

// compiledACL is the authz.ACL implementation this package hands to
// internal/authz: one rule plus the resolved group sets needed to evaluate
// its access map against a query's (user, repository).
type compiledACL struct {
	sequence int
	segments []authz.Segment
	rule     *Rule
	grants   map[string]authz.Rights
	groups   map[string]mapset.Set[string]
}

func (a *compiledACL) SequenceNumber() int   { return a.sequence }
func (a *compiledACL) Rule() []authz.Segment { return a.segments }

// Evaluate resolves the rule's access map against user and repository,
// matching spec.md section 6's (Rights, applies) contract: the rule
// contributes nothing (applies=false) unless some principal token in its
// access map matches. Precedence when more than one token could match: a
// literal user id wins over group membership, which wins over the
// pseudo-principal tokens, which win over "*" — the most specific grant
// available is the one that applies.
func (a *compiledACL) Evaluate(user *string, repository string) (authz.Rights, bool) {
	if !a.rule.appliesToRepository(repository) {
		return authz.RightsNone, false
	}

	if user != nil {
		if rights, ok := a.grants[*user]; ok {
			return rights, true
		}
		for token, rights := range a.grants {
			if group, ok := groupName(token); ok {
				if members, found := a.groups[group]; found && members.Contains(*user) {
					return rights, true
				}
			}
		}
	}

	if user != nil {
		if rights, ok := a.grants[TokenAuthenticated]; ok {
			return rights, true
		}
	} else if rights, ok := a.grants[TokenAnonymous]; ok {
		return rights, true
	}

	if rights, ok := a.grants[TokenEveryone]; ok {
		return rights, true
	}

	return authz.RightsNone, false
}
