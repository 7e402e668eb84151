package authz

import (
	"errors"
	"fmt"
)

// ErrConfigurationInvariantViolated is returned when two ACLs with the same
// sequence number claim the exact same leaf of the tree — the source
// configuration is expected to forbid two sections sharing a sequence
// number, so this is treated as a defensive runtime check rather than
// omitted, per spec's design notes. Two ACLs at the same leaf with
// *different* sequence numbers is not a collision: spec section 3's
// precedence rule (larger sequence number wins) resolves it.
var ErrConfigurationInvariantViolated = errors.New("authz: configuration invariant violated")

// buildStep is one (segment, node) pair the builder walked for the most
// recently inserted ACL, kept so the next ACL's insertion can resume at the
// deepest node whose path prefix it shares with the previous one.
//
// Grounded in spec section 4.2's ConstructionContext: a pure constant-factor
// optimization over re-walking from the root for every ACL, since ACLs in a
// real configuration file are almost always path-sorted and share long
// common prefixes with their neighbors.
type buildStep struct {
	seg Segment
	n   *node
}

// segmentEqual reports whether two segments would resolve to the same tree
// node. Spec's design notes call for comparing interned pattern pointers
// when available; absent a central intern table here, we compare (kind,
// bytes) directly and accept the documented small constant-factor slowdown.
func segmentEqual(a, b Segment) bool {
	return a.Kind == b.Kind && a.Pattern == b.Pattern
}

// buildTree folds every ACL relevant to (user, repository) into one tree.
// ACLs for which Evaluate reports applies=false are skipped entirely: they
// must not contribute an Access node, even an empty one.
func buildTree(acls []ACL, user *string, repository string) (*node, error) {
	root := newNode("/", 0)

	var ctx []buildStep
	for _, acl := range acls {
		rights, applies := acl.Evaluate(user, repository)
		if !applies {
			continue
		}

		rule := acl.Rule()

		shared := 0
		for shared < len(ctx) && shared < len(rule) && segmentEqual(ctx[shared].seg, rule[shared]) {
			shared++
		}

		current := root
		if shared > 0 {
			current = ctx[shared-1].n
		}

		steps := append([]buildStep(nil), ctx[:shared]...)
		for _, seg := range rule[shared:] {
			current = insertSegment(current, seg, current.depth+1)
			steps = append(steps, buildStep{seg: seg, n: current})
		}
		ctx = steps

		newAccess := Access{Sequence: acl.SequenceNumber(), Rights: rights}
		if current.rights.Access.Sequence == newAccess.Sequence && current.rights.Access.Sequence != NoAccess.Sequence {
			return nil, fmt.Errorf("%w: sequence %d duplicated at the same path",
				ErrConfigurationInvariantViolated, newAccess.Sequence)
		}
		current.rights.Access = combineAccess(current.rights.Access, newAccess)
	}

	return root, nil
}

// insertSegment walks one segment of an ACL's rule from n, creating the
// child if necessary, dispatching on the segment's kind the way spec
// section 4.2 describes.
func insertSegment(n *node, seg Segment, depth uint16) *node {
	switch seg.Kind {
	case SegmentLiteral:
		return n.literalChild(seg.Pattern, depth)
	case SegmentAny:
		return n.anyChild(depth)
	case SegmentAnyRecursive:
		return n.anyRecursiveChild(depth)
	case SegmentPrefix:
		return n.prefixChild(seg.Pattern, depth)
	case SegmentSuffix:
		return n.suffixChild(seg.Pattern, depth)
	case SegmentFnmatch:
		return n.complexChild(seg.Pattern, depth)
	default:
		// Unknown kinds are a parser bug, not a runtime condition we can
		// recover from sensibly; fall back to fnmatch rather than panic,
		// so a single malformed ACL can't take the whole build down.
		return n.complexChild(seg.Pattern, depth)
	}
}

// forEachChild visits every child of n — literal, any, any_recursive,
// prefixes, suffixes and complex — in an order that doesn't matter for
// either finalization pass (both are pure OR/AND combinators).
func (n *node) forEachChild(f func(*node)) {
	for _, c := range n.literal {
		f(c)
	}
	if n.pattern == nil {
		return
	}
	if n.pattern.any != nil {
		f(n.pattern.any)
	}
	if n.pattern.anyVar != nil {
		f(n.pattern.anyVar)
	}
	for _, c := range n.pattern.prefixes {
		f(c)
	}
	for _, c := range n.pattern.suffixes {
		f(c)
	}
	for _, c := range n.pattern.complex {
		f(c)
	}
}
