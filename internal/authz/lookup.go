package authz

import (
	"errors"
	"sort"
	"strings"
)

// ErrMalformedPath is returned when a caller-supplied path is non-nil but
// does not start with "/".
var ErrMalformedPath = errors.New("authz: path must start with /")

// lookupState is the mutable, reusable walk state spec section 4.4
// describes: the set of tree nodes compatible with the path walked so far,
// the rights summary across that set, and the bookkeeping needed to resume
// a walk from a shared directory prefix across successive sibling queries.
type lookupState struct {
	rights       LimitedRights
	current      []*node
	next         []*node
	parentPath   string
	parentRights LimitedRights
	scratch      []byte
}

// normalizePath strips leading/trailing slashes and collapses internal runs
// of "/" into a single separator, returning "" for the root path.
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	segs := parts[:0]
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return strings.Join(segs, "/")
}

func splitSegments(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, "/")
}

// initLookupState prepares the walk for normalizedPath, reusing the
// previous walk's node set when normalizedPath descends from the same
// directory the state last settled on, and returns the segments still left
// to process.
func (s *lookupState) initLookupState(root *node, normalizedPath string) []string {
	if s.parentPath != "" && strings.HasPrefix(normalizedPath, s.parentPath+"/") {
		s.rights = s.parentRights
		return splitSegments(normalizedPath[len(s.parentPath)+1:])
	}

	s.current = append(s.current[:0], root)
	s.rights = root.rights
	s.parentRights = root.rights
	if root.pattern != nil && root.pattern.anyVar != nil {
		s.absorb(root.pattern.anyVar)
	}
	s.parentPath = ""
	s.scratch = s.scratch[:0]
	return splitSegments(normalizedPath)
}

// absorb folds n's LimitedRights into s.rights and appends n to s.current;
// initLookupState uses it for the zero-segment "**" match at the root.
// Unlike addNextNode, it does not also absorb n's own any_var child.
func (s *lookupState) absorb(n *node) {
	if n == nil {
		return
	}
	s.rights.Access = combineAccess(s.rights.Access, n.rights.Access)
	combineRightLimits(&s.rights, n.rights)
	s.current = append(s.current, n)
}

// addNextNode is add_next_node from spec section 4.4: it folds n's rights
// into the in-progress state.rights and queues n (and, if present, its
// any_var child) into state.next.
func (s *lookupState) addNextNode(n *node) {
	if n == nil {
		return
	}
	s.rights.Access = combineAccess(s.rights.Access, n.rights.Access)
	combineRightLimits(&s.rights, n.rights)
	s.next = append(s.next, n)

	if n.pattern != nil && n.pattern.anyVar != nil {
		av := n.pattern.anyVar
		s.rights.Access = combineAccess(s.rights.Access, av.rights.Access)
		combineRightLimits(&s.rights, av.rights)
		s.next = append(s.next, av)
	}
}

// lookup is the lookup(state, path, required, recursive) entry point from
// spec section 4.4.
func (s *lookupState) lookup(root *node, path string, required Rights, recursive bool) bool {
	normalized := normalizePath(path)
	remaining := s.initLookupState(root, normalized)

	for len(s.current) > 0 && len(remaining) > 0 {
		if s.rights.Max&required != required {
			return false
		}
		if s.rights.Min&required == required {
			return true
		}

		seg := remaining[0]
		remaining = remaining[1:]
		more := len(remaining) > 0

		s.scratch = append(s.scratch[:0], seg...)
		seg = string(s.scratch)

		s.next = s.next[:0]
		s.rights.Access = NoAccess
		s.rights.Min = RightRead | RightWrite
		s.rights.Max = RightsNone

		if more {
			if s.parentPath == "" {
				s.parentPath = seg
			} else {
				s.parentPath = s.parentPath + "/" + seg
			}
		}

		for _, n := range s.current {
			matchChildren(s, n, seg)
		}

		if s.rights.Access.Sequence == NoAccess.Sequence {
			s.rights.Access = s.parentRights.Access
			s.rights.Min &= s.parentRights.Access.Rights
			s.rights.Max |= s.parentRights.Access.Rights
		}

		if more {
			s.current, s.next = s.next, s.current
			s.parentRights = s.rights
		}
	}

	if recursive {
		return s.rights.Min&required == required
	}
	return s.rights.Access.Rights&required == required
}

// matchChildren runs every matching strategy spec section 4.4 step 5
// describes against n's children for query segment seg, suffixes last.
// Suffix matching reverses a copy of seg, so seg itself is left unchanged.
func matchChildren(s *lookupState, n *node, seg string) {
	if n.literal != nil {
		if child, ok := n.literal[seg]; ok {
			s.addNextNode(child)
		}
	}

	if n.pattern == nil {
		return
	}

	if n.pattern.any != nil {
		s.addNextNode(n.pattern.any)
	}

	if n.pattern.repeat {
		s.addNextNode(n)
	}

	matchPrefixChildren(s, n.pattern.prefixes, seg)
	matchComplexChildren(s, n.pattern.complex, seg)
	matchSuffixChildren(s, n.pattern.suffixes, seg)
}

// matchPrefixChildren finds every prefix child whose segment text is a
// byte-wise prefix of seg. prefixes is sorted ascending by segment text, so
// a binary search bounds the scan to the nodes lexicographically <= seg —
// every possible prefix match lies in that range, though (unlike a simple
// contiguous-suffix assumption) a non-matching sibling can still sit among
// them, so we check each candidate rather than stopping at the first miss.
func matchPrefixChildren(s *lookupState, prefixes []*node, seg string) {
	if len(prefixes) == 0 {
		return
	}
	bound := sort.Search(len(prefixes), func(i int) bool {
		return prefixes[i].segment > seg
	})
	for i := 0; i < bound; i++ {
		if matchPrefix(prefixes[i].segment, seg) {
			s.addNextNode(prefixes[i])
		}
	}
}

// matchComplexChildren linear-scans the unordered general-glob children.
func matchComplexChildren(s *lookupState, complex []*node, seg string) {
	for _, c := range complex {
		if matchGlob(c.segment, seg) {
			s.addNextNode(c)
		}
	}
}

// matchSuffixChildren finds every suffix child whose segment text is a
// byte-wise suffix of seg, by reversing seg and reusing the prefix-scan
// logic against each child's reversed segment text. The reversal is made
// on a fresh copy; the caller's seg is not modified.
func matchSuffixChildren(s *lookupState, suffixes []*node, seg string) {
	if len(suffixes) == 0 {
		return
	}
	reversed := reverseString(seg)
	bound := sort.Search(len(suffixes), func(i int) bool {
		return reverseString(suffixes[i].segment) > reversed
	})
	for i := 0; i < bound; i++ {
		if matchPrefix(reverseString(suffixes[i].segment), reversed) {
			s.addNextNode(suffixes[i])
		}
	}
}
