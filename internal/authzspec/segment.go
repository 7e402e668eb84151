package authzspec

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/svnauthz/engine/internal/authz"
)

const globMeta = "*?["

// compileSegments splits a rule path on "/" and classifies each non-empty
// segment into the authz.SegmentKind it should build a tree node as,
// matching spec.md section 6's "each segment... carries a kind and an
// interned pattern string" — this classification is entirely the parser's
// responsibility; internal/authz only ever dispatches on the result.
func compileSegments(path string) ([]authz.Segment, error) {
	parts := strings.Split(path, "/")
	segs := make([]authz.Segment, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		seg, err := classifySegment(p)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func classifySegment(p string) (authz.Segment, error) {
	switch {
	case p == "*":
		return authz.Segment{Kind: authz.SegmentAny, Pattern: p}, nil

	case p == "**":
		return authz.Segment{Kind: authz.SegmentAnyRecursive, Pattern: p}, nil

	case !strings.ContainsAny(p, globMeta):
		return authz.Segment{Kind: authz.SegmentLiteral, Pattern: p}, nil

	case isBareTrailingStar(p):
		return authz.Segment{Kind: authz.SegmentPrefix, Pattern: strings.TrimSuffix(p, "*")}, nil

	case isBareLeadingStar(p):
		return authz.Segment{Kind: authz.SegmentSuffix, Pattern: strings.TrimPrefix(p, "*")}, nil

	default:
		if !doublestar.ValidatePattern(p) {
			return authz.Segment{}, fmt.Errorf("authzspec: invalid glob segment %q", p)
		}
		return authz.Segment{Kind: authz.SegmentFnmatch, Pattern: p}, nil
	}
}

// isBareTrailingStar reports whether p is "text*" with exactly one "*", at
// the end, and no other glob metacharacters — the narrow shape the engine's
// sorted-prefix-children strategy applies to.
func isBareTrailingStar(p string) bool {
	return strings.HasSuffix(p, "*") &&
		strings.Count(p, "*") == 1 &&
		!strings.ContainsAny(strings.TrimSuffix(p, "*"), globMeta)
}

// isBareLeadingStar is isBareTrailingStar's mirror for "*text".
func isBareLeadingStar(p string) bool {
	return strings.HasPrefix(p, "*") &&
		strings.Count(p, "*") == 1 &&
		!strings.ContainsAny(strings.TrimPrefix(p, "*"), globMeta)
}
