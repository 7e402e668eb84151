package authz

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SegmentKind classifies one path segment of an ACL rule's pattern. The
// upstream parser (internal/authzspec) is responsible for assigning the
// kind; the tree builder and lookup engine only dispatch on it.
type SegmentKind uint8

const (
	// SegmentLiteral matches a segment by exact byte equality.
	SegmentLiteral SegmentKind = iota
	// SegmentAny matches exactly one arbitrary segment ("*").
	SegmentAny
	// SegmentAnyRecursive matches zero or more whole segments ("**").
	SegmentAnyRecursive
	// SegmentPrefix matches a segment by a literal leading prefix ("foo*").
	SegmentPrefix
	// SegmentSuffix matches a segment by a literal trailing suffix ("*foo").
	SegmentSuffix
	// SegmentFnmatch matches a segment via a general shell glob.
	SegmentFnmatch
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentLiteral:
		return "literal"
	case SegmentAny:
		return "any"
	case SegmentAnyRecursive:
		return "any_recursive"
	case SegmentPrefix:
		return "prefix"
	case SegmentSuffix:
		return "suffix"
	case SegmentFnmatch:
		return "fnmatch"
	default:
		return "unknown"
	}
}

// Segment is one path component of an ACL rule's pattern, plus the kind that
// determines how it is matched against a query segment.
type Segment struct {
	Kind    SegmentKind
	Pattern string
}

// matchPrefix reports whether nodeSegment is a byte-wise prefix of
// querySegment. This is the primitive both SegmentPrefix matching and the
// sorted-prefix-children binary search in the lookup engine build on.
func matchPrefix(nodeSegment, querySegment string) bool {
	return strings.HasPrefix(querySegment, nodeSegment)
}

// matchGlob reports whether pattern (a shell glob over *, ?, [...]) matches
// querySegment as a whole. Path separators never occur inside a segment, so
// doublestar's "**" handling never triggers here; it is used purely as the
// glob engine the rest of the retrieved stack already depends on.
func matchGlob(pattern, querySegment string) bool {
	ok, err := doublestar.Match(pattern, querySegment)
	return err == nil && ok
}

// reverseInPlace reverses buf byte-for-byte. The lookup engine uses it so
// that suffix matching ("*S") can reuse the exact same prefix-scan machinery
// used for "S*" prefixes, just against the reversed segment and reversed
// suffix patterns.
func reverseInPlace(buf []byte) {
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
}

// reverseString returns the byte-reversal of s. Suffix children store their
// suffix text as written and are sorted by its reversal, computed with this
// function, so they stay binary searchable the same way prefix children are.
func reverseString(s string) string {
	b := []byte(s)
	reverseInPlace(b)
	return string(b)
}
