package authz

// ACL is the normalized, group-expanded access rule the upstream
// authorization-file parser hands us. internal/authz never parses text,
// never expands groups, and never decides whether a principal belongs to a
// group — it only asks an ACL to evaluate itself against the active query.
//
// See internal/authzspec for a concrete parser/evaluator implementation;
// this interface is the entire surface internal/authz depends on.
type ACL interface {
	// SequenceNumber is this ACL's position in the source configuration,
	// non-decreasing across the list the parser hands us. Ties never
	// occur between distinct ACLs; the builder uses it purely to
	// resolve precedence among ACLs that reach the same leaf.
	SequenceNumber() int

	// Rule is the sequence of path segments this ACL's pattern compiles
	// to, each carrying the SegmentKind the parser classified it as.
	Rule() []Segment

	// Evaluate returns the rights this single ACL grants to user on
	// repository, and whether the ACL applies at all. A user of nil
	// denotes the anonymous principal. Returning applies=false is
	// distinct from returning RightsNone: an ACL that simply doesn't
	// target this (user, repository) pair must not contribute an Access
	// at any node, not even one granting no rights.
	Evaluate(user *string, repository string) (rights Rights, applies bool)
}
