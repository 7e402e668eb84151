package authz

// finalizeTree runs the two recursive passes spec section 4.3 describes
// over root, computing min_rights/max_rights at every node so lookup can
// prune subtrees in O(1). Both passes must run after every structural
// change to the tree — there is no incremental update.
func finalizeTree(root *node) {
	if root.rights.Access.Sequence == NoAccess.Sequence {
		root.rights.Access = RootDefault
	}
	finalizeUp(root, root.rights.Access)
	finalizeDown(root, identityLimitedRights())
}

// finalizeUp computes, for every node, the effective access it would expose
// to a query that reaches exactly this node (its own Access if the builder
// set one, else the nearest ancestor's), then folds every child's resulting
// bounds into its own min/max via AND/OR. Root calls itself as its own
// parent, matching spec's "idempotent for the OR/AND of a set with itself".
func finalizeUp(n *node, parentEffective Access) {
	effective := n.rights.Access
	if effective.Sequence == NoAccess.Sequence {
		effective = parentEffective
	}

	n.rights.Min = effective.Rights
	n.rights.Max = effective.Rights

	n.forEachChild(func(c *node) {
		finalizeUp(c, effective)
		n.rights.Max |= c.rights.Max
		n.rights.Min &= c.rights.Min
	})
}

// finalizeDown propagates "**" rules downward: varRights starts as the
// combinator identity and, at every node carrying an any_recursive child,
// absorbs that child's bounds before recursing — so a "/a/**" rule's rights
// apply not just at "/a/**" itself but at every node below it, no matter how
// deep, exactly as spec section 4.3 requires.
func finalizeDown(n *node, varRights LimitedRights) {
	n.rights.Max |= varRights.Max
	n.rights.Min &= varRights.Min

	if n.pattern != nil && n.pattern.anyVar != nil {
		combineRightLimits(&varRights, n.pattern.anyVar.rights)
	}

	n.forEachChild(func(c *node) {
		finalizeDown(c, varRights)
	})
}
