package authz

import "strings"

// anyRepository is the sentinel repository name substituted when a caller
// passes a nil repository, matching spec section 4.6.
const anyRepository = "[ANY_REPOSITORY]"

// FilteredTree is the rule tree specialized to one (user, repository) pair,
// plus the reusable lookup state spec section 3 bundles with it so
// successive queries against the same tree can reuse a partial walk.
type FilteredTree struct {
	user        *string
	repository  string
	root        *node
	lookupState lookupState
}

func newFilteredTree(acls []ACL, user *string, repository string) (*FilteredTree, error) {
	root, err := buildTree(acls, user, repository)
	if err != nil {
		return nil, err
	}
	finalizeTree(root)
	return &FilteredTree{user: user, repository: repository, root: root}, nil
}

// Handle owns the parsed ACL list and the per-(user,repository) cache of
// filtered trees built from it. It is a plain container, not a singleton —
// multiple handles are fully independent and may be used concurrently with
// each other, though a single handle must be serialized by its caller (spec
// section 5: the cache is mutated on every query).
type Handle struct {
	acls  []ACL
	cache *treeCache
}

// NewHandle builds a Handle over acls with the given MRU cache capacity. A
// cacheSize <= 0 uses DefaultCacheSize.
func NewHandle(acls []ACL, cacheSize int) *Handle {
	return &Handle{
		acls:  acls,
		cache: newTreeCache(cacheSize),
	}
}

// treeFor returns the filtered tree for (user, repository), building and
// caching it on a miss.
func (h *Handle) treeFor(user *string, repository string) (*FilteredTree, error) {
	if tree, ok := h.cache.get(user, repository); ok {
		return tree, nil
	}

	tree, err := newFilteredTree(h.acls, user, repository)
	if err != nil {
		return nil, err
	}
	h.cache.put(user, repository, tree)
	return tree, nil
}

// CheckAccess is the top-level facade spec section 4.6 describes: does user
// have requiredAccess on path within repository?
//
//   - repository == nil substitutes a sentinel meaning "no specific
//     repository was named".
//   - path == nil answers "does the user have any access at all, anywhere
//     in this (user, repository)'s tree" rather than checking one path.
//   - otherwise path must start with "/"; the Recursive bit of
//     requiredAccess (if set) asks whether every path in the subtree
//     rooted at path would be granted the remaining required rights.
func (h *Handle) CheckAccess(repository *string, path *string, user *string, requiredAccess Rights) (bool, error) {
	repoName := anyRepository
	if repository != nil {
		repoName = *repository
	}

	tree, err := h.treeFor(user, repoName)
	if err != nil {
		return false, err
	}

	if path == nil {
		required, _ := requiredAccess.SplitRecursive()
		return tree.root.rights.Max&required == required, nil
	}

	if !strings.HasPrefix(*path, "/") {
		return false, ErrMalformedPath
	}

	required, recursive := requiredAccess.SplitRecursive()
	return tree.lookupState.lookup(tree.root, *path, required, recursive), nil
}
