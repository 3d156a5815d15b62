// Package bisect localizes a boot failure to the smallest unit of mods that
// reproduces it.
//
// The search runs in two levels that share one routine, Eliminate. Level one
// orders the dependency clusters by size and finds the first cluster whose
// inclusion reproduces the failure. Level two orders that cluster's nodes by
// score and does the same. Every probe enables a prefix of the candidates,
// boots the application once through the Oracle, and reverts exactly the
// markers it flipped before the next probe starts.
//
// The failure is assumed to be monotonic over the chosen order: if a prefix
// reproduces it, every longer prefix does too. Ordering affects how useful the
// answer is, not whether Eliminate terminates or stays within its probe budget.
package bisect
