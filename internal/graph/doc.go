// Package graph partitions the loaded mods into clusters that can be toggled
// independently of one another, and orders the members of each cluster by
// dependency depth.
//
// # Model
//
// A Graph is one cluster: every mod reachable from every other through
// required requirements, in either direction. Reserved platform IDs (the game
// itself and its loader) never create edges. A Graph holds Nodes, and a Node
// holds the mods that must always be toggled together. Mods that require each
// other in a cycle share a Node.
//
//	Registry
//	├── Graph 0 ── Node{a} ── Node{b, c}   (b and c require each other)
//	├── Graph 1 ── Node{d}
//	└── Graph 2 ── (tombstone, merged into Graph 0)
//
// # Registry
//
// All Graphs and Nodes of one run live in a Registry arena together with the
// mod ID to Node and mod ID to Graph indexes. Merging tombstones the absorbed
// entry and repoints the indexes; Compact drops tombstones from iteration.
// Nothing is process-global, so two registries never share state.
//
// # Scores
//
// A Node's Score is its depth below the Nodes that depend on it. Nodes nothing
// depends on score 0, and for every required edge "X depends on Y" between two
// distinct Nodes, Score(Y) >= Score(X) + 1. Scores are computed on the
// condensation of the cluster, which is acyclic, so propagation always ends.
//
// Cluster size and Node score only order the search. Nothing in this package
// assumes a particular ordering is correct.
package graph
