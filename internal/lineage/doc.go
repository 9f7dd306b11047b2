// Package lineage caches the immediate is_a neighbors of every id.
//
// For ids a and b the store maintains b ∈ Sup(a) ⇔ a ∈ Sub(b). AddEdge,
// RemoveEdge, ClearSup and ClearSub update both sides together. AddSup and
// Merge may leave one-sided edges behind; Symmetrize repairs them and Verify
// reports the first one left.
//
// The store is safe for concurrent use. Several ingestion workers may attach
// children to the same parent at once.
package lineage
