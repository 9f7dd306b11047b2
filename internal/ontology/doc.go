// Package ontology is the in-memory entity graph: terms, relationships, their
// is_a lineage and the documents they were imported from.
//
// # Records and views
//
// The Ontology owns one record per entity. Callers never hold records; they
// hold views (*Term, *Relationship), which are a weak handle on the graph
// plus an id. Every getter and setter on a view resolves the record again:
//
//	t, _ := o.GetTerm("GO:0008150")
//	name, err := t.Name()
//
// Once the graph is closed or collected, the same call fails with
// ontoerr.ErrStaleReference instead of returning made-up data.
//
// # Lineage
//
// is_a edges are not stored in records. Each entity kind has a lineage store
// caching the direct superclasses and subclasses of every id, kept symmetric
// by every mutation. Superclasses and Subclasses return a LineageHandler that
// both walks the cache breadth-first and edits direct edges.
//
// # Sets
//
// EntitySet binds to the graph of its first member. Set algebra between sets
// of different graphs fails with ontoerr.ErrCrossGraphOperation.
//
// # Ingestion
//
// Readers create entities with EnsureTerm/EnsureRelationship, apply clauses
// through view setters and the ID-level adders, and record is_a edges with
// LinkSuperclass. After every frame is in, Finalize merges imported lineage,
// repairs one-sided edges and creates stubs for undefined ids.
//
// # Concurrency
//
// Entity creation and lineage edits are safe during parallel ingestion as
// long as one entity is written by one goroutine. After ingestion, the graph
// follows a single-writer convention: concurrent readers are fine, a writer
// must be alone.
package ontology
