// Package record implements the owned side of the entity model: the Record
// struct holding every field of a term or relationship, and the Store that
// owns all records of one graph.
//
// # Ownership
//
// A Store is owned by exactly one graph. Nothing outside the graph keeps a
// *Record across calls; public APIs hand out views that resolve the record by
// id on every access. Records are never deleted individually. They go away
// with the graph.
//
// # Identifiers
//
// Terms and relationships share one id namespace. An id is taken either by a
// record or by an entry of the alternate-id index, which maps alternate ids
// back to the canonical id of their record. Get consults that index when a
// direct lookup misses.
//
// # Concurrency
//
// Creation and lookup are safe for concurrent use. Field writes on a single
// record are not synchronized; ingestion partitions work by id so that one
// record is only ever written by one goroutine.
package record
