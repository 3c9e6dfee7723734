// Package memvec provides an in-memory implementation of storage.VectorIndex.
//
// The index delegates embedding generation to an ai.Embedder and ranks query
// matches by cosine similarity. It honors the same metadata filter semantics
// as any other backend, which makes it a drop-in stand-in for external
// vector databases in tests and small deployments.
package memvec
