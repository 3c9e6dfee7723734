// Package search provides semantic retrieval over indexed knowledge.
//
// The Retriever type runs a similarity query against the vector index,
// discards matches below a caller-supplied threshold, groups survivors by
// their knowledge record, and ranks the groups by average score. Empty
// results signal "nothing relevant" and are never an error.
package search
