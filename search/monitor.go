package search

import "github.com/lorekeep/lorekeep/core"

// RetrievalMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results during search.
type RetrievalMonitor interface {
	Start(query string)
	AfterSimilaritySearch(chunks []core.ScoredChunk)
	AfterThresholdCut(chunks []core.ScoredChunk)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of RetrievalMonitor
type noopMonitor struct{}

var _ RetrievalMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                            {}
func (n *noopMonitor) AfterSimilaritySearch(_ []core.ScoredChunk) {}
func (n *noopMonitor) AfterThresholdCut(_ []core.ScoredChunk)     {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)              {}
