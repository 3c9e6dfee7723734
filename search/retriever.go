// Copyright 2025 The lorekeep Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/lorekeep/lorekeep/core"
	"github.com/lorekeep/lorekeep/storage"
)

// Retriever answers semantic queries over indexed knowledge chunks,
// grouping hits per knowledge record and ranking groups by average score.
type Retriever struct {
	index     storage.VectorIndex
	knowledge storage.KnowledgeRepository
	logger    *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(
	index storage.VectorIndex,
	knowledge storage.KnowledgeRepository,
	opts ...Option,
) (*Retriever, error) {
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if knowledge == nil {
		return nil, ErrKnowledgeRepositoryRequired
	}

	r := &Retriever{
		index:     index,
		knowledge: knowledge,
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Search performs a similarity query restricted to the given scope, cuts
// matches below threshold, and returns per-knowledge result groups ordered
// by descending average score, each limited to chunksPerKnowledge chunks.
// An empty result is a valid, common outcome; index errors propagate.
func (r *Retriever) Search(ctx context.Context, query string, scope storage.ChunkFilter, topK int, threshold float64, chunksPerKnowledge int) ([]*core.SearchResult, error) {
	return r.SearchWithMonitor(ctx, query, scope, topK, threshold, chunksPerKnowledge, nil)
}

// SearchWithMonitor is Search with monitoring callbacks at each stage.
func (r *Retriever) SearchWithMonitor(ctx context.Context, query string, scope storage.ChunkFilter, topK int, threshold float64, chunksPerKnowledge int, monitor RetrievalMonitor) ([]*core.SearchResult, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if err := core.ValidateSearchParams(topK, threshold); err != nil {
		return nil, err
	}

	monitor.Start(query)

	matches, err := r.index.SimilaritySearch(ctx, query, scope, topK)
	if err != nil {
		r.logger.Error("error querying vector index", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterSimilaritySearch(matches)

	// Threshold cut
	surviving := make([]core.ScoredChunk, 0, len(matches))
	for _, match := range matches {
		if match.Score >= threshold {
			surviving = append(surviving, match)
		}
	}
	monitor.AfterThresholdCut(surviving)

	// Group by knowledge record, preserving the index's score order within
	// each group
	groups := make(map[core.ID][]core.ScoredChunk)
	order := make([]core.ID, 0, len(surviving))
	for _, match := range surviving {
		id := match.Chunk.Metadata.KnowledgeID
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], match)
	}

	results := make([]*core.SearchResult, 0, len(order))
	for _, id := range order {
		chunks := groups[id]

		record, err := r.knowledge.Get(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			// stale vectors for a deleted record
			r.logger.Warn("dropping hits for missing knowledge record", "knowledgeId", id)
			continue
		}
		if err != nil {
			r.logger.Error("error loading knowledge record", "knowledgeId", id, "err", err)
			return nil, err
		}

		total := 0.0
		for _, chunk := range chunks {
			total += chunk.Score
		}
		avg := total / float64(len(chunks))

		if chunksPerKnowledge > 0 && len(chunks) > chunksPerKnowledge {
			chunks = chunks[:chunksPerKnowledge]
		}

		results = append(results, &core.SearchResult{
			KnowledgeID: id,
			Title:       record.Title,
			Type:        record.Type,
			Chunks:      chunks,
			AvgScore:    avg,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].AvgScore > results[j].AvgScore
	})

	monitor.Finish(results)
	return results, nil
}
