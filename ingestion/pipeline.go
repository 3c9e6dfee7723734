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

package ingestion

import (
	"context"
	"log/slog"
	"path"
	"runtime"
	"strings"

	"github.com/panjf2000/ants/v2"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/lorekeep/lorekeep/core"
	"github.com/lorekeep/lorekeep/extract"
	"github.com/lorekeep/lorekeep/storage"
)

const (
	// defaultChunkTokens is the target chunk size in token-equivalent units.
	defaultChunkTokens = 800

	// minSplitChars is the manual-text length below which the text is
	// indexed as a single chunk instead of being split.
	minSplitChars = 500
)

// Pipeline turns stored raw documents and manually authored text into
// indexed, searchable chunks. Uploaded files are processed asynchronously on
// a worker pool behind a per-knowledge parse-job state machine; manual text
// is embedded synchronously.
type Pipeline struct {
	knowledge storage.KnowledgeRepository
	blobs     storage.BlobStore
	index     storage.VectorIndex
	extractor extract.Extractor
	splitter  textsplitter.TextSplitter

	pool            *ants.Pool
	jobs            *jobTracker
	replaceExisting bool
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for background parse jobs.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithExtractor sets a custom text extractor.
// Default routes by filename extension.
func WithExtractor(extractor extract.Extractor) Option {
	return func(p *Pipeline) error {
		if extractor != nil {
			p.extractor = extractor
		}
		return nil
	}
}

// WithSplitter sets a custom text splitter.
// Default is a token splitter with 800-token chunks and no overlap.
func WithSplitter(splitter textsplitter.TextSplitter) Option {
	return func(p *Pipeline) error {
		if splitter != nil {
			p.splitter = splitter
		}
		return nil
	}
}

// WithReplaceExisting controls whether Submit deletes a knowledge record's
// existing vectors before indexing the new upload. Default is false, so
// chunks from a previous upload survive until explicitly deleted.
func WithReplaceExisting(replace bool) Option {
	return func(p *Pipeline) error {
		p.replaceExisting = replace
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	knowledge storage.KnowledgeRepository,
	blobs storage.BlobStore,
	index storage.VectorIndex,
	opts ...Option,
) (*Pipeline, error) {
	if knowledge == nil {
		return nil, ErrKnowledgeRepositoryRequired
	}
	if blobs == nil {
		return nil, ErrBlobStoreRequired
	}
	if index == nil {
		return nil, ErrVectorIndexRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		knowledge: knowledge,
		blobs:     blobs,
		index:     index,
		extractor: extract.NewAuto(),
		splitter: textsplitter.NewTokenSplitter(
			textsplitter.WithChunkSize(defaultChunkTokens),
			textsplitter.WithChunkOverlap(0),
		),
		pool:   pool,
		jobs:   newJobTracker(),
		logger: slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Submit schedules a parse job for the knowledge record's uploaded file and
// returns immediately; the returned handle can be polled for job state.
// Returns ErrJobAlreadyRunning while a previous job for the same record has
// not reached a terminal state. Processing errors never propagate here; they
// end the job in the FAILED state.
func (p *Pipeline) Submit(ctx context.Context, knowledgeID core.ID, sourceKey string) (*JobHandle, error) {
	if err := p.jobs.begin(knowledgeID); err != nil {
		return nil, err
	}
	p.mirrorState(ctx, knowledgeID, core.JobPending)

	err := p.pool.Submit(func() {
		p.process(context.Background(), knowledgeID, sourceKey)
	})
	if err != nil {
		p.setState(ctx, knowledgeID, core.JobFailed)
		return nil, err
	}

	return &JobHandle{id: knowledgeID, tracker: p.jobs}, nil
}

// JobState returns the current parse-job state for a knowledge record and
// whether a job was ever submitted for it.
func (p *Pipeline) JobState(knowledgeID core.ID) (core.JobState, bool) {
	return p.jobs.state(knowledgeID)
}

// EmbedMarkdown indexes manually authored text for a knowledge record,
// bypassing the parse-job state machine. Short text becomes a single chunk;
// longer text goes through the splitter. Blank input is a no-op. Indexing
// errors are logged, not returned.
func (p *Pipeline) EmbedMarkdown(ctx context.Context, knowledgeID core.ID, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	spaceID, err := p.knowledge.SpaceIDFor(ctx, knowledgeID)
	if err != nil {
		p.logger.Error("error resolving space for manual embedding", "knowledgeId", knowledgeID, "err", err)
		return
	}

	meta := core.ChunkMetadata{
		KnowledgeID: knowledgeID,
		SpaceID:     spaceID,
		Source:      "manual",
	}

	var chunks []core.DocumentChunk
	if len(text) < minSplitChars {
		chunks = []core.DocumentChunk{core.NewDocumentChunk(text, meta)}
	} else {
		parts, splitErr := p.splitter.SplitText(text)
		if splitErr != nil {
			p.logger.Error("error splitting manual text", "knowledgeId", knowledgeID, "err", splitErr)
			return
		}
		for _, part := range parts {
			if strings.TrimSpace(part) == "" {
				continue
			}
			chunks = append(chunks, core.NewDocumentChunk(part, meta))
		}
	}

	if err := p.index.Add(ctx, chunks); err != nil {
		p.logger.Error("error indexing manual text", "knowledgeId", knowledgeID, "err", err)
	}
}

// DeleteVectorsByKnowledge removes every indexed chunk belonging to the
// knowledge record, preventing stale search hits after a record or its
// source file is removed. Errors are logged, not returned.
func (p *Pipeline) DeleteVectorsByKnowledge(ctx context.Context, knowledgeID core.ID) {
	filter := storage.ChunkFilter{KnowledgeIDs: []core.ID{knowledgeID}}
	if err := p.index.Delete(ctx, filter); err != nil {
		p.logger.Error("error deleting vectors", "knowledgeId", knowledgeID, "err", err)
	}
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// process runs the parse job off the request path: download, extract,
// split, index. Any step failure ends the job as FAILED; chunks already
// indexed before the failure are left in place.
func (p *Pipeline) process(ctx context.Context, knowledgeID core.ID, sourceKey string) {
	p.setState(ctx, knowledgeID, core.JobRunning)

	if err := p.buildChunks(ctx, knowledgeID, sourceKey); err != nil {
		p.logger.Error("parse job failed", "knowledgeId", knowledgeID, "sourceKey", sourceKey, "err", err)
		p.setState(ctx, knowledgeID, core.JobFailed)
		return
	}

	p.setState(ctx, knowledgeID, core.JobDone)
	p.logger.Info("parse job finished", "knowledgeId", knowledgeID, "sourceKey", sourceKey)
}

func (p *Pipeline) buildChunks(ctx context.Context, knowledgeID core.ID, sourceKey string) error {
	spaceID, err := p.knowledge.SpaceIDFor(ctx, knowledgeID)
	if err != nil {
		return err
	}

	stream, err := p.blobs.Download(ctx, sourceKey)
	if err != nil {
		return err
	}
	defer stream.Close()

	segments, err := p.extractor.Extract(ctx, stream, path.Base(sourceKey))
	if err != nil {
		return err
	}

	texts := make([]string, 0, len(segments))
	for _, segment := range segments {
		if strings.TrimSpace(segment.Text) == "" {
			continue
		}
		texts = append(texts, segment.Text)
	}
	if len(texts) == 0 {
		return nil
	}

	parts, err := p.splitter.SplitText(strings.Join(texts, "\n\n"))
	if err != nil {
		return err
	}

	meta := core.ChunkMetadata{
		KnowledgeID: knowledgeID,
		SpaceID:     spaceID,
		Source:      path.Base(sourceKey),
		BlobKey:     sourceKey,
	}

	chunks := make([]core.DocumentChunk, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		chunks = append(chunks, core.NewDocumentChunk(part, meta))
	}
	if len(chunks) == 0 {
		return nil
	}

	if p.replaceExisting {
		filter := storage.ChunkFilter{KnowledgeIDs: []core.ID{knowledgeID}}
		if err := p.index.Delete(ctx, filter); err != nil {
			return err
		}
	}

	return p.index.Add(ctx, chunks)
}

// setState records a transition in the tracker and mirrors it on the
// knowledge record so listings can show it without consulting the tracker.
func (p *Pipeline) setState(ctx context.Context, knowledgeID core.ID, state core.JobState) {
	p.jobs.set(knowledgeID, state)
	p.mirrorState(ctx, knowledgeID, state)
}

func (p *Pipeline) mirrorState(ctx context.Context, knowledgeID core.ID, state core.JobState) {
	if err := p.knowledge.UpdateParseJob(ctx, knowledgeID, state); err != nil {
		p.logger.Error("error mirroring parse-job state", "knowledgeId", knowledgeID, "state", state, "err", err)
	}
}
