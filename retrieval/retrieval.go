// Package retrieval implements the multi-stage retrieval pipeline:
// multi-query expansion, HyDE, per-variant vector search, and score fusion.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"planalign/llm"
	"planalign/store"
)

// Config holds retrieval engine configuration.
type Config struct {
	// SearchBreadth is the per-variant KNN depth.
	SearchBreadth int
	// TopK is the fused result count returned to callers.
	TopK int
}

// SearchOptions configures a single search operation.
type SearchOptions struct {
	Filter        store.SearchFilter
	TopK          int
	UseMultiQuery bool
	UseHyDE       bool
}

// SearchTrace records the breakdown of one retrieval operation.
type SearchTrace struct {
	Variants       []string `json:"variants"`
	HyDEUsed       bool     `json:"hyde_used"`
	VariantsFailed int      `json:"variants_failed"`
	RawResults     int      `json:"raw_results"`
	FusedResults   int      `json:"fused_results"`
	ElapsedMs      int64    `json:"elapsed_ms"`
}

// Engine runs the retrieval pipeline against the chunk store.
type Engine struct {
	store *store.Store
	chat  llm.Provider
	embed llm.Provider
	cfg   Config
}

// New creates a retrieval engine. chat drives query expansion and HyDE;
// embed produces the vectors searched against the store.
func New(s *store.Store, chat, embed llm.Provider, cfg Config) *Engine {
	if cfg.SearchBreadth == 0 {
		cfg.SearchBreadth = 10
	}
	if cfg.TopK == 0 {
		cfg.TopK = 5
	}
	return &Engine{store: s, chat: chat, embed: embed, cfg: cfg}
}

// Search runs the full pipeline for a query. Expansion and HyDE failures
// degrade to fewer variants rather than failing the search; only a search
// that produces no variant results at all returns an error.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, *SearchTrace, error) {
	topK := opts.TopK
	if topK == 0 {
		topK = e.cfg.TopK
	}

	start := time.Now()
	trace := &SearchTrace{}

	variants := []string{query}
	if opts.UseMultiQuery {
		variants = e.expandQueries(ctx, query)
	}

	if opts.UseHyDE {
		doc, err := e.hydeDocument(ctx, query)
		if err != nil {
			slog.Warn("retrieval: hyde generation failed, continuing without it", "error", err)
		} else {
			variants = append(variants, doc)
			trace.HyDEUsed = true
		}
	}
	trace.Variants = variants

	var resultSets [][]store.RetrievalResult
	var lastErr error
	for _, v := range variants {
		results, err := e.vectorSearch(ctx, v, opts.Filter)
		if err != nil {
			slog.Warn("retrieval: variant search failed", "error", err)
			trace.VariantsFailed++
			lastErr = err
			continue
		}
		trace.RawResults += len(results)
		resultSets = append(resultSets, results)
	}

	if len(resultSets) == 0 && lastErr != nil {
		return nil, trace, fmt.Errorf("all query variants failed: %w", lastErr)
	}

	fused := fuse(resultSets, topK)
	trace.FusedResults = len(fused)
	trace.ElapsedMs = time.Since(start).Milliseconds()

	slog.Debug("retrieval: search complete",
		"variants", len(variants), "raw", trace.RawResults,
		"fused", len(fused), "elapsed", time.Since(start).Round(time.Millisecond))

	return fused, trace, nil
}

// SearchForObjective retrieves action plan chunks relevant to one strategic
// objective, with multi-query and HyDE both enabled.
func (e *Engine) SearchForObjective(ctx context.Context, objectiveID, objectiveTitle string) ([]Result, *SearchTrace, error) {
	query := fmt.Sprintf("Actions and KPIs supporting %s", objectiveTitle)
	return e.Search(ctx, query, SearchOptions{
		Filter:        store.SearchFilter{Collection: store.CollectionAction, DocType: "action_plan"},
		UseMultiQuery: true,
		UseHyDE:       true,
	})
}

func (e *Engine) vectorSearch(ctx context.Context, text string, filter store.SearchFilter) ([]store.RetrievalResult, error) {
	embeddings, err := e.embed.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	return e.store.VectorSearch(ctx, embeddings[0], e.cfg.SearchBreadth, filter)
}
