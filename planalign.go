// Package planalign audits how well an action plan implements a
// strategic plan. It parses both documents, builds a knowledge graph of
// objectives, KPIs and actions, retrieves action plan evidence per
// objective with multi-query and HyDE expansion, and blends an LLM
// judgment with a structural ontology score into per-objective and
// overall alignment levels.
package planalign

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"planalign/align"
	"planalign/chunker"
	"planalign/eval"
	"planalign/graph"
	"planalign/llm"
	"planalign/parser"
	"planalign/retrieval"
	"planalign/store"
)

// Engine is the main entry point for the alignment engine.
type Engine interface {
	// Analyze runs the full pipeline: ingest both plans, build the
	// knowledge graph, score every objective and produce the overall
	// assessment. Only one analysis runs at a time.
	Analyze(ctx context.Context, opts ...AnalyzeOption) (*Analysis, error)

	// Evaluate scores an analysis against the built-in ground truth.
	Evaluate(a *Analysis) *eval.Report

	// Search runs retrieval fusion over the combined collection, for
	// ad-hoc queries against the ingested plans.
	Search(ctx context.Context, query string) ([]retrieval.Result, error)

	// ClearCache removes the persisted snapshot so the next Analyze
	// runs the full pipeline even with WithCache.
	ClearCache() error

	// Store returns the underlying store for diagnostic access.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// ObjectiveAnalysis holds everything the pipeline produced for one
// strategic objective.
type ObjectiveAnalysis struct {
	SyncAssessment   align.Judgment       `json:"sync_assessment"`
	CombinedScore    float64              `json:"combined_score"`
	OntologyScore    float64              `json:"ontology_score"`
	AlignmentLevel   string               `json:"alignment_level"`
	OntologyData     align.OntologyResult `json:"ontology_data"`
	Gaps             []align.Gap          `json:"gaps,omitempty"`
	Improvements     string               `json:"improvements,omitempty"`
	GuidanceMessages []string             `json:"guidance_messages"`
}

// Analysis is the complete output of one pipeline run.
type Analysis struct {
	RunID            string                        `json:"run_id"`
	CreatedAt        string                        `json:"created_at"`
	Objectives       map[string]*ObjectiveAnalysis `json:"objectives"`
	OverallScore     float64                       `json:"overall_score"`
	OverallLevel     string                        `json:"overall_level"`
	ExecutiveSummary string                        `json:"executive_summary"`
	GuidanceMessages map[string][]string           `json:"guidance_messages"`
	KGSummary        graph.Stats                   `json:"kg_summary"`

	// Chunks holds the per-document chunk sets from this run, used for
	// chunk quality evaluation. Persisted in the snapshot, not here.
	Chunks map[string][]store.Chunk `json:"-"`
}

// AnalyzeOption configures an analysis run.
type AnalyzeOption func(*analyzeOptions)

type analyzeOptions struct {
	useCache bool
	progress func(objectiveID, status string)
}

// WithCache returns the previous run's snapshot when one exists
// instead of re-running the pipeline.
func WithCache() AnalyzeOption {
	return func(o *analyzeOptions) { o.useCache = true }
}

// WithProgress registers a callback invoked as each objective is
// processed.
func WithProgress(fn func(objectiveID, status string)) AnalyzeOption {
	return func(o *analyzeOptions) { o.progress = fn }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg       Config
	catalog   graph.Catalog
	store     *store.Store
	chatLLM   llm.Provider
	embedLLM  llm.Provider
	parsers   *parser.Registry
	chunkr    *chunker.Chunker
	retriever *retrieval.Engine
	judge     *align.Judge
	advisor   *align.Advisor

	runMu sync.Mutex // held for the duration of Analyze
}

// New creates an alignment engine with the given configuration.
func New(cfg Config) (Engine, error) {
	dbPath := cfg.resolveDBPath()

	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = 1536
	}

	s, err := store.New(dbPath, cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	chatLLM, err := llm.NewProvider(llm.Config{
		Provider: cfg.Chat.Provider,
		Model:    cfg.Chat.Model,
		BaseURL:  cfg.Chat.BaseURL,
		APIKey:   cfg.Chat.APIKey,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating chat provider: %w", err)
	}

	embedLLM, err := llm.NewProvider(llm.Config{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
		APIKey:   cfg.Embedding.APIKey,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}

	chunkr := chunker.New(chunker.Config{
		ChunkSize: cfg.ChunkSize,
		Overlap:   cfg.ChunkOverlap,
	})

	retriever := retrieval.New(s, chatLLM, embedLLM, retrieval.Config{
		SearchBreadth: cfg.SearchBreadth,
		TopK:          cfg.TopK,
	})

	return &engine{
		cfg:       cfg,
		catalog:   graph.DefaultCatalog(),
		store:     s,
		chatLLM:   chatLLM,
		embedLLM:  embedLLM,
		parsers:   parser.NewRegistry(),
		chunkr:    chunkr,
		retriever: retriever,
		judge:     align.NewJudge(chatLLM),
		advisor:   align.NewAdvisor(chatLLM),
	}, nil
}

// Analyze runs the full alignment pipeline.
func (e *engine) Analyze(ctx context.Context, opts ...AnalyzeOption) (*Analysis, error) {
	if !e.runMu.TryLock() {
		return nil, ErrAnalysisRunning
	}
	defer e.runMu.Unlock()

	options := &analyzeOptions{}
	for _, o := range opts {
		o(options)
	}
	progress := options.progress
	if progress == nil {
		progress = func(string, string) {}
	}

	if options.useCache {
		if snap, err := loadSnapshot(e.cfg.snapshotPath()); err == nil {
			slog.Info("analyze: using cached snapshot", "run_id", snap.AnalysisResults.RunID)
			snap.AnalysisResults.Chunks = snap.Chunks
			return snap.AnalysisResults, nil
		} else {
			slog.Info("analyze: no usable snapshot, running pipeline", "reason", err)
		}
	}

	start := time.Now()

	// 1. Ingest both plan documents.
	strategicText, sChunks, err := e.ingestPlan(ctx, e.cfg.StrategicPlanPath, store.CollectionStrategic)
	if err != nil {
		return nil, fmt.Errorf("ingesting strategic plan: %w", err)
	}
	actionText, aChunks, err := e.ingestPlan(ctx, e.cfg.ActionPlanPath, store.CollectionAction)
	if err != nil {
		return nil, fmt.Errorf("ingesting action plan: %w", err)
	}
	if err := e.buildCombined(ctx, sChunks, aChunks); err != nil {
		return nil, fmt.Errorf("building combined collection: %w", err)
	}

	// 2. Build the knowledge graph.
	view := graph.Build(e.catalog, strategicText, actionText).View()
	stats := view.Stats()
	slog.Info("analyze: knowledge graph built",
		"objectives", stats.Objectives, "kpis", stats.KPIs,
		"actions", stats.Actions, "risks", stats.Risks, "people", stats.People)

	// 3. Structural alignment per objective.
	ontology := align.ScoreOntology(view, e.catalog)

	analysis := &Analysis{
		RunID:            uuid.NewString(),
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
		Objectives:       make(map[string]*ObjectiveAnalysis, len(e.catalog.Objectives)),
		GuidanceMessages: make(map[string][]string, len(e.catalog.Objectives)),
		KGSummary:        stats,
		Chunks: map[string][]store.Chunk{
			"strategic": sChunks,
			"action":    aChunks,
		},
	}

	// 4. Per-objective assessment.
	var combinedScores []float64
	for _, def := range e.catalog.Objectives {
		progress(def.ID, "Analyzing...")

		oa := e.analyzeObjective(ctx, view, def, ontology[def.ID], progress)
		analysis.Objectives[def.ID] = oa
		analysis.GuidanceMessages[def.ID] = oa.GuidanceMessages
		combinedScores = append(combinedScores, oa.CombinedScore)

		progress(def.ID, fmt.Sprintf("Done (score: %.1f%%)", oa.CombinedScore*100))
	}

	// 5. Overall score and executive summary.
	analysis.OverallScore = align.Overall(combinedScores)
	analysis.OverallLevel = align.LevelForOverall(analysis.OverallScore)

	var summaryLines []string
	for _, def := range e.catalog.Objectives {
		oa := analysis.Objectives[def.ID]
		summaryLines = append(summaryLines,
			fmt.Sprintf("- %s: %.1f%% (%s)", def.ID, oa.CombinedScore*100, oa.AlignmentLevel))
	}
	summary, err := e.advisor.ExecutiveSummary(ctx, strings.Join(summaryLines, "\n"))
	if err != nil {
		slog.Warn("analyze: executive summary failed", "error", err)
	} else {
		analysis.ExecutiveSummary = summary
	}

	// 6. Persist the snapshot and run history.
	report := e.Evaluate(analysis)
	if err := saveSnapshot(e.cfg.snapshotPath(), analysis, report); err != nil {
		slog.Warn("analyze: saving snapshot failed", "error", err)
	}
	if err := e.store.RecordRun(ctx, analysis.RunID, analysis.OverallScore, analysis.OverallLevel); err != nil {
		slog.Warn("analyze: recording run failed", "error", err)
	}

	slog.Info("analyze: complete",
		"run_id", analysis.RunID,
		"overall_score", analysis.OverallScore,
		"overall_level", analysis.OverallLevel,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return analysis, nil
}

// analyzeObjective runs retrieval, judgment, blending and advice for
// one objective. Collaborator failures degrade to a neutral judgment
// instead of failing the run.
func (e *engine) analyzeObjective(ctx context.Context, view graph.View, def graph.ObjectiveDef, onto align.OntologyResult, progress func(string, string)) *ObjectiveAnalysis {
	mapping := align.MappingText(view, e.catalog, def.ID)
	details := objectiveDetails(view, def)

	var chunksText string
	results, _, rerr := e.retriever.SearchForObjective(ctx, def.ID, def.Title)
	if rerr != nil {
		slog.Warn("analyze: retrieval failed", "objective", def.ID, "error", rerr)
	} else {
		chunksText = formatChunks(results)
	}

	judgment, jerr := e.judge.Assess(ctx, def.ID, def.Title, details, chunksText, mapping)
	if jerr != nil {
		slog.Warn("analyze: judge failed, using neutral fallback", "objective", def.ID, "error", jerr)
		judgment = align.Judgment{
			Score:         0.5,
			Level:         align.LevelPartial,
			Confidence:    0.3,
			Justification: fmt.Sprintf("Assessment unavailable: %v", jerr),
			ParseStatus:   align.ParseFailed,
		}
	}

	// LLMs are poorly calibrated on raw float scores, so the agent
	// score is re-derived from the judge's own KPI coverage findings.
	agentScore := align.CorrectedAgentScore(judgment)
	judgment.Score = agentScore

	combined := align.CombinedScore(agentScore, onto.Score)
	level := align.LevelForCombined(combined)
	judgment.Level = level

	gaps := align.IdentifyGaps(view, def.ID)

	oa := &ObjectiveAnalysis{
		SyncAssessment: judgment,
		CombinedScore:  combined,
		OntologyScore:  onto.Score,
		AlignmentLevel: level,
		OntologyData:   onto,
		Gaps:           gaps,
	}

	if align.NeedsImprovement(combined) {
		progress(def.ID, "Generating improvements...")
		suggestions, err := e.advisor.SuggestImprovements(ctx, def.ID, def.Title, align.GapsText(view, def.ID), chunksText)
		if err != nil {
			slog.Warn("analyze: improvement suggestions failed", "objective", def.ID, "error", err)
		} else {
			oa.Improvements = suggestions
		}
	}

	gapsJSON, _ := json.Marshal(gaps)
	guidance, err := e.advisor.GuidanceMessages(ctx, def.ID, def.Title, combined, level, string(gapsJSON))
	if err != nil {
		slog.Warn("analyze: guidance generation failed", "objective", def.ID, "error", err)
	} else {
		oa.GuidanceMessages = guidance
	}

	return oa
}

// ingestPlan parses one plan document, chunks it, replaces its
// collection and embeds the new chunks. Returns the flattened text and
// the chunks as stored.
func (e *engine) ingestPlan(ctx context.Context, path, collection string) (string, []store.Chunk, error) {
	if path == "" {
		return "", nil, fmt.Errorf("%w: no path configured for %s", ErrEmptyDocument, collection)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", nil, fmt.Errorf("resolving path: %w", err)
	}

	hash, err := fileHash(absPath)
	if err != nil {
		return "", nil, fmt.Errorf("hashing file: %w", err)
	}

	format := parser.Format(absPath)
	filename := filepath.Base(absPath)

	docID, err := e.store.UpsertDocument(ctx, store.Document{
		Path:        absPath,
		Filename:    filename,
		Format:      format,
		DocType:     collection,
		ContentHash: hash,
		Status:      "processing",
	})
	if err != nil {
		return "", nil, fmt.Errorf("upserting document: %w", err)
	}

	parseStart := time.Now()
	parsed, err := e.parsers.ParseFile(ctx, absPath)
	if err != nil {
		e.store.UpdateDocumentStatus(ctx, docID, "error")
		if strings.Contains(err.Error(), "no parser") {
			return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
		}
		return "", nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	text := preprocessText(parsed.Flatten())
	if text == "" {
		e.store.UpdateDocumentStatus(ctx, docID, "error")
		return "", nil, fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}
	slog.Info("ingest: parsed document",
		"file", filename, "sections", len(parsed.Sections),
		"elapsed", time.Since(parseStart).Round(time.Millisecond))

	chunks := e.chunkr.Chunk(text, collection, e.cfg.ChunkStrategy)
	for i := range chunks {
		chunks[i].DocumentID = docID
		chunks[i].Collection = collection
	}

	chunkIDs, err := e.store.ReplaceCollection(ctx, collection, chunks)
	if err != nil {
		e.store.UpdateDocumentStatus(ctx, docID, "error")
		return "", nil, fmt.Errorf("storing chunks: %w", err)
	}
	for i := range chunks {
		chunks[i].ID = chunkIDs[i]
	}

	if err := e.embedChunks(ctx, chunks, chunkIDs); err != nil {
		e.store.UpdateDocumentStatus(ctx, docID, "error")
		return "", nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	e.store.UpdateDocumentStatus(ctx, docID, "ready")
	slog.Info("ingest: document ready", "file", filename, "collection", collection, "chunks", len(chunks))
	return text, chunks, nil
}

// buildCombined mirrors both plan collections into the combined
// collection so ad-hoc queries can search across documents.
func (e *engine) buildCombined(ctx context.Context, sChunks, aChunks []store.Chunk) error {
	combined := make([]store.Chunk, 0, len(sChunks)+len(aChunks))
	for _, ch := range append(append([]store.Chunk{}, sChunks...), aChunks...) {
		ch.ID = 0
		ch.Collection = store.CollectionCombined
		combined = append(combined, ch)
	}

	ids, err := e.store.ReplaceCollection(ctx, store.CollectionCombined, combined)
	if err != nil {
		return err
	}
	return e.embedChunks(ctx, combined, ids)
}

// Evaluate scores an analysis against the built-in ground truth.
func (e *engine) Evaluate(a *Analysis) *eval.Report {
	outcomes := make(map[string]eval.ObjectiveOutcome, len(a.Objectives))
	for objID, oa := range a.Objectives {
		titles := make(map[string]string, len(oa.OntologyData.Actions))
		for _, act := range oa.OntologyData.Actions {
			// Graph action IDs use underscores; ground truth uses dots.
			titles[strings.ReplaceAll(act.ID, "_", ".")] = act.Title
		}
		outcomes[objID] = eval.ObjectiveOutcome{
			CombinedScore: oa.CombinedScore,
			Level:         oa.AlignmentLevel,
			CoveredKPIs:   oa.SyncAssessment.CoveredKPIs,
			UncoveredKPIs: oa.SyncAssessment.UncoveredKPIs,
			ActionTitles:  titles,
		}
	}
	return eval.Evaluate(e.catalog, outcomes, a.Chunks)
}

// Search runs retrieval fusion over the combined collection.
func (e *engine) Search(ctx context.Context, query string) ([]retrieval.Result, error) {
	results, _, err := e.retriever.Search(ctx, query, retrieval.SearchOptions{
		Filter:        store.SearchFilter{Collection: store.CollectionCombined},
		UseMultiQuery: true,
		UseHyDE:       true,
	})
	return results, err
}

// ClearCache removes the persisted snapshot. A snapshot that does not
// exist is not an error.
func (e *engine) ClearCache() error {
	if err := os.Remove(e.cfg.snapshotPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing snapshot cache: %w", err)
	}
	return nil
}

// Store returns the underlying store for diagnostic access.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close shuts down the engine.
func (e *engine) Close() error {
	return e.store.Close()
}

// objectiveDetails returns the objective's description from the graph,
// falling back to its title.
func objectiveDetails(view graph.View, def graph.ObjectiveDef) string {
	for _, obj := range view.Objectives() {
		if obj.ID == def.ID && obj.Description != "" {
			return obj.Description
		}
	}
	return def.Title
}

// formatChunks renders retrieved chunks the way the judge prompt
// expects them: numbered, scored, separated by rules.
func formatChunks(results []retrieval.Result) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[Chunk %d] (score: %.3f)\n%s", i+1, r.Score, r.Text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// preprocessText normalizes whitespace while keeping structure
// markers: trailing spaces are stripped and runs of blank lines
// collapse to one.
func preprocessText(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	prevBlank := false
	for _, line := range lines {
		stripped := strings.TrimRight(line, " \t")
		isBlank := stripped == ""
		if isBlank && prevBlank {
			continue
		}
		cleaned = append(cleaned, stripped)
		prevBlank = isBlank
	}
	return strings.Join(cleaned, "\n")
}

// maxEmbedChars caps the text length sent to the embedding model.
const maxEmbedChars = 24000

// truncateForEmbed truncates text to maxEmbedChars on a word boundary.
func truncateForEmbed(text string) string {
	if len(text) <= maxEmbedChars {
		return text
	}
	cut := strings.LastIndex(text[:maxEmbedChars], " ")
	if cut <= 0 {
		cut = maxEmbedChars
	}
	return text[:cut]
}

// embedChunks generates embeddings for chunks in batches. A failed
// batch falls back to per-text embedding so one oversized text does
// not lose the whole batch.
func (e *engine) embedChunks(ctx context.Context, chunks []store.Chunk, chunkIDs []int64) error {
	const batchSize = 32
	var failed int

	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-i)
		for j := i; j < end; j++ {
			texts[j-i] = truncateForEmbed(chunks[j].Content)
		}

		embeddings, err := e.embedLLM.Embed(ctx, texts)
		if err != nil {
			slog.Warn("embedding batch failed, falling back to individual",
				"batch_start", i, "batch_end", end, "error", err)
			for j, text := range texts {
				single, serr := e.embedLLM.Embed(ctx, []string{text})
				if serr != nil || len(single) == 0 || len(single[0]) == 0 {
					slog.Warn("embedding single text failed", "chunk_id", chunkIDs[i+j], "error", serr)
					failed++
					continue
				}
				if serr := e.store.InsertEmbedding(ctx, chunkIDs[i+j], single[0]); serr != nil {
					slog.Warn("storing embedding failed", "chunk_id", chunkIDs[i+j], "error", serr)
					failed++
				}
			}
			continue
		}

		for j, emb := range embeddings {
			if err := e.store.InsertEmbedding(ctx, chunkIDs[i+j], emb); err != nil {
				slog.Warn("storing embedding failed", "chunk_id", chunkIDs[i+j], "error", err)
				failed++
			}
		}
	}

	if len(chunks) > 0 && failed == len(chunks) {
		return fmt.Errorf("all %d chunks failed embedding", len(chunks))
	}
	if failed > 0 {
		slog.Warn("some embeddings failed", "failed", failed, "total", len(chunks))
	}
	return nil
}

// fileHash computes the SHA-256 hash of a file's content.
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
