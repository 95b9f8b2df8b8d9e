// Command planalign audits how well an Action Plan implements a
// Strategic Plan and prints the per-objective alignment report.
//
// Typical usage:
//
//	go run ./cmd/planalign \
//	  --strategic ./docs/strategic_plan.pdf \
//	  --action ./docs/action_plan.docx \
//	  --chat-provider openai --chat-model gpt-4o-mini
//
// Re-running with --use-cache returns the previous run's results when
// the snapshot in the cache directory is still complete:
//
//	go run ./cmd/planalign --use-cache \
//	  --strategic ./docs/strategic_plan.pdf \
//	  --action ./docs/action_plan.docx
//
// Ad-hoc search over an already-analyzed plan pair:
//
//	go run ./cmd/planalign --use-cache \
//	  --strategic ./docs/strategic_plan.pdf \
//	  --action ./docs/action_plan.docx \
//	  --query "digital learning KPIs"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"strings"

	"planalign"
	"planalign/eval"
)

func main() {
	var (
		configPath    = flag.String("config", "", "Path to YAML config file (flags override it)")
		strategicPath = flag.String("strategic", "", "Path to the strategic plan document (pdf, docx, xlsx, txt, md)")
		actionPath    = flag.String("action", "", "Path to the action plan document")
		dbPath        = flag.String("db", "", "Path to SQLite database (default: ~/.planalign/planalign.db)")
		cacheDir      = flag.String("cache-dir", "", "Directory for the pipeline snapshot (default: ./cache)")
		useCache      = flag.Bool("use-cache", false, "Reuse the previous run's snapshot when complete")
		clearCache    = flag.Bool("clear-cache", false, "Delete the pipeline snapshot before running")
		query         = flag.String("query", "", "Run a retrieval query instead of printing the report (requires ingested plans)")
		chatProvider  = flag.String("chat-provider", "", "Chat LLM provider: openai, ollama")
		chatModel     = flag.String("chat-model", "", "Chat model name")
		chatBaseURL   = flag.String("chat-base-url", "", "Chat provider base URL override")
		chatAPIKey    = flag.String("chat-api-key", "", "Chat provider API key (default: from env)")
		embedProvider = flag.String("embed-provider", "", "Embedding provider: openai, ollama")
		embedModel    = flag.String("embed-model", "", "Embedding model name")
		embedBaseURL  = flag.String("embed-base-url", "", "Embedding provider base URL override")
		embedAPIKey   = flag.String("embed-api-key", "", "Embedding provider API key (default: from env)")
		embedDim      = flag.Int("embed-dim", 0, "Embedding dimension (default: 1536)")
		chunkStrategy = flag.String("chunk-strategy", "", "Chunking strategy: fixed, structural")
		chunkSize     = flag.Int("chunk-size", 0, "Chunk size in characters")
		chunkOverlap  = flag.Int("chunk-overlap", -1, "Chunk overlap in characters")
		topK          = flag.Int("top-k", 0, "Fused results per retrieval query")
		searchBreadth = flag.Int("search-breadth", 0, "KNN results per query variant before fusion")
		outputFile    = flag.String("output", "", "Path to write the full JSON report")
		verbose       = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := planalign.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = planalign.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
	}

	if *strategicPath != "" {
		cfg.StrategicPlanPath = *strategicPath
	}
	if *actionPath != "" {
		cfg.ActionPlanPath = *actionPath
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *cacheDir != "" {
		cfg.CacheDir = *cacheDir
	}
	if *chatProvider != "" {
		cfg.Chat.Provider = *chatProvider
	}
	if *chatModel != "" {
		cfg.Chat.Model = *chatModel
	}
	if *chatBaseURL != "" {
		cfg.Chat.BaseURL = *chatBaseURL
	}
	if *chatAPIKey != "" {
		cfg.Chat.APIKey = *chatAPIKey
	}
	if *embedProvider != "" {
		cfg.Embedding.Provider = *embedProvider
	}
	if *embedModel != "" {
		cfg.Embedding.Model = *embedModel
	}
	if *embedBaseURL != "" {
		cfg.Embedding.BaseURL = *embedBaseURL
	}
	if *embedAPIKey != "" {
		cfg.Embedding.APIKey = *embedAPIKey
	}
	if *embedDim > 0 {
		cfg.EmbeddingDim = *embedDim
	}
	if *chunkStrategy != "" {
		cfg.ChunkStrategy = *chunkStrategy
	}
	if *chunkSize > 0 {
		cfg.ChunkSize = *chunkSize
	}
	if *chunkOverlap >= 0 {
		cfg.ChunkOverlap = *chunkOverlap
	}
	if *topK > 0 {
		cfg.TopK = *topK
	}
	if *searchBreadth > 0 {
		cfg.SearchBreadth = *searchBreadth
	}

	if cfg.StrategicPlanPath == "" || cfg.ActionPlanPath == "" {
		log.Fatal("--strategic and --action are required (or set them in the config file)")
	}

	// Resolve API keys from well-known env vars when not given.
	if cfg.Chat.APIKey == "" && cfg.Chat.Provider == "openai" {
		cfg.Chat.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Embedding.APIKey == "" && cfg.Embedding.Provider == "openai" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Chat.APIKey == "" && cfg.Chat.Provider != "ollama" {
		log.Fatalf("API key required for chat provider %q: set --chat-api-key or OPENAI_API_KEY", cfg.Chat.Provider)
	}

	ctx := context.Background()

	engine, err := planalign.New(cfg)
	if err != nil {
		log.Fatalf("creating engine: %v", err)
	}
	defer engine.Close()

	if *clearCache {
		if err := engine.ClearCache(); err != nil {
			log.Fatalf("clearing cache: %v", err)
		}
	}

	opts := []planalign.AnalyzeOption{
		planalign.WithProgress(func(objectiveID, status string) {
			fmt.Fprintf(os.Stderr, "  [%s] %s\n", objectiveID, status)
		}),
	}
	if *useCache {
		opts = append(opts, planalign.WithCache())
	}

	fmt.Fprintf(os.Stderr, "Analyzing %s against %s...\n",
		cfg.ActionPlanPath, cfg.StrategicPlanPath)
	analysis, err := engine.Analyze(ctx, opts...)
	if err != nil {
		log.Fatalf("running analysis: %v", err)
	}

	if *query != "" {
		runQuery(ctx, engine, *query)
		return
	}

	report := engine.Evaluate(analysis)
	printReport(analysis)
	fmt.Println("\n=== Evaluation ===")
	fmt.Println(eval.FormatReport(report))

	if *outputFile != "" {
		out := map[string]any{
			"analysis":   analysis,
			"evaluation": report,
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			log.Fatalf("marshaling report: %v", err)
		}
		if err := os.WriteFile(*outputFile, data, 0o644); err != nil {
			log.Fatalf("writing %s: %v", *outputFile, err)
		}
		fmt.Fprintf(os.Stderr, "JSON report written to: %s\n", *outputFile)
	}
}

func runQuery(ctx context.Context, engine planalign.Engine, query string) {
	results, err := engine.Search(ctx, query)
	if err != nil {
		log.Fatalf("running query: %v", err)
	}
	for i, r := range results {
		fmt.Printf("[%d] score=%.3f hits=%d objective=%s section=%s\n",
			i+1, r.Score, r.RetrievalCount, r.Metadata["objective_id"], r.Metadata["section_type"])
		fmt.Println(indent(r.Text, "    "))
		fmt.Println()
	}
}

func printReport(a *planalign.Analysis) {
	fmt.Println("=== Alignment Report ===")
	fmt.Printf("Run %s (%s)\n\n", a.RunID, a.CreatedAt)

	for _, id := range sortedObjectiveIDs(a) {
		oa := a.Objectives[id]
		fmt.Printf("%s  %5.1f%%  %-8s  (agent %.2f, ontology %.2f)\n",
			id, oa.CombinedScore*100, oa.AlignmentLevel,
			oa.SyncAssessment.Score, oa.OntologyScore)
		if len(oa.SyncAssessment.UncoveredKPIs) > 0 {
			fmt.Printf("      uncovered KPIs: %s\n", strings.Join(oa.SyncAssessment.UncoveredKPIs, ", "))
		}
		for _, g := range oa.Gaps {
			switch {
			case g.KPIID != "":
				fmt.Printf("      gap: %s %s (%s, %s)\n", g.KPIID, g.KPITitle, g.Type, g.Severity)
			default:
				fmt.Printf("      gap: %s %s (%s, %s)\n", g.ActionID, g.ActionTitle, g.Type, g.Severity)
			}
		}
	}

	fmt.Printf("\nOverall: %.1f%% (%s)\n", a.OverallScore*100, a.OverallLevel)
	if a.ExecutiveSummary != "" {
		fmt.Println("\n=== Executive Summary ===")
		fmt.Println(a.ExecutiveSummary)
	}
}

func sortedObjectiveIDs(a *planalign.Analysis) []string {
	ids := make([]string, 0, len(a.Objectives))
	for id := range a.Objectives {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
