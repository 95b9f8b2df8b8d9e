// Package chunker splits plan documents into tagged chunks for indexing.
//
// Two strategies are available: "fixed" applies recursive character
// splitting with a separator cascade, while "structural" splits on
// section boundaries and keeps tables intact. Every chunk carries an
// inferred objective ID and section type so retrieval can filter on
// them later.
package chunker

import (
	"strings"

	"planalign/store"
)

const (
	// StrategyFixed splits on a separator cascade into size-bounded
	// chunks with character overlap between neighbours.
	StrategyFixed = "fixed"
	// StrategyStructural splits on major section breaks and headings,
	// keeping table blocks whole.
	StrategyStructural = "structural"

	defaultChunkSize = 800
	defaultOverlap   = 150
)

// separators is the cascade tried in order by the fixed strategy. The
// first entry matches the divider rule used between plan sections.
var separators = []string{"\n================", "\n---", "\n\n", "\n", " "}

// Config controls chunk sizing. Zero values pick the defaults.
type Config struct {
	ChunkSize int
	Overlap   int
}

// Chunker produces store.Chunk values from raw document text.
type Chunker struct {
	cfg Config
}

// New returns a Chunker, filling in default sizes where cfg leaves
// them zero.
func New(cfg Config) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = defaultOverlap
	}
	return &Chunker{cfg: cfg}
}

// Chunk splits text using the named strategy and tags every chunk with
// the document type plus inferred objective and section metadata.
// Unknown strategy names fall back to the fixed strategy.
func (c *Chunker) Chunk(text, docType, strategy string) []store.Chunk {
	var pieces []string
	switch strategy {
	case StrategyStructural:
		pieces = c.splitStructural(text)
	default:
		strategy = StrategyFixed
		pieces = recursiveSplit(text, separators, c.cfg.ChunkSize, c.cfg.Overlap)
	}

	chunks := make([]store.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		chunks = append(chunks, store.Chunk{
			Content:     piece,
			DocType:     docType,
			ObjectiveID: ExtractObjectiveID(piece),
			SectionType: ExtractSectionType(piece),
			Strategy:    strategy,
			ChunkIndex:  len(chunks),
			TokenCount:  estimateTokens(piece),
		})
	}
	return chunks
}

// splitStructural cuts the document at section boundaries. Oversized
// sections that contain no table are re-split with the fixed cascade
// so a single runaway section cannot blow past the size bound.
func (c *Chunker) splitStructural(text string) []string {
	sections := splitSections(text)

	var out []string
	for _, sec := range sections {
		if len(sec) <= 2*c.cfg.ChunkSize || containsTable(sec) {
			out = append(out, sec)
			continue
		}
		out = append(out, recursiveSplit(sec, separators, c.cfg.ChunkSize, c.cfg.Overlap)...)
	}
	return out
}

// estimateTokens approximates token count as one token per four
// characters, which is close enough for budgeting embeddings.
func estimateTokens(s string) int {
	n := len(s) / 4
	if n == 0 && s != "" {
		n = 1
	}
	return n
}
