package planalign

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"planalign/eval"
	"planalign/graph"
	"planalign/store"
)

// snapshot is the on-disk cache of a pipeline run.
type snapshot struct {
	AnalysisResults *Analysis                `json:"analysis_results"`
	Chunks          map[string][]store.Chunk `json:"chunks"`
	EvalResults     *eval.Report             `json:"eval_results,omitempty"`
	KGSummary       graph.Stats              `json:"kg_summary"`
}

// saveSnapshot writes the run's results to the cache file, creating
// the cache directory as needed.
func saveSnapshot(path string, a *Analysis, report *eval.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(snapshot{
		AnalysisResults: a,
		Chunks:          a.Chunks,
		EvalResults:     report,
		KGSummary:       a.KGSummary,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	// Write via a temp file so a crash mid-write cannot leave a
	// truncated cache behind.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// loadSnapshot reads the cache file. A missing file, unparseable JSON
// or an incomplete snapshot all return ErrNoSnapshot so the caller
// falls through to a fresh run.
func loadSnapshot(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSnapshot, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSnapshot, err)
	}
	if snap.AnalysisResults == nil || len(snap.AnalysisResults.Objectives) == 0 || snap.Chunks == nil {
		return nil, fmt.Errorf("%w: snapshot incomplete", ErrNoSnapshot)
	}
	return &snap, nil
}
