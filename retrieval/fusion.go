package retrieval

import (
	"sort"

	"planalign/store"
)

// fusionKeyLen is the content prefix length used to identify a chunk across
// query variants. Chunk IDs are not stable between runs, so fusion keys on
// the text itself.
const fusionKeyLen = 100

// multiHitBoost is the per-extra-retrieval score multiplier applied after
// accumulation.
const multiHitBoost = 0.1

// Result is a fused retrieval hit. Score accumulates over every query
// variant that returned the chunk; RetrievalCount says how many did.
type Result struct {
	Text           string            `json:"text"`
	Metadata       map[string]string `json:"metadata"`
	Score          float64           `json:"score"`
	RetrievalCount int               `json:"retrieval_count"`
}

// fuse merges per-variant result lists. A chunk seen by several variants
// sums their scores, then gets a multiplicative boost per extra hit, and
// the merged set is sorted by final score and trimmed to topK.
func fuse(resultSets [][]store.RetrievalResult, topK int) []Result {
	merged := make(map[string]*Result)
	var order []string

	for _, set := range resultSets {
		for _, r := range set {
			key := fusionKey(r.Content)
			if entry, ok := merged[key]; ok {
				entry.Score += r.Score
				entry.RetrievalCount++
				continue
			}
			merged[key] = &Result{
				Text: r.Content,
				Metadata: map[string]string{
					"collection":   r.Collection,
					"doc_type":     r.DocType,
					"objective_id": r.ObjectiveID,
					"section_type": r.SectionType,
					"filename":     r.Filename,
				},
				Score:          r.Score,
				RetrievalCount: 1,
			}
			order = append(order, key)
		}
	}

	results := make([]Result, 0, len(merged))
	for _, key := range order {
		entry := merged[key]
		entry.Score *= 1 + multiHitBoost*float64(entry.RetrievalCount-1)
		results = append(results, *entry)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

func fusionKey(content string) string {
	if len(content) > fusionKeyLen {
		return content[:fusionKeyLen]
	}
	return content
}
