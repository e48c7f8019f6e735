package retrieval

import (
	"sort"

	"github.com/studypal/textbase/model"
)

// fuse merges the lexical and vector candidate lists into one ranked result
// list. Scores are min-max normalized per list before weighting, so results
// stay comparable regardless of the raw score ranges the store returns.
// Ties are broken by ascending chunk index to keep the ordering stable.
func fuse(lexical []*model.Chunk, vector []*model.Chunk, vectorWeight float64, lexicalWeight float64) []*model.RetrievalResult {
	lexicalScores := normalize(chunkScores(lexical, func(c *model.Chunk) float64 { return c.LexicalScore }))
	vectorScores := normalize(chunkScores(vector, func(c *model.Chunk) float64 { return c.VectorScore }))

	merged := map[string]*model.RetrievalResult{}
	order := []string{}

	for i, chunk := range lexical {
		result := &model.RetrievalResult{
			Chunk:        chunk,
			LexicalScore: lexicalScores[i],
			Citation:     model.NewCitation(chunk, ""),
		}
		merged[chunk.Fingerprint] = result
		order = append(order, chunk.Fingerprint)
	}

	for i, chunk := range vector {
		if existing, ok := merged[chunk.Fingerprint]; ok {
			existing.VectorScore = vectorScores[i]
			continue
		}
		result := &model.RetrievalResult{
			Chunk:       chunk,
			VectorScore: vectorScores[i],
			Citation:    model.NewCitation(chunk, ""),
		}
		merged[chunk.Fingerprint] = result
		order = append(order, chunk.Fingerprint)
	}

	results := make([]*model.RetrievalResult, 0, len(order))
	for _, fingerprint := range order {
		result := merged[fingerprint]
		result.Score = vectorWeight*result.VectorScore + lexicalWeight*result.LexicalScore
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ChunkIndex < results[j].Chunk.ChunkIndex
	})

	return results
}

// chunkScores extracts the raw score of each chunk in list order.
func chunkScores(chunks []*model.Chunk, score func(*model.Chunk) float64) []float64 {
	scores := make([]float64, len(chunks))
	for i, chunk := range chunks {
		scores[i] = score(chunk)
	}
	return scores
}

// normalize rescales scores into [0, 1] with min-max normalization. When all
// scores are equal every candidate gets full weight, so a single-candidate
// list still ranks above absent results.
func normalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}

	min, max := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	normalized := make([]float64, len(scores))
	if max == min {
		for i := range normalized {
			normalized[i] = 1
		}
		return normalized
	}
	for i, s := range scores {
		normalized[i] = (s - min) / (max - min)
	}
	return normalized
}
