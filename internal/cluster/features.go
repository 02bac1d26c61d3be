package cluster

import "fmt"

// FeatureMatrix concatenates each embedding with a one-hot encoding of the
// row's topic over a fixed category set. The topic block biases the
// clustering toward grouping same-topic articles while the embedding still
// separates sub-narratives within a topic.
//
// A nil topic (row not classified yet) or a topic outside the category set
// contributes an all-zero block, so every row keeps the same width.
func FeatureMatrix(embeddings [][]float64, topics []*int64, categories []int64) ([][]float64, error) {
	if len(embeddings) != len(topics) {
		return nil, fmt.Errorf("got %d embeddings for %d topics", len(embeddings), len(topics))
	}

	index := make(map[int64]int, len(categories))
	for i, id := range categories {
		index[id] = i
	}

	features := make([][]float64, len(embeddings))
	for i, emb := range embeddings {
		row := make([]float64, len(emb)+len(categories))
		copy(row, emb)
		if topics[i] != nil {
			if pos, ok := index[*topics[i]]; ok {
				row[len(emb)+pos] = 1
			}
		}
		features[i] = row
	}

	return features, nil
}
