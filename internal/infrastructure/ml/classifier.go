package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"StorylineScanner/internal/ports"
)

// Model is the serialized topic head exported from training: a linear layer
// over the sentence embedding followed by softmax.
type Model struct {
	Version string      `json:"version"`
	Topics  []Topic     `json:"topics"`
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

// Topic is one entry of the model's fixed category set.
type Topic struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Classifier applies the pre-trained topic head to embeddings. The artifact
// is loaded once per run; a missing or inconsistent file is fatal before
// any database interaction.
type Classifier struct {
	model Model
}

var _ ports.TopicClassifier = (*Classifier)(nil)

// LoadClassifier reads and validates the model artifact.
func LoadClassifier(path string) (*Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classifier artifact: %w", err)
	}

	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse classifier artifact %s: %w", path, err)
	}

	if len(m.Topics) == 0 {
		return nil, fmt.Errorf("classifier artifact %s has no topics", path)
	}
	if len(m.Weights) != len(m.Topics) || len(m.Bias) != len(m.Topics) {
		return nil, fmt.Errorf("classifier artifact %s: %d topics but %d weight rows and %d biases",
			path, len(m.Topics), len(m.Weights), len(m.Bias))
	}
	dim := len(m.Weights[0])
	for i, row := range m.Weights {
		if len(row) != dim {
			return nil, fmt.Errorf("classifier artifact %s: weight row %d has %d columns, want %d", path, i, len(row), dim)
		}
	}

	return &Classifier{model: m}, nil
}

// Classify returns the most probable topic id and its probability.
func (c *Classifier) Classify(embedding []float64) (int64, float64, error) {
	dim := len(c.model.Weights[0])
	if len(embedding) != dim {
		return 0, 0, fmt.Errorf("embedding has %d dimensions, model expects %d", len(embedding), dim)
	}

	logits := make([]float64, len(c.model.Topics))
	for i, row := range c.model.Weights {
		sum := c.model.Bias[i]
		for j, w := range row {
			sum += w * embedding[j]
		}
		logits[i] = sum
	}

	probs := softmax(logits)
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	return c.model.Topics[best].ID, probs[best], nil
}

// Topics returns the model's ordered category set.
func (c *Classifier) Topics() []int64 {
	ids := make([]int64, len(c.model.Topics))
	for i, t := range c.model.Topics {
		ids[i] = t.ID
	}
	return ids
}

// Version reports the artifact's model version string.
func (c *Classifier) Version() string {
	return c.model.Version
}

func softmax(logits []float64) []float64 {
	max := math.Inf(-1)
	for _, l := range logits {
		if l > max {
			max = l
		}
	}

	probs := make([]float64, len(logits))
	sum := 0.0
	for i, l := range logits {
		probs[i] = math.Exp(l - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
