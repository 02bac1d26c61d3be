package ml

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeArtifact(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "topic_clf.json")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

const validArtifact = `{
	"version": "topic_clf_v1",
	"topics": [{"id": 3, "name": "transfers"}, {"id": 7, "name": "tactics"}],
	"weights": [[2, 0], [0, 2]],
	"bias": [0, 0]
}`

func TestLoadClassifierAndClassify(t *testing.T) {
	t.Parallel()

	clf, err := LoadClassifier(writeArtifact(t, validArtifact))
	if err != nil {
		t.Fatalf("LoadClassifier returned error: %v", err)
	}

	if got := clf.Topics(); len(got) != 2 || got[0] != 3 || got[1] != 7 {
		t.Fatalf("Topics = %v, want [3 7]", got)
	}

	topicID, probability, err := clf.Classify([]float64{1, 0})
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if topicID != 3 {
		t.Fatalf("topic = %d, want 3", topicID)
	}

	// softmax([2,0]) keeps the winner just under 0.881.
	want := 1 / (1 + math.Exp(-2))
	if math.Abs(probability-want) > 1e-9 {
		t.Fatalf("probability = %f, want %f", probability, want)
	}
}

func TestClassifyRejectsWrongDimensionality(t *testing.T) {
	t.Parallel()

	clf, err := LoadClassifier(writeArtifact(t, validArtifact))
	if err != nil {
		t.Fatalf("LoadClassifier returned error: %v", err)
	}
	if _, _, err := clf.Classify([]float64{1, 2, 3}); err == nil {
		t.Fatal("expected error for mismatched embedding dimensionality")
	}
}

func TestLoadClassifierMissingArtifact(t *testing.T) {
	t.Parallel()

	if _, err := LoadClassifier(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}

func TestLoadClassifierInconsistentArtifact(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		contents string
	}{
		{"no topics", `{"topics": [], "weights": [], "bias": []}`},
		{"bias mismatch", `{"topics": [{"id":1}], "weights": [[1]], "bias": [0, 0]}`},
		{"ragged weights", `{"topics": [{"id":1},{"id":2}], "weights": [[1,2],[3]], "bias": [0,0]}`},
		{"not json", `weights=`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadClassifier(writeArtifact(t, tc.contents)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
