package diagnosis

import (
	"Medicare/apperrors"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

const leaf = -1

// Tree is one decision tree in the flattened array layout used by
// scikit-learn: node i splits on Feature[i] <= Threshold[i], leaves have
// ChildrenLeft[i] == -1 and carry a class histogram in Value[i].
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// Forest is a random forest classifier. It is immutable after load and
// safe for concurrent use.
type Forest struct {
	Classes   []string `json:"classes"`
	NFeatures int      `json:"n_features"`
	Trees     []Tree   `json:"trees"`
}

// LoadForest reads and validates a model artifact.
func LoadForest(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read disease model")
	}
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "decode disease model %s", path)
	}
	if err := f.validate(); err != nil {
		return nil, errors.Wrapf(err, "disease model %s", path)
	}
	return &f, nil
}

func (f *Forest) validate() error {
	if len(f.Classes) == 0 {
		return errors.New("model has no classes")
	}
	if f.NFeatures <= 0 {
		return errors.New("model has no features")
	}
	if len(f.Trees) == 0 {
		return errors.New("model has no trees")
	}
	for t, tree := range f.Trees {
		n := len(tree.ChildrenLeft)
		if n == 0 || len(tree.ChildrenRight) != n || len(tree.Feature) != n || len(tree.Threshold) != n || len(tree.Value) != n {
			return errors.Errorf("tree %d: node arrays disagree in length", t)
		}
		for i := 0; i < n; i++ {
			if len(tree.Value[i]) != len(f.Classes) {
				return errors.Errorf("tree %d node %d: value width %d, want %d", t, i, len(tree.Value[i]), len(f.Classes))
			}
			if tree.ChildrenLeft[i] == leaf {
				continue
			}
			l, r := tree.ChildrenLeft[i], tree.ChildrenRight[i]
			if l <= i || l >= n || r <= i || r >= n {
				return errors.Errorf("tree %d node %d: child index out of range", t, i)
			}
			if tree.Feature[i] < 0 || tree.Feature[i] >= f.NFeatures {
				return errors.Errorf("tree %d node %d: feature %d out of range", t, i, tree.Feature[i])
			}
		}
	}
	return nil
}

// leafDistribution walks the tree and returns the normalized class
// distribution of the reached leaf. Children always have a larger index than
// their parent, so the walk terminates.
func (t *Tree) leafDistribution(vector []float64) []float64 {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		if vector[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	counts := t.Value[node]
	var total float64
	for _, c := range counts {
		total += c
	}
	dist := make([]float64, len(counts))
	if total == 0 {
		return dist
	}
	for i, c := range counts {
		dist[i] = c / total
	}
	return dist
}

// Probabilities averages the leaf distributions of every tree.
func (f *Forest) Probabilities(vector []float64) ([]float64, error) {
	if len(vector) != f.NFeatures {
		return nil, apperrors.Validation("feature vector has width %d, model expects %d", len(vector), f.NFeatures)
	}
	proba := make([]float64, len(f.Classes))
	for i := range f.Trees {
		for c, p := range f.Trees[i].leafDistribution(vector) {
			proba[c] += p
		}
	}
	for c := range proba {
		proba[c] /= float64(len(f.Trees))
	}
	return proba, nil
}

// Predict returns the class with the highest averaged probability. Ties go
// to the class listed first.
func (f *Forest) Predict(vector []float64) (string, error) {
	proba, err := f.Probabilities(vector)
	if err != nil {
		return "", err
	}
	best := 0
	for c := 1; c < len(proba); c++ {
		if proba[c] > proba[best] {
			best = c
		}
	}
	return f.Classes[best], nil
}
