// Package diagnosis loads the pre-trained symptom vocabulary and disease
// classifier and turns symptom lists into a single predicted disease.
package diagnosis

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// NormalizeSymptom is applied to every token before lookup: trim, lower
// case, internal spaces become underscores.
func NormalizeSymptom(token string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(token)), " ", "_")
}

// Encoder maps symptom tokens to a multi-hot vector over a fixed vocabulary.
type Encoder struct {
	vocabulary []string
	index      map[string]int
}

func NewEncoder(vocabulary []string) (*Encoder, error) {
	if len(vocabulary) == 0 {
		return nil, errors.New("symptom vocabulary is empty")
	}
	e := &Encoder{
		vocabulary: make([]string, len(vocabulary)),
		index:      make(map[string]int, len(vocabulary)),
	}
	for i, raw := range vocabulary {
		symptom := NormalizeSymptom(raw)
		if symptom == "" {
			return nil, errors.Errorf("vocabulary entry %d is blank", i)
		}
		if _, dup := e.index[symptom]; dup {
			return nil, errors.Errorf("vocabulary entry %q appears twice", symptom)
		}
		e.vocabulary[i] = symptom
		e.index[symptom] = i
	}
	return e, nil
}

type vocabularyFile struct {
	Symptoms []string `json:"symptoms"`
}

// LoadVocabulary reads a {"symptoms": [...]} artifact. Slot order is the
// order in the file.
func LoadVocabulary(path string) (*Encoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read symptom vocabulary")
	}
	var file vocabularyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "decode symptom vocabulary %s", path)
	}
	enc, err := NewEncoder(file.Symptoms)
	return enc, errors.Wrapf(err, "symptom vocabulary %s", path)
}

// Width is the length of every encoded vector.
func (e *Encoder) Width() int {
	return len(e.vocabulary)
}

// Known reports whether token maps to a vocabulary slot.
func (e *Encoder) Known(token string) bool {
	_, ok := e.index[NormalizeSymptom(token)]
	return ok
}

// Encode sets the slot of every known token to 1. Unknown tokens contribute
// nothing.
func (e *Encoder) Encode(tokens []string) []float64 {
	vector := make([]float64, len(e.vocabulary))
	for _, token := range tokens {
		if i, ok := e.index[NormalizeSymptom(token)]; ok {
			vector[i] = 1
		}
	}
	return vector
}
