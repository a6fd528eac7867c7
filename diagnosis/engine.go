package diagnosis

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Predictor turns a symptom list into one disease label.
type Predictor interface {
	Predict(symptoms []string) (string, error)
}

// Engine pairs the encoder with the classifier it was trained with.
type Engine struct {
	encoder *Encoder
	forest  *Forest
}

func NewEngine(encoder *Encoder, forest *Forest) (*Engine, error) {
	if encoder.Width() != forest.NFeatures {
		return nil, errors.Errorf("vocabulary has %d symptoms but model expects %d features", encoder.Width(), forest.NFeatures)
	}
	return &Engine{encoder: encoder, forest: forest}, nil
}

// LoadEngine loads both artifacts. Any failure here is fatal at startup.
func LoadEngine(vocabularyPath, modelPath string) (*Engine, error) {
	encoder, err := LoadVocabulary(vocabularyPath)
	if err != nil {
		return nil, err
	}
	forest, err := LoadForest(modelPath)
	if err != nil {
		return nil, err
	}
	engine, err := NewEngine(encoder, forest)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"symptoms": encoder.Width(),
		"classes":  len(forest.Classes),
		"trees":    len(forest.Trees),
	}).Info("diagnosis model loaded")
	return engine, nil
}

func (e *Engine) Predict(symptoms []string) (string, error) {
	vector := e.encoder.Encode(symptoms)
	if log.IsLevelEnabled(log.DebugLevel) {
		unknown := 0
		for _, s := range symptoms {
			if !e.encoder.Known(s) {
				unknown++
			}
		}
		log.WithFields(log.Fields{"symptoms": len(symptoms), "unknown": unknown}).Debug("encoded symptoms")
	}
	return e.forest.Predict(vector)
}

func (e *Engine) Encoder() *Encoder {
	return e.encoder
}
