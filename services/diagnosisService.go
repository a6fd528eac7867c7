package services

import (
	"Medicare/apperrors"
	"Medicare/diagnosis"
	"Medicare/models"
	"Medicare/repositories"
	"Medicare/synthesis"
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Placeholders used when a document is summarized without a visit.
const (
	ExtractInfoSymptoms = "headache, fever"
	ExtractInfoDisease  = "Unknown"
)

type Prediction struct {
	PredictedDisease string `json:"predicted_disease"`
	HistoryAppended  bool   `json:"history_appended"`
}

type DiagnosisService struct {
	history     *repositories.DiseaseHistoryRepository
	predictor   diagnosis.Predictor
	extractor   TextExtractor
	synthesizer SummarySynthesizer
}

func NewDiagnosisService(
	history *repositories.DiseaseHistoryRepository,
	predictor diagnosis.Predictor,
	extractor TextExtractor,
	synthesizer SummarySynthesizer,
) *DiagnosisService {
	return &DiagnosisService{
		history:     history,
		predictor:   predictor,
		extractor:   extractor,
		synthesizer: synthesizer,
	}
}

// PredictDisease runs one diagnosis cycle for the patient. Repeating the
// same symptoms with an unchanged outcome never grows the history.
func (s *DiagnosisService) PredictDisease(ctx context.Context, patientID uint, symptoms []string) (*Prediction, error) {
	tokens := models.SplitSymptoms(strings.Join(symptoms, ","))
	if len(tokens) == 0 {
		return nil, apperrors.Validation("symptoms are required")
	}

	disease, err := s.predictor.Predict(tokens)
	if err != nil {
		return nil, err
	}

	appended, err := s.history.Append(ctx, patientID, repositories.Episode{Symptoms: tokens, Disease: disease})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"patient_id": patientID,
		"disease":    disease,
		"appended":   appended,
	}).Debug("Diagnosis cycle complete")
	return &Prediction{PredictedDisease: disease, HistoryAppended: appended}, nil
}

func (s *DiagnosisService) ExtractDocumentSummary(ctx context.Context, document []byte) (string, error) {
	return s.extractor.Extract(ctx, document)
}

func (s *DiagnosisService) SynthesizeSummary(ctx context.Context, name, symptoms, text, disease string) (*synthesis.Result, error) {
	return s.synthesizer.Synthesize(ctx, name, symptoms, text, disease)
}

// ExtractInfo summarizes a standalone document with placeholder symptoms
// and no prediction.
func (s *DiagnosisService) ExtractInfo(ctx context.Context, document []byte) (*synthesis.Result, error) {
	text, err := s.extractor.Extract(ctx, document)
	if err != nil {
		return nil, err
	}
	return s.synthesizer.Synthesize(ctx, "", ExtractInfoSymptoms, text, ExtractInfoDisease)
}

func (s *DiagnosisService) Chat(ctx context.Context, messages []synthesis.Message) (string, error) {
	if len(messages) == 0 {
		return "", apperrors.Validation("messages are required")
	}
	for i, m := range messages {
		switch m.Role {
		case synthesis.RoleUser, synthesis.RoleAssistant, synthesis.RoleSystem:
		default:
			return "", apperrors.Validation("message %d has unknown role %q", i, m.Role)
		}
	}
	return s.synthesizer.Chat(ctx, messages)
}

func (s *DiagnosisService) ListHistory(ctx context.Context, patientID uint) ([]models.DiseaseHistory, error) {
	return s.history.ListByPatient(ctx, patientID)
}
