package services

import (
	"Medicare/apperrors"
	"Medicare/diagnosis"
	"Medicare/models"
	"Medicare/repositories"
	"Medicare/utils"
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

type IntakeInput struct {
	HospitalID     uint
	Snapshot       models.Snapshot
	MedicalSummary string
	Document       *Document
}

type UpdateInput struct {
	Patch          models.Snapshot
	MedicalSummary string
	Document       *Document
}

// VisitInput is a visit recorded from JSON, without an upload.
type VisitInput struct {
	Symptoms         string `json:"symptoms"`
	DocumentSummary  string `json:"document_summary"`
	VisitDate        string `json:"visit_date"`
	Allergies        string `json:"allergies"`
	PreviousDiseases string `json:"previous_diseases"`
	Medications      string `json:"medications"`
	Weight           string `json:"weight"`
	Height           string `json:"height"`
}

func (v VisitInput) patch() models.Snapshot {
	return models.Snapshot{
		Symptoms:         v.Symptoms,
		Allergies:        v.Allergies,
		PreviousDiseases: v.PreviousDiseases,
		Medications:      v.Medications,
		Weight:           v.Weight,
		Height:           v.Height,
	}
}

// PatientResult is what a write returns to the caller.
type PatientResult struct {
	Patient          *models.Patient `json:"patient"`
	PredictedDisease string          `json:"predicted_disease,omitempty"`
	DocumentSummary  string          `json:"document_summary"`
	HistoryAppended  bool            `json:"history_appended"`
}

type PatientService struct {
	patients  *repositories.PatientRepository
	records   *repositories.MedicalRecordRepository
	predictor diagnosis.Predictor
	extractor TextExtractor
	documents DocumentStore
}

// NewPatientService wires the intake pipeline. documents may be nil.
func NewPatientService(
	patients *repositories.PatientRepository,
	records *repositories.MedicalRecordRepository,
	predictor diagnosis.Predictor,
	extractor TextExtractor,
	documents DocumentStore,
) *PatientService {
	return &PatientService{
		patients:  patients,
		records:   records,
		predictor: predictor,
		extractor: extractor,
		documents: documents,
	}
}

// CreatePatientWithRecord predicts, extracts and stores the upload first,
// then writes the patient, the intake record and the first episode in one
// transaction.
func (s *PatientService) CreatePatientWithRecord(ctx context.Context, in IntakeInput) (*PatientResult, error) {
	if err := utils.ValidateIntake(in.HospitalID, in.Snapshot); err != nil {
		return nil, err
	}
	snapshot := in.Snapshot.WithIntakeDefaults()

	episode, err := s.predict(snapshot.Symptoms)
	if err != nil {
		return nil, err
	}
	text, key, err := s.prepareDocument(ctx, in.Document, fmt.Sprintf("hospital-%d", in.HospitalID))
	if err != nil {
		return nil, err
	}

	patient := &models.Patient{HospitalID: in.HospitalID, Snapshot: snapshot, MedicalSummary: in.MedicalSummary}
	if text != "" {
		patient.MedicalSummary = text
	}
	summary := documentSummary(in.Document, text)

	appended, err := s.patients.CreateWithRecord(ctx, patient, repositories.RecordInput{
		DocumentSummary: summary,
		DocumentKey:     key,
		Episode:         episode,
	})
	if err != nil {
		discardDocument(ctx, s.documents, key)
		return nil, err
	}

	log.WithFields(log.Fields{"patient_id": patient.ID, "hospital_id": patient.HospitalID}).Info("Patient created")
	return &PatientResult{
		Patient:          patient,
		PredictedDisease: episode.Disease,
		DocumentSummary:  summary,
		HistoryAppended:  appended,
	}, nil
}

// UpdatePatientWithRecord applies a partial update and records the visit.
// A prediction is only made when the patch carries symptoms.
func (s *PatientService) UpdatePatientWithRecord(ctx context.Context, id uint, in UpdateInput) (*PatientResult, error) {
	if err := utils.ValidateSnapshotPatch(in.Patch); err != nil {
		return nil, err
	}
	return s.update(ctx, id, in.Patch, in.MedicalSummary, in.Document, "", repositories.RecordInput{})
}

// AddVisit records a visit sent as JSON and syncs the snapshot with it.
func (s *PatientService) AddVisit(ctx context.Context, id uint, visit VisitInput) (*PatientResult, error) {
	visitDate, err := utils.ParseVisitDate(visit.VisitDate)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, id, visit.patch(), "", nil, visit.DocumentSummary, repositories.RecordInput{VisitDate: visitDate})
}

func (s *PatientService) update(ctx context.Context, id uint, patch models.Snapshot, medicalSummary string, doc *Document, summary string, input repositories.RecordInput) (*PatientResult, error) {
	var (
		episode *repositories.Episode
		err     error
	)
	if strings.TrimSpace(patch.Symptoms) != "" {
		if episode, err = s.predict(patch.Symptoms); err != nil {
			return nil, err
		}
	}

	text, key, err := s.prepareDocument(ctx, doc, fmt.Sprintf("patient-%d", id))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(summary) == "" {
		summary = documentSummary(doc, text)
	}

	input.DocumentSummary = summary
	input.DocumentKey = key
	input.Episode = episode
	patient, appended, err := s.patients.UpdateWithRecord(ctx, id, patch, medicalSummary, input)
	if err != nil {
		discardDocument(ctx, s.documents, key)
		return nil, err
	}

	result := &PatientResult{Patient: patient, DocumentSummary: summary, HistoryAppended: appended}
	if episode != nil {
		result.PredictedDisease = episode.Disease
	}
	return result, nil
}

func (s *PatientService) GetByID(ctx context.Context, id uint) (*models.Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *PatientService) ListByHospital(ctx context.Context, hospitalID uint) ([]models.Patient, error) {
	return s.patients.ListByHospital(ctx, hospitalID)
}

func (s *PatientService) Records(ctx context.Context, id uint) ([]models.MedicalRecord, error) {
	return s.records.ListByPatient(ctx, id)
}

// Delete removes the patient and everything hanging off it, then the stored
// uploads of its records.
func (s *PatientService) Delete(ctx context.Context, id uint) error {
	var keys []string
	if s.documents != nil {
		records, err := s.records.ListByPatient(ctx, id)
		if err != nil {
			return err
		}
		for _, r := range records {
			if r.DocumentKey != "" {
				keys = append(keys, r.DocumentKey)
			}
		}
	}

	if err := s.patients.DeleteCascade(ctx, id); err != nil {
		return err
	}
	for _, key := range keys {
		discardDocument(ctx, s.documents, key)
	}
	log.WithField("patient_id", id).Info("Patient deleted")
	return nil
}

// Purge empties every patient table. Maintenance only.
func (s *PatientService) Purge(ctx context.Context) (int64, error) {
	return s.patients.PurgeAll(ctx)
}

func (s *PatientService) predict(symptoms string) (*repositories.Episode, error) {
	tokens := models.SplitSymptoms(symptoms)
	if len(tokens) == 0 {
		return nil, apperrors.Validation("symptoms are required")
	}
	disease, err := s.predictor.Predict(tokens)
	if err != nil {
		return nil, err
	}
	return &repositories.Episode{Symptoms: tokens, Disease: disease}, nil
}

// prepareDocument extracts the text of doc and, when a store is configured,
// keeps the original. Both happen before any transaction is opened.
func (s *PatientService) prepareDocument(ctx context.Context, doc *Document, prefix string) (string, string, error) {
	if doc == nil {
		return "", "", nil
	}
	text, err := s.extractor.Extract(ctx, doc.Data)
	if err != nil {
		return "", "", err
	}
	if s.documents == nil {
		return text, "", nil
	}
	key, err := s.documents.Put(ctx, prefix, doc.Data)
	if err != nil {
		return "", "", apperrors.Upstream(err, "store document")
	}
	return text, key, nil
}

func documentSummary(doc *Document, text string) string {
	if doc == nil || strings.TrimSpace(text) == "" {
		return NotApplicable
	}
	return text
}
