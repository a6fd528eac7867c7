package services

import (
	"Medicare/models"
	"Medicare/notify"
	"Medicare/repositories"
	"Medicare/utils"
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
)

type TreatmentPlanService struct {
	plans     *repositories.TreatmentPlanRepository
	patients  *repositories.PatientRepository
	hospitals *repositories.HospitalRepository
	notifier  PlanNotifier
}

// NewTreatmentPlanService builds the service. notifier may be nil.
func NewTreatmentPlanService(
	plans *repositories.TreatmentPlanRepository,
	patients *repositories.PatientRepository,
	hospitals *repositories.HospitalRepository,
	notifier PlanNotifier,
) *TreatmentPlanService {
	return &TreatmentPlanService{plans: plans, patients: patients, hospitals: hospitals, notifier: notifier}
}

// Add binds plan to the patient's latest disease episode.
func (s *TreatmentPlanService) Add(ctx context.Context, patientID uint, plan *models.TreatmentPlan) error {
	if err := utils.ValidateTreatmentPlan(*plan); err != nil {
		return err
	}
	episode, err := s.plans.CreateForLatestEpisode(ctx, patientID, plan)
	if err != nil {
		return err
	}
	s.notify(ctx, patientID, episode, plan)
	return nil
}

func (s *TreatmentPlanService) List(ctx context.Context, patientID uint) ([]models.TreatmentPlan, error) {
	return s.plans.ListByPatient(ctx, patientID)
}

func (s *TreatmentPlanService) Get(ctx context.Context, id uint) (*models.TreatmentPlan, error) {
	return s.plans.GetByID(ctx, id)
}

// Update replaces the plan's fields; the treatment stays required.
func (s *TreatmentPlanService) Update(ctx context.Context, id uint, update repositories.PlanUpdate) (*models.TreatmentPlan, error) {
	err := utils.ValidateTreatmentPlan(models.TreatmentPlan{
		Treatment:  strings.TrimSpace(update.Treatment),
		Medication: update.Medication,
		Tests:      update.Tests,
		Precaution: update.Precaution,
	})
	if err != nil {
		return nil, err
	}
	return s.plans.Update(ctx, id, update)
}

func (s *TreatmentPlanService) Delete(ctx context.Context, id uint) error {
	return s.plans.Delete(ctx, id)
}

func (s *TreatmentPlanService) HospitalOf(ctx context.Context, id uint) (uint, error) {
	return s.plans.HospitalOf(ctx, id)
}

// notify mails the owning hospital. The plan is already stored, so a
// failure here is only logged.
func (s *TreatmentPlanService) notify(ctx context.Context, patientID uint, episode *models.DiseaseHistory, plan *models.TreatmentPlan) {
	if s.notifier == nil {
		return
	}
	entry := log.WithField("patient_id", patientID)

	patient, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		entry.WithError(err).Warn("Failed to load patient for plan notice")
		return
	}
	hospital, err := s.hospitals.GetByID(ctx, patient.HospitalID)
	if err != nil {
		entry.WithError(err).Warn("Failed to load hospital for plan notice")
		return
	}

	notice := notify.PlanNotice{
		HospitalName: hospital.Name,
		PatientName:  patient.Name,
		PatientID:    patient.ID,
		Disease:      episode.PredictedDisease,
		Treatment:    plan.Treatment,
		Medication:   plan.Medication,
		Tests:        plan.Tests,
		Precaution:   plan.Precaution,
	}
	if err := s.notifier.NotifyTreatmentPlan(ctx, hospital.Email, notice); err != nil {
		entry.WithError(err).Warn("Failed to send treatment plan notice")
	}
}
