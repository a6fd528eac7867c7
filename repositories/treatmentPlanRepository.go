package repositories

import (
	"Medicare/apperrors"
	"Medicare/cache"
	"Medicare/database"
	"Medicare/models"
	"context"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PlanUpdate replaces every editable field of a treatment plan. A blank
// field clears the stored value.
type PlanUpdate struct {
	Treatment  string
	Medication string
	Tests      string
	Precaution string
}

func (u PlanUpdate) apply(plan *models.TreatmentPlan) {
	plan.Treatment = strings.TrimSpace(u.Treatment)
	plan.Medication = strings.TrimSpace(u.Medication)
	plan.Tests = strings.TrimSpace(u.Tests)
	plan.Precaution = strings.TrimSpace(u.Precaution)
}

type TreatmentPlanRepository struct {
	db     *gorm.DB
	cache  *cache.Cache
	locker *database.Locker
}

func NewTreatmentPlanRepository(db *gorm.DB, cache *cache.Cache, locker *database.Locker) *TreatmentPlanRepository {
	return &TreatmentPlanRepository{db: db, cache: cache, locker: locker}
}

// CreateForLatestEpisode attaches plan to the patient's most recent disease
// episode. A patient without history has nothing to attach to.
func (r *TreatmentPlanRepository) CreateForLatestEpisode(ctx context.Context, patientID uint, plan *models.TreatmentPlan) (*models.DiseaseHistory, error) {
	var episode *models.DiseaseHistory
	err := withLock(ctx, r.locker, database.PatientLockKey(patientID), func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := patientExists(tx, patientID); err != nil {
				return err
			}
			var err error
			if episode, err = latestEpisode(tx, patientID); err != nil {
				return err
			}
			plan.DiseaseID = episode.ID
			return errors.Wrap(tx.Create(plan).Error, "failed to create treatment plan")
		})
	})
	if err != nil {
		return nil, apperrors.Transaction(err, "create treatment plan")
	}

	invalidate(ctx, r.cache, patientPlansCacheKey(patientID))
	return episode, nil
}

// ListByPatient returns the plans of every episode of the patient, oldest
// first.
func (r *TreatmentPlanRepository) ListByPatient(ctx context.Context, patientID uint) ([]models.TreatmentPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cacheKey := patientPlansCacheKey(patientID)
	var plans []models.TreatmentPlan
	hit, err := r.cache.GetJSON(ctx, cacheKey, &plans)
	if err != nil {
		log.WithError(err).Warn("Failed to get treatment plans from cache")
	}
	if hit {
		return plans, nil
	}

	db := r.db.WithContext(ctx)
	if err := patientExists(db, patientID); err != nil {
		return nil, err
	}
	plans = []models.TreatmentPlan{}
	episodes := db.Model(&models.DiseaseHistory{}).Select("id").Where("patient_id = ?", patientID)
	if err := db.Where("disease_id IN (?)", episodes).Order(oldestFirst).Find(&plans).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list treatment plans")
	}

	if err := r.cache.SetJSON(ctx, cacheKey, plans); err != nil {
		log.WithError(err).Warn("Failed to set treatment plans in cache")
	}
	return plans, nil
}

func (r *TreatmentPlanRepository) GetByID(ctx context.Context, id uint) (*models.TreatmentPlan, error) {
	var plan models.TreatmentPlan
	if err := r.db.WithContext(ctx).First(&plan, id).Error; err != nil {
		return nil, notFound(err, "treatment plan %d", id)
	}
	return &plan, nil
}

func (r *TreatmentPlanRepository) Update(ctx context.Context, id uint, update PlanUpdate) (*models.TreatmentPlan, error) {
	var (
		plan      models.TreatmentPlan
		patientID uint
	)
	err := withLock(ctx, r.locker, treatmentPlanLockKey(id), func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&plan, id).Error; err != nil {
				return notFound(err, "treatment plan %d", id)
			}
			var err error
			if patientID, err = planOwner(tx, plan.DiseaseID); err != nil {
				return err
			}
			update.apply(&plan)
			return errors.Wrap(tx.Save(&plan).Error, "failed to update treatment plan")
		})
	})
	if err != nil {
		return nil, apperrors.Transaction(err, "update treatment plan")
	}

	invalidate(ctx, r.cache, patientPlansCacheKey(patientID))
	return &plan, nil
}

func (r *TreatmentPlanRepository) Delete(ctx context.Context, id uint) error {
	var patientID uint
	err := withLock(ctx, r.locker, treatmentPlanLockKey(id), func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var plan models.TreatmentPlan
			if err := tx.First(&plan, id).Error; err != nil {
				return notFound(err, "treatment plan %d", id)
			}
			var err error
			if patientID, err = planOwner(tx, plan.DiseaseID); err != nil {
				return err
			}
			return errors.Wrap(tx.Delete(&plan).Error, "failed to delete treatment plan")
		})
	})
	if err != nil {
		return apperrors.Transaction(err, "delete treatment plan")
	}

	invalidate(ctx, r.cache, patientPlansCacheKey(patientID))
	return nil
}

// planOwner resolves the patient behind a disease episode.
func planOwner(tx *gorm.DB, diseaseID uint) (uint, error) {
	var episode models.DiseaseHistory
	if err := tx.Select("id, patient_id").First(&episode, diseaseID).Error; err != nil {
		return 0, notFound(err, "disease history %d", diseaseID)
	}
	return episode.PatientID, nil
}

// HospitalOf returns the hospital whose patient owns the plan.
func (r *TreatmentPlanRepository) HospitalOf(ctx context.Context, id uint) (uint, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var hospitalIDs []uint
	err := r.db.WithContext(ctx).
		Table("treatment_plans").
		Joins("JOIN disease_history ON disease_history.id = treatment_plans.disease_id").
		Joins("JOIN patients ON patients.id = disease_history.patient_id").
		Where("treatment_plans.id = ?", id).
		Pluck("patients.hospital_id", &hospitalIDs).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to resolve treatment plan owner")
	}
	if len(hospitalIDs) == 0 {
		return 0, apperrors.NotFound("treatment plan %d", id)
	}
	return hospitalIDs[0], nil
}
