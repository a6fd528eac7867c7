package repositories

import (
	"Medicare/apperrors"
	"Medicare/cache"
	"Medicare/database"
	"Medicare/models"
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RecordInput is the visit row written next to a snapshot change, plus the
// episode to append when a prediction was made.
type RecordInput struct {
	DocumentSummary string
	DocumentKey     string
	VisitDate       time.Time
	Episode         *Episode
}

func (in RecordInput) visitDate() time.Time {
	if in.VisitDate.IsZero() {
		return time.Now().UTC()
	}
	return in.VisitDate
}

type PatientRepository struct {
	db     *gorm.DB
	cache  *cache.Cache
	locker *database.Locker
}

func NewPatientRepository(db *gorm.DB, cache *cache.Cache, locker *database.Locker) *PatientRepository {
	return &PatientRepository{db: db, cache: cache, locker: locker}
}

// CreateWithRecord stores the patient, the intake record and, when given,
// the first episode in one transaction.
func (r *PatientRepository) CreateWithRecord(ctx context.Context, patient *models.Patient, input RecordInput) (bool, error) {
	var appended bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Hospital{}).Where("id = ?", patient.HospitalID).Count(&count).Error; err != nil {
			return errors.Wrap(err, "check hospital")
		}
		if count == 0 {
			return apperrors.NotFound("hospital %d", patient.HospitalID)
		}

		if err := tx.Create(patient).Error; err != nil {
			return errors.Wrap(err, "failed to create patient")
		}
		record := models.NewMedicalRecord(patient.ID, patient.Snapshot, input.DocumentSummary, input.DocumentKey, input.visitDate())
		if err := tx.Create(record).Error; err != nil {
			return errors.Wrap(err, "failed to create medical record")
		}
		if input.Episode == nil {
			return nil
		}
		var err error
		appended, err = appendEpisode(tx, patient.ID, *input.Episode)
		return err
	})
	if err != nil {
		return false, apperrors.Transaction(err, "create patient")
	}

	invalidate(ctx, r.cache, hospitalPatientsCacheKey(patient.HospitalID))
	return appended, nil
}

// UpdateWithRecord merges patch into the stored snapshot, saves it and adds
// one record mirroring the merged state. A blank medicalSummary keeps the
// stored one.
func (r *PatientRepository) UpdateWithRecord(ctx context.Context, id uint, patch models.Snapshot, medicalSummary string, input RecordInput) (*models.Patient, bool, error) {
	var (
		patient  models.Patient
		appended bool
	)
	err := withLock(ctx, r.locker, database.PatientLockKey(id), func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&patient, id).Error; err != nil {
				return notFound(err, "patient %d", id)
			}

			patient.Snapshot = models.MergeSnapshot(patient.Snapshot, patch)
			if strings.TrimSpace(medicalSummary) != "" {
				patient.MedicalSummary = medicalSummary
			}
			if err := tx.Save(&patient).Error; err != nil {
				return errors.Wrap(err, "failed to update patient")
			}

			record := models.NewMedicalRecord(patient.ID, patient.Snapshot, input.DocumentSummary, input.DocumentKey, input.visitDate())
			if err := tx.Create(record).Error; err != nil {
				return errors.Wrap(err, "failed to create medical record")
			}
			if input.Episode == nil {
				return nil
			}
			var err error
			appended, err = appendEpisode(tx, patient.ID, *input.Episode)
			return err
		})
	})
	if err != nil {
		return nil, false, apperrors.Transaction(err, "update patient")
	}

	invalidate(ctx, r.cache, hospitalPatientsCacheKey(patient.HospitalID))
	return &patient, appended, nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id uint) (*models.Patient, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var patient models.Patient
	if err := r.db.WithContext(ctx).First(&patient, id).Error; err != nil {
		return nil, notFound(err, "patient %d", id)
	}
	return &patient, nil
}

// ListByHospital returns the hospital's patients newest first. An unknown
// hospital yields an empty list.
func (r *PatientRepository) ListByHospital(ctx context.Context, hospitalID uint) ([]models.Patient, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cacheKey := hospitalPatientsCacheKey(hospitalID)
	var patients []models.Patient
	hit, err := r.cache.GetJSON(ctx, cacheKey, &patients)
	if err != nil {
		log.WithError(err).Warn("Failed to get patients from cache")
	}
	if hit {
		return patients, nil
	}

	patients = []models.Patient{}
	err = r.db.WithContext(ctx).Where("hospital_id = ?", hospitalID).Order(recentFirst).Find(&patients).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list patients")
	}

	if err := r.cache.SetJSON(ctx, cacheKey, patients); err != nil {
		log.WithError(err).Warn("Failed to set patients in cache")
	}
	return patients, nil
}

// DeleteCascade removes the patient with every dependent row: treatment
// plans, then disease history, then records, then the patient itself.
func (r *PatientRepository) DeleteCascade(ctx context.Context, id uint) error {
	var hospitalID uint
	err := withLock(ctx, r.locker, database.PatientLockKey(id), func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var patient models.Patient
			if err := tx.Select("id, hospital_id").First(&patient, id).Error; err != nil {
				return notFound(err, "patient %d", id)
			}
			hospitalID = patient.HospitalID

			episodes := tx.Model(&models.DiseaseHistory{}).Select("id").Where("patient_id = ?", id)
			if err := tx.Where("disease_id IN (?)", episodes).Delete(&models.TreatmentPlan{}).Error; err != nil {
				return errors.Wrap(err, "failed to delete treatment plans")
			}
			if err := tx.Where("patient_id = ?", id).Delete(&models.DiseaseHistory{}).Error; err != nil {
				return errors.Wrap(err, "failed to delete disease history")
			}
			if err := tx.Where("patient_id = ?", id).Delete(&models.MedicalRecord{}).Error; err != nil {
				return errors.Wrap(err, "failed to delete medical records")
			}
			if err := tx.Delete(&models.Patient{}, id).Error; err != nil {
				return errors.Wrap(err, "failed to delete patient")
			}
			return nil
		})
	})
	if err != nil {
		return apperrors.Transaction(err, "delete patient")
	}

	invalidate(ctx, r.cache, hospitalPatientsCacheKey(hospitalID), patientPlansCacheKey(id))
	return nil
}

// PurgeAll empties every patient table and returns how many patients were
// removed. Hospitals are kept.
func (r *PatientRepository) PurgeAll(ctx context.Context) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		global := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []interface{}{&models.TreatmentPlan{}, &models.DiseaseHistory{}, &models.MedicalRecord{}} {
			if err := global.Delete(model).Error; err != nil {
				return errors.Wrapf(err, "failed to purge %T", model)
			}
		}
		res := global.Delete(&models.Patient{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "failed to purge patients")
		}
		removed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, apperrors.Transaction(err, "purge patients")
	}

	for _, pattern := range []string{"patients_cache:*", "treatment_plans_cache:*"} {
		if err := r.cache.DeleteAll(ctx, pattern); err != nil {
			log.WithError(err).WithField("pattern", pattern).Warn("Failed to invalidate cache")
		}
	}
	return removed, nil
}
