package repositories

import (
	"Medicare/apperrors"
	"Medicare/database"
	"Medicare/models"
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Episode is a prediction waiting to be recorded.
type Episode struct {
	Symptoms []string
	Disease  string
}

type DiseaseHistoryRepository struct {
	db     *gorm.DB
	locker *database.Locker
}

func NewDiseaseHistoryRepository(db *gorm.DB, locker *database.Locker) *DiseaseHistoryRepository {
	return &DiseaseHistoryRepository{db: db, locker: locker}
}

// Append records episode unless it repeats the patient's latest row. It
// reports whether a row was written.
func (r *DiseaseHistoryRepository) Append(ctx context.Context, patientID uint, episode Episode) (bool, error) {
	var appended bool
	err := withLock(ctx, r.locker, database.PatientLockKey(patientID), func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := patientExists(tx, patientID); err != nil {
				return err
			}
			var err error
			appended, err = appendEpisode(tx, patientID, episode)
			return err
		})
	})
	if err != nil {
		return false, apperrors.Transaction(err, "append disease history")
	}
	return appended, nil
}

// appendEpisode compares against the latest row only: a symptom set that
// comes back after a different one is recorded again.
func appendEpisode(tx *gorm.DB, patientID uint, episode Episode) (bool, error) {
	symptoms := models.JoinSymptoms(episode.Symptoms)

	latest, err := latestEpisode(tx, patientID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return false, err
	}
	if latest != nil && latest.SameEpisode(symptoms, episode.Disease) {
		return false, nil
	}

	row := &models.DiseaseHistory{
		PatientID:        patientID,
		Symptoms:         symptoms,
		PredictedDisease: episode.Disease,
	}
	if err := tx.Create(row).Error; err != nil {
		return false, errors.Wrap(err, "failed to create disease history")
	}
	return true, nil
}

func latestEpisode(tx *gorm.DB, patientID uint) (*models.DiseaseHistory, error) {
	var latest models.DiseaseHistory
	err := tx.Where("patient_id = ?", patientID).Order(recentFirst).First(&latest).Error
	if err != nil {
		return nil, notFound(err, "disease history for patient %d", patientID)
	}
	return &latest, nil
}

// Latest returns the most recent episode, ties on created_at going to the
// highest id.
func (r *DiseaseHistoryRepository) Latest(ctx context.Context, patientID uint) (*models.DiseaseHistory, error) {
	return latestEpisode(r.db.WithContext(ctx), patientID)
}

// ListByPatient returns the episodes oldest first.
func (r *DiseaseHistoryRepository) ListByPatient(ctx context.Context, patientID uint) ([]models.DiseaseHistory, error) {
	db := r.db.WithContext(ctx)
	if err := patientExists(db, patientID); err != nil {
		return nil, err
	}
	var rows []models.DiseaseHistory
	if err := db.Where("patient_id = ?", patientID).Order(oldestFirst).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list disease history")
	}
	return rows, nil
}
