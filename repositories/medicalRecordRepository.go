package repositories

import (
	"Medicare/models"
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// MedicalRecordRepository only reads; records are written together with
// the patient snapshot by PatientRepository.
type MedicalRecordRepository struct {
	db *gorm.DB
}

func NewMedicalRecordRepository(db *gorm.DB) *MedicalRecordRepository {
	return &MedicalRecordRepository{db: db}
}

func (r *MedicalRecordRepository) ListByPatient(ctx context.Context, patientID uint) ([]models.MedicalRecord, error) {
	db := r.db.WithContext(ctx)
	if err := patientExists(db, patientID); err != nil {
		return nil, err
	}
	var records []models.MedicalRecord
	err := db.Where("patient_id = ?", patientID).Order("visit_date ASC, id ASC").Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list medical records")
	}
	return records, nil
}

func (r *MedicalRecordRepository) CountByPatient(ctx context.Context, patientID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MedicalRecord{}).Where("patient_id = ?", patientID).Count(&count).Error
	return count, errors.Wrap(err, "failed to count medical records")
}
