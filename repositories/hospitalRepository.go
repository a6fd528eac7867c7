package repositories

import (
	"Medicare/apperrors"
	"Medicare/cache"
	"Medicare/models"
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type HospitalRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewHospitalRepository(db *gorm.DB, cache *cache.Cache) *HospitalRepository {
	return &HospitalRepository{db: db, cache: cache}
}

func (r *HospitalRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Hospital{}).Where("email = ?", normalizeEmail(email)).Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check email existence")
	}
	return count > 0, nil
}

// Create stores a hospital. A taken email is a conflict.
func (r *HospitalRepository) Create(ctx context.Context, hospital *models.Hospital) error {
	hospital.Email = normalizeEmail(hospital.Email)
	exists, err := r.EmailExists(ctx, hospital.Email)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.Conflict("hospital email %s is already registered", hospital.Email)
	}

	if err := r.db.WithContext(ctx).Create(hospital).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("hospital email %s is already registered", hospital.Email)
		}
		return apperrors.Transaction(err, "create hospital")
	}
	return nil
}

func (r *HospitalRepository) GetByEmail(ctx context.Context, email string) (*models.Hospital, error) {
	var hospital models.Hospital
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&hospital).Error
	if err != nil {
		return nil, notFound(err, "hospital %s", email)
	}
	return &hospital, nil
}

// GetByID is cached; the cached copy never carries the password hash.
func (r *HospitalRepository) GetByID(ctx context.Context, id uint) (*models.Hospital, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var hospital models.Hospital
	cacheKey := r.getHospitalCacheKey(id)
	hit, err := r.cache.GetJSON(ctx, cacheKey, &hospital)
	if err != nil {
		log.WithError(err).Warn("Failed to get hospital from cache")
	}
	if hit {
		return &hospital, nil
	}

	err = r.db.WithContext(ctx).Select("id, name, address, email, phone, created_at").First(&hospital, id).Error
	if err != nil {
		return nil, notFound(err, "hospital %d", id)
	}
	if err := r.cache.SetJSON(ctx, cacheKey, hospital); err != nil {
		log.WithError(err).Warn("Failed to set hospital in cache")
	}
	return &hospital, nil
}

func (r *HospitalRepository) getHospitalCacheKey(id uint) string {
	return fmt.Sprintf("hospital_cache:%d", id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UpdatePassword stores a new password hash.
func (r *HospitalRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	res := r.db.WithContext(ctx).Model(&models.Hospital{}).Where("id = ?", id).Update("password", hash)
	if res.Error != nil {
		return apperrors.Transaction(res.Error, "update hospital password")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("hospital %d", id)
	}
	invalidate(ctx, r.cache, r.getHospitalCacheKey(id))
	return nil
}
