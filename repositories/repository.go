package repositories

import (
	"Medicare/apperrors"
	"Medicare/cache"
	"Medicare/database"
	"Medicare/models"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	queryTimeout = 5 * time.Second

	recentFirst = "created_at DESC, id DESC"
	oldestFirst = "created_at ASC, id ASC"
)

func hospitalPatientsCacheKey(hospitalID uint) string {
	return fmt.Sprintf("patients_cache:hospital:%d", hospitalID)
}

func patientPlansCacheKey(patientID uint) string {
	return fmt.Sprintf("treatment_plans_cache:patient:%d", patientID)
}

func treatmentPlanLockKey(planID uint) string {
	return fmt.Sprintf("treatment_plan_lock:%d", planID)
}

// notFound maps gorm.ErrRecordNotFound to apperrors.ErrNotFound and wraps
// anything else.
func notFound(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(format, args...)
	}
	return errors.Wrapf(err, "load "+format, args...)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// withLock runs fn while holding key.
func withLock(ctx context.Context, locker *database.Locker, key string, fn func() error) error {
	lock, err := locker.Acquire(ctx, key)
	if err != nil {
		return apperrors.Transaction(err, "acquire "+key)
	}
	defer lock.Release(ctx)
	return fn()
}

// invalidate drops cache keys after a commit. The write already succeeded,
// so failures are only logged.
func invalidate(ctx context.Context, c *cache.Cache, keys ...string) {
	if err := c.DeleteBatch(ctx, keys...); err != nil {
		log.WithError(err).WithField("keys", keys).Warn("Failed to invalidate cache")
	}
}

func patientExists(tx *gorm.DB, patientID uint) error {
	var count int64
	if err := tx.Model(&models.Patient{}).Where("id = ?", patientID).Count(&count).Error; err != nil {
		return errors.Wrap(err, "check patient")
	}
	if count == 0 {
		return apperrors.NotFound("patient %d", patientID)
	}
	return nil
}
