package utils

import (
	"Medicare/cache"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ResetCodeTTL is how long a password reset code stays valid.
const ResetCodeTTL = 15 * time.Minute

// ErrResetUnavailable is returned when there is no redis to hold codes.
var ErrResetUnavailable = errors.New("password reset needs redis")

// ResetCodes keeps one pending reset code per email in redis.
type ResetCodes struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewResetCodes(c *cache.Cache, ttl time.Duration) *ResetCodes {
	if ttl <= 0 {
		ttl = ResetCodeTTL
	}
	return &ResetCodes{cache: c, ttl: ttl}
}

// GenerateResetCode generates a random 6-digit reset code.
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", errors.Wrap(err, "generate reset code")
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Issue stores a fresh code for email, replacing any earlier one.
func (r *ResetCodes) Issue(ctx context.Context, email string) (string, error) {
	if r == nil || r.cache == nil {
		return "", ErrResetUnavailable
	}
	code, err := GenerateResetCode()
	if err != nil {
		return "", err
	}
	if err := r.cache.Set(ctx, resetCodeKey(email), code, r.ttl); err != nil {
		return "", errors.Wrap(err, "store reset code")
	}
	return code, nil
}

// Check reports whether code is the pending code for email.
func (r *ResetCodes) Check(ctx context.Context, email, code string) (bool, error) {
	if r == nil || r.cache == nil {
		return false, ErrResetUnavailable
	}
	stored, err := r.cache.Get(ctx, resetCodeKey(email))
	if err != nil {
		return false, errors.Wrap(err, "read reset code")
	}
	if stored == "" || code == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1, nil
}

func (r *ResetCodes) Delete(ctx context.Context, email string) error {
	if r == nil || r.cache == nil {
		return nil
	}
	return r.cache.Delete(ctx, resetCodeKey(email))
}

func resetCodeKey(email string) string {
	return "reset_code:" + strings.ToLower(strings.TrimSpace(email))
}
