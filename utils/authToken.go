package utils

import (
	"Medicare/apperrors"
	"strconv"
	"time"

	"github.com/o1egl/paseto"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// AccessTokenExpiry is how long a hospital session lasts.
const AccessTokenExpiry = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is the data sealed into a hospital access token.
type TokenClaims struct {
	HospitalID string    `json:"hospitalId"`
	Email      string    `json:"email"`
	Expiry     time.Time `json:"expiry"`
}

// HospitalIDUint returns the hospital id carried by the claims.
func (c *TokenClaims) HospitalIDUint() (uint, error) {
	id, err := strconv.ParseUint(c.HospitalID, 10, 64)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidToken, "hospital id")
	}
	return uint(id), nil
}

// TokenIssuer seals and opens PASETO v2 local tokens with a 32 byte key.
type TokenIssuer struct {
	key    []byte
	expiry time.Duration
	now    func() time.Time
}

func NewTokenIssuer(symmetricKey string, expiry time.Duration) (*TokenIssuer, error) {
	if len(symmetricKey) != 32 {
		return nil, apperrors.Validation("symmetric key must be 32 bytes long, got %d", len(symmetricKey))
	}
	if expiry <= 0 {
		expiry = AccessTokenExpiry
	}
	return &TokenIssuer{key: []byte(symmetricKey), expiry: expiry, now: time.Now}, nil
}

func (t *TokenIssuer) Expiry() time.Duration {
	return t.expiry
}

// GenerateAccessToken issues a token for the hospital.
func (t *TokenIssuer) GenerateAccessToken(hospitalID uint, email string) (string, error) {
	claims := TokenClaims{
		HospitalID: strconv.FormatUint(uint64(hospitalID), 10),
		Email:      email,
		Expiry:     t.now().Add(t.expiry),
	}
	token, err := paseto.NewV2().Encrypt(t.key, claims, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate token")
	}
	return token, nil
}

// ValidateToken decrypts the token and checks its expiry.
func (t *TokenIssuer) ValidateToken(token string) (*TokenClaims, error) {
	var claims TokenClaims
	if err := paseto.NewV2().Decrypt(token, t.key, &claims, nil); err != nil {
		log.WithError(err).Debug("Token decryption failed")
		return nil, errors.Wrap(ErrInvalidToken, "decrypt")
	}
	if t.now().After(claims.Expiry) {
		return nil, errors.Wrap(ErrInvalidToken, "expired")
	}
	return &claims, nil
}
