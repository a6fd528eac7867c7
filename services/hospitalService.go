package services

import (
	"Medicare/apperrors"
	"Medicare/models"
	"Medicare/repositories"
	"Medicare/utils"
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong
// password alike.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInvalidResetCode covers a wrong, expired or missing reset code.
var ErrInvalidResetCode = errors.New("invalid reset code")

type LoginResult struct {
	AccessToken string `json:"access_token"`
	HospitalID  uint   `json:"hospital_id"`
	Name        string `json:"name"`
}

type HospitalService struct {
	repository *repositories.HospitalRepository
	tokens     *utils.TokenIssuer
	resetCodes *utils.ResetCodes
	mailer     ResetMailer
}

// NewHospitalService builds the service. Without a mailer, password reset
// is disabled.
func NewHospitalService(
	repository *repositories.HospitalRepository,
	tokens *utils.TokenIssuer,
	resetCodes *utils.ResetCodes,
	mailer ResetMailer,
) *HospitalService {
	return &HospitalService{repository: repository, tokens: tokens, resetCodes: resetCodes, mailer: mailer}
}

// Register validates and stores a hospital with a bcrypt password hash.
func (s *HospitalService) Register(ctx context.Context, hospital *models.Hospital) error {
	if err := utils.ValidateHospitalData(*hospital); err != nil {
		return err
	}

	hashedPassword, err := utils.HashPassword(hospital.Password)
	if err != nil {
		return err
	}
	hospital.Password = hashedPassword

	if err := s.repository.Create(ctx, hospital); err != nil {
		return err
	}
	log.WithField("hospital_id", hospital.ID).Info("Hospital registered")
	return nil
}

func (s *HospitalService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	hospital, err := s.repository.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(hospital.Password, password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateAccessToken(hospital.ID, hospital.Email)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, HospitalID: hospital.ID, Name: hospital.Name}, nil
}

func (s *HospitalService) GetByID(ctx context.Context, id uint) (*models.Hospital, error) {
	return s.repository.GetByID(ctx, id)
}

func (s *HospitalService) TokenIssuer() *utils.TokenIssuer {
	return s.tokens
}

// SendResetCode mails a reset code to a registered hospital. An unknown
// email is not reported to the caller.
func (s *HospitalService) SendResetCode(ctx context.Context, email string) error {
	if s.mailer == nil {
		return apperrors.Upstream(utils.ErrResetUnavailable, "password reset is not configured")
	}
	hospital, err := s.repository.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.WithField("email", email).Info("Reset code requested for unknown email")
			return nil
		}
		return err
	}

	code, err := s.resetCodes.Issue(ctx, hospital.Email)
	if err != nil {
		return apperrors.Upstream(err, "issue reset code")
	}
	if err := s.mailer.SendResetCode(ctx, hospital.Email, code); err != nil {
		_ = s.resetCodes.Delete(ctx, hospital.Email)
		return apperrors.Upstream(err, "send reset code")
	}
	return nil
}

// ResetPassword swaps the password when code matches the pending one. The
// code is single use.
func (s *HospitalService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	ok, err := s.resetCodes.Check(ctx, email, code)
	if err != nil {
		return apperrors.Upstream(err, "check reset code")
	}
	if !ok {
		return ErrInvalidResetCode
	}
	if err := utils.ValidatePassword(newPassword); err != nil {
		return err
	}

	hospital, err := s.repository.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repository.UpdatePassword(ctx, hospital.ID, hash); err != nil {
		return err
	}
	if err := s.resetCodes.Delete(ctx, email); err != nil {
		log.WithError(err).Warn("Failed to delete used reset code")
	}
	log.WithField("hospital_id", hospital.ID).Info("Hospital password reset")
	return nil
}
