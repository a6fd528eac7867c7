package utils

import (
	"Medicare/apperrors"
	"Medicare/models"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// VisitDateLayout is the accepted visit_date format.
const VisitDateLayout = "2006-01-02"

var (
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters long")
	ErrPasswordNotComplex = errors.New("password must include at least one uppercase letter, one lowercase letter, one digit, and one special character")
)

var (
	lowercaseRegex = regexp.MustCompile(`[a-z]`)
	uppercaseRegex = regexp.MustCompile(`[A-Z]`)
	digitRegex     = regexp.MustCompile(`\d`)
	specialRegex   = regexp.MustCompile(`[@$!%*?&#^_\-]`)
)

// ValidateHospitalData checks a registration before the password is hashed.
func ValidateHospitalData(hospital models.Hospital) error {
	err := validation.ValidateStruct(&hospital,
		validation.Field(&hospital.Name, validation.Required, validation.Length(2, 120)),
		validation.Field(&hospital.Email, validation.Required, is.EmailFormat),
		validation.Field(&hospital.Phone, validation.Length(0, 32)),
		validation.Field(&hospital.Password, validation.Required.Error("password cannot be blank"), validation.By(validatePassword)),
	)
	return asValidation(err)
}

// ValidateIntake checks a new patient before any document work starts.
func ValidateIntake(hospitalID uint, snapshot models.Snapshot) error {
	err := validation.Errors{
		"hospital_id": validation.Validate(hospitalID, validation.Required.Error("hospital_id is required")),
		"symptoms":    validation.Validate(strings.TrimSpace(snapshot.Symptoms), validation.Required.Error("symptoms are required")),
		"age":         validation.Validate(snapshot.Age, validation.Min(0), validation.Max(150)),
	}.Filter()
	return asValidation(err)
}

// ValidateSnapshotPatch checks the fields of a partial update. Zero values
// are allowed since they mean "keep".
func ValidateSnapshotPatch(patch models.Snapshot) error {
	err := validation.Errors{
		"age": validation.Validate(patch.Age, validation.Min(0), validation.Max(150)),
	}.Filter()
	return asValidation(err)
}

// ParseVisitDate parses an optional visit_date. Empty means today.
func ParseVisitDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if err := validation.Validate(value, validation.Date(VisitDateLayout)); err != nil {
		return time.Time{}, apperrors.Validation("visit_date: %v", err)
	}
	date, _ := time.Parse(VisitDateLayout, value)
	return date, nil
}

func ValidateTreatmentPlan(plan models.TreatmentPlan) error {
	err := validation.ValidateStruct(&plan,
		validation.Field(&plan.Treatment, validation.Required, validation.Length(1, 5000)),
		validation.Field(&plan.Medication, validation.Length(0, 5000)),
		validation.Field(&plan.Tests, validation.Length(0, 5000)),
		validation.Field(&plan.Precaution, validation.Length(0, 5000)),
	)
	return asValidation(err)
}

// ValidatePassword checks a new password on its own, as a password reset
// does.
func ValidatePassword(password string) error {
	return asValidation(validation.Validate(password, validation.Required.Error("password cannot be blank"), validation.By(validatePassword)))
}

// validatePassword checks the password for length and complexity.
func validatePassword(value interface{}) error {
	password, _ := value.(string)

	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	if !lowercaseRegex.MatchString(password) ||
		!uppercaseRegex.MatchString(password) ||
		!digitRegex.MatchString(password) ||
		!specialRegex.MatchString(password) {
		return ErrPasswordNotComplex
	}
	return nil
}

func asValidation(err error) error {
	if err == nil {
		return nil
	}
	log.WithError(err).Debug("Validation error")
	return apperrors.Validation("%s", err.Error())
}
