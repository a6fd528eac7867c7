package handlers

import (
	"Medicare/apperrors"
	"Medicare/middlewares"
	"Medicare/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type PatientHandler struct {
	service *services.PatientService
}

func NewPatientHandler(service *services.PatientService) *PatientHandler {
	return &PatientHandler{service: service}
}

// RequireOwnPatient stops requests for a patient of another hospital.
func (h *PatientHandler) RequireOwnPatient() gin.HandlerFunc {
	return func(c *gin.Context) {
		hospitalID, err := middlewares.HospitalIDFromContext(c.Request.Context())
		if err != nil {
			middlewares.HttpError(c, "Missing access token", http.StatusUnauthorized, err)
			return
		}
		id, err := parseID(c, "patient_id")
		if err != nil {
			middlewares.RespondError(c, err)
			return
		}
		patient, err := h.service.GetByID(c.Request.Context(), id)
		if err != nil {
			middlewares.RespondError(c, err)
			return
		}
		if patient.HospitalID != hospitalID {
			// Same answer as a missing patient.
			middlewares.RespondError(c, apperrors.NotFound("patient %d", id))
			return
		}
		c.Next()
	}
}

// CreatePatient handles the multipart intake form.
func (h *PatientHandler) CreatePatient(c *gin.Context) {
	ctx := c.Request.Context()
	tokenHospital, err := middlewares.HospitalIDFromContext(ctx)
	if err != nil {
		middlewares.HttpError(c, "Missing access token", http.StatusUnauthorized, err)
		return
	}

	snapshot, err := snapshotFromForm(c)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	hospitalID, err := formUint(c, "hospital_id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	if hospitalID == 0 {
		hospitalID = tokenHospital
	}
	if hospitalID != tokenHospital {
		middlewares.HttpError(c, "Cannot add patients to another hospital", http.StatusForbidden, nil)
		return
	}
	doc, err := readDocument(c)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}

	result, err := h.service.CreatePatientWithRecord(ctx, services.IntakeInput{
		HospitalID:     hospitalID,
		Snapshot:       snapshot,
		MedicalSummary: c.PostForm("medical_summary"),
		Document:       doc,
	})
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, gin.H{
		"message":           "Patient and initial medical record added",
		"patient":           result.Patient,
		"predicted_disease": result.PredictedDisease,
		"document_summary":  result.DocumentSummary,
		"history_appended":  result.HistoryAppended,
	}, http.StatusCreated)
}

// UpdatePatient handles the multipart partial update form.
func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	id, err := parseID(c, "patient_id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	patch, err := snapshotFromForm(c)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	doc, err := readDocument(c)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}

	result, err := h.service.UpdatePatientWithRecord(c.Request.Context(), id, services.UpdateInput{
		Patch:          patch,
		MedicalSummary: c.PostForm("medical_summary"),
		Document:       doc,
	})
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, gin.H{
		"message":           "Patient updated and medical record added",
		"patient":           result.Patient,
		"predicted_disease": result.PredictedDisease,
		"document_summary":  result.DocumentSummary,
		"history_appended":  result.HistoryAppended,
	}, http.StatusOK)
}

func (h *PatientHandler) GetPatientByID(c *gin.Context) {
	id, err := parseID(c, "patient_id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	patient, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, patient, http.StatusOK)
}

func (h *PatientHandler) GetHospitalPatients(c *gin.Context) {
	hospitalID, err := parseID(c, "hospital_id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	tokenHospital, err := middlewares.HospitalIDFromContext(c.Request.Context())
	if err != nil || tokenHospital != hospitalID {
		middlewares.HttpError(c, "Cannot list patients of another hospital", http.StatusForbidden, err)
		return
	}

	patients, err := h.service.ListByHospital(c.Request.Context(), hospitalID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, patients, http.StatusOK)
}

func (h *PatientHandler) DeletePatient(c *gin.Context) {
	id, err := parseID(c, "patient_id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, gin.H{"message": "Patient and all related records deleted"}, http.StatusOK)
}

func (h *PatientHandler) GetMedicalRecords(c *gin.Context) {
	id, err := parseID(c, "patient_id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	records, err := h.service.Records(c.Request.Context(), id)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, records, http.StatusOK)
}

// AddMedicalRecord records a visit sent as JSON.
func (h *PatientHandler) AddMedicalRecord(c *gin.Context) {
	id, err := parseID(c, "patient_id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	var visit services.VisitInput
	if err := c.ShouldBindJSON(&visit); err != nil {
		middlewares.RespondError(c, apperrors.Validation("invalid request body: %v", err))
		return
	}

	result, err := h.service.AddVisit(c.Request.Context(), id, visit)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, gin.H{
		"message":           "Medical record added and patient updated",
		"patient":           result.Patient,
		"predicted_disease": result.PredictedDisease,
		"history_appended":  result.HistoryAppended,
	}, http.StatusCreated)
}
