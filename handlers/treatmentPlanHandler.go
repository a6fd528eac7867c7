package handlers

import (
	"Medicare/apperrors"
	"Medicare/middlewares"
	"Medicare/models"
	"Medicare/repositories"
	"Medicare/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type TreatmentPlanHandler struct {
	service *services.TreatmentPlanService
}

func NewTreatmentPlanHandler(service *services.TreatmentPlanService) *TreatmentPlanHandler {
	return &TreatmentPlanHandler{service: service}
}

// RequireOwnPlan stops requests for a plan of another hospital's patient.
func (h *TreatmentPlanHandler) RequireOwnPlan() gin.HandlerFunc {
	return func(c *gin.Context) {
		hospitalID, err := middlewares.HospitalIDFromContext(c.Request.Context())
		if err != nil {
			middlewares.HttpError(c, "Missing access token", http.StatusUnauthorized, err)
			return
		}
		id, err := parseID(c, "treatment_plan_id")
		if err != nil {
			middlewares.RespondError(c, err)
			return
		}
		owner, err := h.service.HospitalOf(c.Request.Context(), id)
		if err != nil {
			middlewares.RespondError(c, err)
			return
		}
		if owner != hospitalID {
			middlewares.RespondError(c, apperrors.NotFound("treatment plan %d", id))
			return
		}
		c.Next()
	}
}

type planRequest struct {
	Treatment  string `json:"treatment"`
	Medication string `json:"medication"`
	Tests      string `json:"tests"`
	Precaution string `json:"precaution"`
}

func (h *TreatmentPlanHandler) CreateTreatmentPlan(c *gin.Context) {
	patientID, err := parseID(c, "patient_id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middlewares.RespondError(c, apperrors.Validation("invalid request body: %v", err))
		return
	}

	plan := models.TreatmentPlan{
		Treatment:  req.Treatment,
		Medication: req.Medication,
		Tests:      req.Tests,
		Precaution: req.Precaution,
	}
	if err := h.service.Add(c.Request.Context(), patientID, &plan); err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, plan, http.StatusCreated)
}

func (h *TreatmentPlanHandler) GetAllTreatmentPlans(c *gin.Context) {
	patientID, err := parseID(c, "patient_id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	plans, err := h.service.List(c.Request.Context(), patientID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, plans, http.StatusOK)
}

func (h *TreatmentPlanHandler) GetTreatmentPlanByID(c *gin.Context) {
	id, err := parseID(c, "treatment_plan_id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	plan, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, plan, http.StatusOK)
}

// UpdateTreatmentPlan replaces all four plan fields.
func (h *TreatmentPlanHandler) UpdateTreatmentPlan(c *gin.Context) {
	id, err := parseID(c, "treatment_plan_id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middlewares.RespondError(c, apperrors.Validation("invalid request body: %v", err))
		return
	}

	plan, err := h.service.Update(c.Request.Context(), id, repositories.PlanUpdate{
		Treatment:  req.Treatment,
		Medication: req.Medication,
		Tests:      req.Tests,
		Precaution: req.Precaution,
	})
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, plan, http.StatusOK)
}

func (h *TreatmentPlanHandler) DeleteTreatmentPlan(c *gin.Context) {
	id, err := parseID(c, "treatment_plan_id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, gin.H{"message": "Treatment plan deleted"}, http.StatusOK)
}
