package handlers

import (
	"Medicare/apperrors"
	"Medicare/middlewares"
	"Medicare/services"
	"Medicare/synthesis"
	"net/http"

	"github.com/gin-gonic/gin"
)

type DiagnosisHandler struct {
	service *services.DiagnosisService
}

func NewDiagnosisHandler(service *services.DiagnosisService) *DiagnosisHandler {
	return &DiagnosisHandler{service: service}
}

type predictRequest struct {
	Symptoms []string `json:"symptoms"`
}

type summaryRequest struct {
	Name          string `json:"name"`
	Symptoms      string `json:"symptoms"`
	ExtractedText string `json:"extracted_text"`
	Disease       string `json:"disease"`
}

type chatRequest struct {
	Messages []synthesis.Message `json:"messages"`
}

func (h *DiagnosisHandler) PredictDisease(c *gin.Context) {
	id, err := parseID(c, "patient_id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middlewares.RespondError(c, apperrors.Validation("invalid request body: %v", err))
		return
	}

	prediction, err := h.service.PredictDisease(c.Request.Context(), id, req.Symptoms)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, prediction, http.StatusOK)
}

func (h *DiagnosisHandler) GetDiseaseHistory(c *gin.Context) {
	id, err := parseID(c, "patient_id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	history, err := h.service.ListHistory(c.Request.Context(), id)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, history, http.StatusOK)
}

// ExtractInfo summarizes an uploaded document that is not tied to a visit.
// A summary the model got wrong is still a 200 carrying the raw response.
func (h *DiagnosisHandler) ExtractInfo(c *gin.Context) {
	doc, err := readDocument(c)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	if doc == nil {
		middlewares.RespondError(c, apperrors.Validation("document is required"))
		return
	}

	result, err := h.service.ExtractInfo(c.Request.Context(), doc.Data)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, result, http.StatusOK)
}

func (h *DiagnosisHandler) Summarize(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middlewares.RespondError(c, apperrors.Validation("invalid request body: %v", err))
		return
	}

	result, err := h.service.SynthesizeSummary(c.Request.Context(), req.Name, req.Symptoms, req.ExtractedText, req.Disease)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, result, http.StatusOK)
}

func (h *DiagnosisHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middlewares.RespondError(c, apperrors.Validation("invalid request body: %v", err))
		return
	}

	reply, err := h.service.Chat(c.Request.Context(), req.Messages)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, gin.H{"reply": reply}, http.StatusOK)
}
