package controllers

import (
	"Medicare/handlers"

	"github.com/gin-gonic/gin"
)

// SetupPatientRoutes mounts the patient, diagnosis and treatment plan
// routes behind tokenAuth.
func SetupPatientRoutes(
	router *gin.Engine,
	tokenAuth gin.HandlerFunc,
	patientHandler *handlers.PatientHandler,
	diagnosisHandler *handlers.DiagnosisHandler,
	treatmentPlanHandler *handlers.TreatmentPlanHandler,
) {
	api := router.Group("/", tokenAuth)

	api.POST("/patients", patientHandler.CreatePatient)
	api.GET("/hospitals/:hospital_id/patients", patientHandler.GetHospitalPatients)

	patient := api.Group("/patients/:patient_id", patientHandler.RequireOwnPatient())
	patient.GET("", patientHandler.GetPatientByID)
	patient.PUT("", patientHandler.UpdatePatient)
	patient.DELETE("", patientHandler.DeletePatient)
	patient.GET("/records", patientHandler.GetMedicalRecords)
	patient.POST("/records", patientHandler.AddMedicalRecord)

	patient.POST("/predict", diagnosisHandler.PredictDisease)
	patient.GET("/disease_history", diagnosisHandler.GetDiseaseHistory)

	patient.POST("/treatment_plans", treatmentPlanHandler.CreateTreatmentPlan)
	patient.GET("/treatment_plans", treatmentPlanHandler.GetAllTreatmentPlans)

	plan := api.Group("/treatment_plans/:treatment_plan_id", treatmentPlanHandler.RequireOwnPlan())
	plan.GET("", treatmentPlanHandler.GetTreatmentPlanByID)
	plan.PUT("", treatmentPlanHandler.UpdateTreatmentPlan)
	plan.DELETE("", treatmentPlanHandler.DeleteTreatmentPlan)

	api.POST("/documents/extract", diagnosisHandler.ExtractInfo)
	api.POST("/ai/summary", diagnosisHandler.Summarize)
	api.POST("/ai/chat", diagnosisHandler.Chat)
}
